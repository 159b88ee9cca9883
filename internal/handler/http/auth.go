package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"chatroom/internal/middleware"
	"chatroom/internal/service"
)

// AuthHandler serves the registration, login and logout pages.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	if authService == nil {
		panic("AuthService cannot be nil for AuthHandler")
	}
	return &AuthHandler{authService: authService}
}

// RegisterRequest carries the registration form fields.
type RegisterRequest struct {
	Name     string `form:"name" binding:"required,max=50"`
	Surname  string `form:"surname" binding:"required,max=50"`
	Email    string `form:"email" binding:"required,email,max=120"`
	Nickname string `form:"nickname" binding:"required,min=2,max=20"`
	Password string `form:"password" binding:"required,min=6"`
}

// ShowRegister renders the registration form.
func (h *AuthHandler) ShowRegister(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", registerView(RegisterRequest{}, gin.H{"Flash": takeFlash(c)}))
}

// registerView fills the template data with the (possibly re-rendered) form
// values so the template never sees missing keys.
func registerView(req RegisterRequest, extra gin.H) gin.H {
	data := gin.H{
		"Name":     req.Name,
		"Surname":  req.Surname,
		"Email":    req.Email,
		"Nickname": req.Nickname,
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

// Register handles the registration form POST. Duplicate email or nickname
// renders a field-specific error; success redirects to the login page with a
// one-shot notice.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		logrus.WithError(err).Warn("Register: invalid form input")
		c.HTML(http.StatusBadRequest, "register.html", registerView(req, gin.H{
			"Error": "Please check your information and try again.",
		}))
		return
	}

	_, err := h.authService.Register(c.Request.Context(), req.Name, req.Surname, req.Email, req.Nickname, req.Password)
	if err != nil {
		h.renderRegisterError(c, req, err)
		return
	}

	setFlash(c, "Registration successful! Please log in.")
	c.Redirect(http.StatusFound, "/login")
}

func (h *AuthHandler) renderRegisterError(c *gin.Context, req RegisterRequest, err error) {
	logCtx := logrus.WithFields(logrus.Fields{"email": req.Email, "nickname": req.Nickname})

	switch {
	case errors.Is(err, service.ErrEmailTaken):
		logCtx.Warn("Register: email already exists")
		c.HTML(http.StatusBadRequest, "register.html", registerView(req, gin.H{
			"Error":      "Email already exists. Please choose a different email.",
			"EmailTaken": true,
		}))
	case errors.Is(err, service.ErrNicknameTaken):
		logCtx.Warn("Register: nickname already exists")
		c.HTML(http.StatusBadRequest, "register.html", registerView(req, gin.H{
			"Error":         "Nickname already exists. Please choose a different nickname.",
			"NicknameTaken": true,
		}))
	case errors.Is(err, service.ErrInvalidInput):
		c.HTML(http.StatusBadRequest, "register.html", registerView(req, gin.H{
			"Error": "Please check your information and try again.",
		}))
	default:
		logCtx.WithError(err).Error("Register: internal error")
		c.HTML(http.StatusInternalServerError, "register.html", registerView(req, gin.H{
			"Error": "Registration failed due to a server error. Please try again.",
		}))
	}
}

// LoginRequest carries the login form fields. The identifier may be an email
// or a nickname.
type LoginRequest struct {
	LoginIdentifier string `form:"login_identifier" binding:"required"`
	Password        string `form:"password" binding:"required"`
}

// ShowLogin renders the login form.
func (h *AuthHandler) ShowLogin(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{"Flash": takeFlash(c)})
}

// Login handles the login form POST. On success the session cookie is set
// and the user lands in the room; every failure renders the same generic
// error.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.HTML(http.StatusBadRequest, "login.html", gin.H{
			"Error": "Login failed. Please check your email/nickname and password.",
		})
		return
	}

	user, err := h.authService.Authenticate(c.Request.Context(), req.LoginIdentifier, req.Password)
	if err != nil {
		if !errors.Is(err, service.ErrAuthenticationFailed) {
			logrus.WithError(err).Error("Login: internal error")
		}
		c.HTML(http.StatusUnauthorized, "login.html", gin.H{
			"Error": "Login failed. Please check your email/nickname and password.",
		})
		return
	}

	token, err := h.authService.IssueSession(user.ID)
	if err != nil {
		logrus.WithError(err).Error("Login: failed to issue session token")
		c.HTML(http.StatusInternalServerError, "login.html", gin.H{
			"Error": "Login failed due to a server error. Please try again.",
		})
		return
	}

	maxAge := int(h.authService.SessionExpiry().Seconds())
	c.SetCookie(middleware.SessionCookie, token, maxAge, "/", "", false, true)
	c.Redirect(http.StatusFound, "/")
}

// Logout clears the session binding and sends the user back to the login
// page. There is no server-side revocation beyond dropping the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/login")
}
