package gormpersistence_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chatroom/internal/domain"
	gormpersistence "chatroom/internal/infra/persistence/gorm"
	"chatroom/internal/infra/setup"
	"chatroom/internal/repository"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("%s?_foreign_keys=on", filepath.Join(t.TempDir(), "chat.db"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, setup.MigrateDB(db))
	return db
}

func seedUser(t *testing.T, repo *gormpersistence.GormUserRepository, email, nickname string) *domain.User {
	t.Helper()
	user := &domain.User{
		Name:     "Ann",
		Surname:  "Lee",
		Email:    email,
		Nickname: nickname,
		Password: "$2a$10$hash",
	}
	require.NoError(t, repo.Create(context.Background(), user))
	require.NotZero(t, user.ID)
	return user
}

func TestGormUserRepository_Create_DuplicateEmail(t *testing.T) {
	db := openTestDB(t)
	repo := gormpersistence.NewGormUserRepository(db)
	ctx := context.Background()

	seedUser(t, repo, "ann@x.com", "annL")

	err := repo.Create(ctx, &domain.User{
		Name: "Bo", Surname: "Kai", Email: "ann@x.com", Nickname: "boK", Password: "h",
	})

	assert.ErrorIs(t, err, repository.ErrEmailTaken)
}

func TestGormUserRepository_Create_DuplicateNickname(t *testing.T) {
	db := openTestDB(t)
	repo := gormpersistence.NewGormUserRepository(db)
	ctx := context.Background()

	seedUser(t, repo, "ann@x.com", "annL")

	err := repo.Create(ctx, &domain.User{
		Name: "Bo", Surname: "Kai", Email: "bo@x.com", Nickname: "annL", Password: "h",
	})

	assert.ErrorIs(t, err, repository.ErrNicknameTaken)

	// The losing insert must not have disturbed the existing row.
	existing, err := repo.FindByLogin(ctx, "annL")
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", existing.Email)
}

func TestGormUserRepository_FindByLogin(t *testing.T) {
	db := openTestDB(t)
	repo := gormpersistence.NewGormUserRepository(db)
	ctx := context.Background()

	ann := seedUser(t, repo, "ann@x.com", "annL")

	byEmail, err := repo.FindByLogin(ctx, "ann@x.com")
	require.NoError(t, err)
	assert.Equal(t, ann.ID, byEmail.ID)

	byNickname, err := repo.FindByLogin(ctx, "annL")
	require.NoError(t, err)
	assert.Equal(t, ann.ID, byNickname.ID)

	_, err = repo.FindByLogin(ctx, "ghost")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestGormUserRepository_FindByID(t *testing.T) {
	db := openTestDB(t)
	repo := gormpersistence.NewGormUserRepository(db)
	ctx := context.Background()

	ann := seedUser(t, repo, "ann@x.com", "annL")

	found, err := repo.FindByID(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, "annL", found.Nickname)

	_, err = repo.FindByID(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestGormUserRepository_FindAllWithMessages(t *testing.T) {
	db := openTestDB(t)
	userRepo := gormpersistence.NewGormUserRepository(db)
	messageRepo := gormpersistence.NewGormMessageRepository(db)
	ctx := context.Background()

	ann := seedUser(t, userRepo, "ann@x.com", "annL")
	bo := seedUser(t, userRepo, "bo@x.com", "boK")

	for i, post := range []struct {
		authorID uint
		content  string
	}{
		{ann.ID, "hello"},
		{bo.ID, "hi"},
		{ann.ID, "how are you"},
	} {
		require.NoError(t, messageRepo.Create(ctx, &domain.Message{
			Content:   post.content,
			UserID:    post.authorID,
			Timestamp: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}))
	}

	users, err := userRepo.FindAllWithMessages(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	assert.Equal(t, "annL", users[0].Nickname)
	require.Len(t, users[0].Messages, 2)
	assert.Equal(t, "hello", users[0].Messages[0].Content)
	assert.Equal(t, "how are you", users[0].Messages[1].Content)

	assert.Equal(t, "boK", users[1].Nickname)
	require.Len(t, users[1].Messages, 1)
	assert.Equal(t, "hi", users[1].Messages[0].Content)
}

func TestGormMessageRepository_Create_UnknownAuthor(t *testing.T) {
	db := openTestDB(t)
	messageRepo := gormpersistence.NewGormMessageRepository(db)
	ctx := context.Background()

	err := messageRepo.Create(ctx, &domain.Message{
		Content:   "hello",
		UserID:    999,
		Timestamp: time.Now().UTC(),
	})

	assert.ErrorIs(t, err, repository.ErrForeignKey)
}

func TestGormMessageRepository_ListAll_InsertionOrderWithAuthors(t *testing.T) {
	db := openTestDB(t)
	userRepo := gormpersistence.NewGormUserRepository(db)
	messageRepo := gormpersistence.NewGormMessageRepository(db)
	ctx := context.Background()

	ann := seedUser(t, userRepo, "ann@x.com", "annL")
	bo := seedUser(t, userRepo, "bo@x.com", "boK")

	require.NoError(t, messageRepo.Create(ctx, &domain.Message{
		Content: "hello", UserID: ann.ID, Timestamp: time.Now().UTC(),
	}))
	require.NoError(t, messageRepo.Create(ctx, &domain.Message{
		Content: "hi", UserID: bo.ID, Timestamp: time.Now().UTC(),
	}))

	messages, err := messageRepo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "hello", messages[0].Content)
	assert.Equal(t, "annL", messages[0].User.Nickname)
	assert.Equal(t, "hi", messages[1].Content)
	assert.Equal(t, "boK", messages[1].User.Nickname)
}

func TestGormMessageRepository_ListAll_EmptyStore(t *testing.T) {
	db := openTestDB(t)
	messageRepo := gormpersistence.NewGormMessageRepository(db)

	messages, err := messageRepo.ListAll(context.Background())

	require.NoError(t, err)
	assert.Empty(t, messages)
}
