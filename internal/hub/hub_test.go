package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatroom/internal/domain"
	"chatroom/internal/service"
)

// scriptedChat returns canned results per content string and records calls.
type scriptedChat struct {
	results map[string]*domain.Message
	errs    map[string]error
	calls   []string
}

func (s *scriptedChat) PostMessage(ctx context.Context, authorID uint, content string) (*domain.Message, error) {
	s.calls = append(s.calls, content)
	if err, ok := s.errs[content]; ok {
		return nil, err
	}
	if msg, ok := s.results[content]; ok {
		return msg, nil
	}
	return nil, service.ErrInvalidContent
}

// testClient builds a client attached to the hub without a real websocket
// connection; only the send channel is exercised by the event loop.
func testClient(h *Hub, userID uint, connID string) *Client {
	return &Client{
		hub:    h,
		userID: userID,
		connID: connID,
		send:   make(chan []byte, 8),
	}
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case payload := <-c.send:
		return payload
	case <-time.After(2 * time.Second):
		t.Fatalf("client %s received nothing", c.connID)
		return nil
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case payload := <-c.send:
		t.Fatalf("client %s unexpectedly received %s", c.connID, payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func startHub(t *testing.T, chat MessageService) *Hub {
	t.Helper()
	h := NewHub(chat)
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()
	t.Cleanup(func() {
		h.Stop()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("hub did not stop")
		}
	})
	return h
}

func TestHub_BroadcastReachesAllClientsInOrder(t *testing.T) {
	chat := &scriptedChat{results: map[string]*domain.Message{
		"hello": {ID: 1, Content: "hello", User: domain.User{Nickname: "annL"}},
		"hi":    {ID: 2, Content: "hi", User: domain.User{Nickname: "boK"}},
	}}
	h := startHub(t, chat)

	ann := testClient(h, 1, "ann-conn")
	bo := testClient(h, 2, "bo-conn")
	require.True(t, h.QueueMessage(HubMessage{Type: "register", UserID: 1, Client: ann}))
	require.True(t, h.QueueMessage(HubMessage{Type: "register", UserID: 2, Client: bo}))

	require.True(t, h.QueueMessage(HubMessage{
		Type: "message", UserID: 1, Client: ann, RawData: []byte(`{"content":"hello"}`),
	}))
	require.True(t, h.QueueMessage(HubMessage{
		Type: "message", UserID: 2, Client: bo, RawData: []byte(`{"content":"hi"}`),
	}))

	// Every client, the senders included, sees both messages in acceptance
	// order with the author's nickname attached.
	for _, client := range []*Client{ann, bo} {
		var first, second Outbound
		require.NoError(t, json.Unmarshal(receive(t, client), &first))
		require.NoError(t, json.Unmarshal(receive(t, client), &second))

		assert.Equal(t, Outbound{Content: "hello", Nickname: "annL"}, first)
		assert.Equal(t, Outbound{Content: "hi", Nickname: "boK"}, second)
	}
}

func TestHub_RejectionGoesToSenderOnly(t *testing.T) {
	chat := &scriptedChat{errs: map[string]error{
		"": service.ErrInvalidContent,
	}}
	h := startHub(t, chat)

	ann := testClient(h, 1, "ann-conn")
	bo := testClient(h, 2, "bo-conn")
	require.True(t, h.QueueMessage(HubMessage{Type: "register", UserID: 1, Client: ann}))
	require.True(t, h.QueueMessage(HubMessage{Type: "register", UserID: 2, Client: bo}))

	require.True(t, h.QueueMessage(HubMessage{
		Type: "message", UserID: 1, Client: ann, RawData: []byte(`{"content":""}`),
	}))

	var notice ErrorNotice
	require.NoError(t, json.Unmarshal(receive(t, ann), &notice))
	assert.Equal(t, service.ErrInvalidContent.Error(), notice.Error)

	assertSilent(t, bo)
}

func TestHub_SnapshotFailureAsksSenderToRetry(t *testing.T) {
	chat := &scriptedChat{errs: map[string]error{
		"hello": service.ErrSnapshotFailed,
	}}
	h := startHub(t, chat)

	ann := testClient(h, 1, "ann-conn")
	bo := testClient(h, 2, "bo-conn")
	require.True(t, h.QueueMessage(HubMessage{Type: "register", UserID: 1, Client: ann}))
	require.True(t, h.QueueMessage(HubMessage{Type: "register", UserID: 2, Client: bo}))

	require.True(t, h.QueueMessage(HubMessage{
		Type: "message", UserID: 1, Client: ann, RawData: []byte(`{"content":"hello"}`),
	}))

	var notice ErrorNotice
	require.NoError(t, json.Unmarshal(receive(t, ann), &notice))
	assert.Contains(t, notice.Error, "retry")

	// The suppressed broadcast must reach no one else.
	assertSilent(t, bo)
}

func TestHub_MalformedFrameIsAcknowledgedNotPersisted(t *testing.T) {
	chat := &scriptedChat{}
	h := startHub(t, chat)

	ann := testClient(h, 1, "ann-conn")
	require.True(t, h.QueueMessage(HubMessage{Type: "register", UserID: 1, Client: ann}))

	require.True(t, h.QueueMessage(HubMessage{
		Type: "message", UserID: 1, Client: ann, RawData: []byte(`{not json`),
	}))

	var notice ErrorNotice
	require.NoError(t, json.Unmarshal(receive(t, ann), &notice))
	assert.NotEmpty(t, notice.Error)
	assert.Empty(t, chat.calls, "a malformed frame must never reach the chat service")
}

func TestHub_QueueAfterStopIsRejected(t *testing.T) {
	// Websocket pumps outlive the HTTP server's shutdown, so frames and
	// disconnects can still arrive after Stop. They must be rejected cleanly,
	// never crash the process.
	chat := &scriptedChat{}
	h := NewHub(chat)
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()

	ann := testClient(h, 1, "ann-conn")
	require.True(t, h.QueueMessage(HubMessage{Type: "register", UserID: 1, Client: ann}))

	h.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	assert.NotPanics(t, func() {
		assert.False(t, h.QueueMessage(HubMessage{
			Type: "message", UserID: 1, Client: ann, RawData: []byte(`{"content":"hello"}`),
		}))
		assert.False(t, h.QueueMessage(HubMessage{Type: "unregister", UserID: 1, Client: ann}))
	})
	assert.Empty(t, chat.calls, "late frames must not reach the chat service")

	// Stop is idempotent.
	assert.NotPanics(t, h.Stop)
}

func TestHub_UnregisterStopsDelivery(t *testing.T) {
	chat := &scriptedChat{results: map[string]*domain.Message{
		"hello": {ID: 1, Content: "hello", User: domain.User{Nickname: "annL"}},
	}}
	h := startHub(t, chat)

	ann := testClient(h, 1, "ann-conn")
	bo := testClient(h, 2, "bo-conn")
	require.True(t, h.QueueMessage(HubMessage{Type: "register", UserID: 1, Client: ann}))
	require.True(t, h.QueueMessage(HubMessage{Type: "register", UserID: 2, Client: bo}))
	require.True(t, h.QueueMessage(HubMessage{Type: "unregister", UserID: 2, Client: bo}))

	require.True(t, h.QueueMessage(HubMessage{
		Type: "message", UserID: 1, Client: ann, RawData: []byte(`{"content":"hello"}`),
	}))

	var out Outbound
	require.NoError(t, json.Unmarshal(receive(t, ann), &out))
	assert.Equal(t, "hello", out.Content)
	assert.Equal(t, 1, h.ClientCount())

	// Unregistration closed bo's send channel without delivering anything.
	payload, open := <-bo.send
	assert.False(t, open)
	assert.Nil(t, payload)
}
