package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farid/collabco/pkg/store"
)

type fakeStore struct {
	projects map[string]*store.Project
	err      error
}

func (f *fakeStore) FindProject(_ context.Context, id string) (*store.Project, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.projects[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func newTestRelay(t *testing.T, cfg Config) (*Relay, string) {
	t.Helper()
	if cfg.Store == nil {
		cfg.Store = &fakeStore{projects: map[string]*store.Project{}}
	}
	cfg.Logger = zerolog.Nop()

	rl := New(cfg)
	srv := httptest.NewServer(http.HandlerFunc(rl.HandleWebSocket))
	t.Cleanup(srv.Close)

	return rl, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, data interface{}) {
	t.Helper()
	body, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Envelope{Event: event, Data: body}))
}

func readEvent(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	var env Envelope
	err := conn.ReadJSON(&env)
	require.Error(t, err, "expected no event, got %q", env.Event)
	assert.True(t, errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "timeout"))
}

func waitForMembers(t *testing.T, rl *Relay, projectID string, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return rl.Registry().MemberCount(projectID) == want
	}, 2*time.Second, 10*time.Millisecond)
}

func TestJoinBootstrapsFromStoredCode(t *testing.T) {
	fs := &fakeStore{projects: map[string]*store.Project{
		"p1": {ID: "p1", Code: "print(1)"},
	}}
	_, url := newTestRelay(t, Config{Store: fs})

	conn := dial(t, url)
	sendEvent(t, conn, EventJoinRoom, JoinPayload{ProjectID: "p1", Username: "alice"})

	env := readEvent(t, conn)
	assert.Equal(t, EventBootstrapCode, env.Event)

	var boot BootstrapCode
	require.NoError(t, json.Unmarshal(env.Data, &boot))
	assert.Equal(t, "print(1)", boot.Code)
}

func TestJoinUnknownProjectStillJoinsWithoutBootstrap(t *testing.T) {
	rl, url := newTestRelay(t, Config{})

	conn := dial(t, url)
	sendEvent(t, conn, EventJoinRoom, JoinPayload{ProjectID: "ghost", Username: "alice"})

	waitForMembers(t, rl, "ghost", 1)
	expectSilence(t, conn)
}

func TestJoinSurvivesStoreFailure(t *testing.T) {
	fs := &fakeStore{err: errors.New("store down")}
	rl, url := newTestRelay(t, Config{Store: fs})

	conn := dial(t, url)
	sendEvent(t, conn, EventJoinRoom, JoinPayload{ProjectID: "p1", Username: "alice"})

	waitForMembers(t, rl, "p1", 1)
	expectSilence(t, conn)
}

func TestJoinWithEmptyStoredCodeSkipsBootstrap(t *testing.T) {
	fs := &fakeStore{projects: map[string]*store.Project{
		"p1": {ID: "p1", Code: ""},
	}}
	rl, url := newTestRelay(t, Config{Store: fs})

	conn := dial(t, url)
	sendEvent(t, conn, EventJoinRoom, JoinPayload{ProjectID: "p1", Username: "alice"})

	waitForMembers(t, rl, "p1", 1)
	expectSilence(t, conn)
}

func TestPeerJoinedGoesToOthersOnly(t *testing.T) {
	rl, url := newTestRelay(t, Config{})

	a := dial(t, url)
	sendEvent(t, a, EventJoinRoom, JoinPayload{ProjectID: "p1", Username: "alice"})
	waitForMembers(t, rl, "p1", 1)

	b := dial(t, url)
	sendEvent(t, b, EventJoinRoom, JoinPayload{ProjectID: "p1", Username: "bob"})

	env := readEvent(t, a)
	assert.Equal(t, EventPeerJoined, env.Event)

	var joined PeerJoined
	require.NoError(t, json.Unmarshal(env.Data, &joined))
	assert.Equal(t, "bob", joined.Username)
	assert.NotEmpty(t, joined.ConnectionID)

	expectSilence(t, b)
}

func TestEditExcludesSender(t *testing.T) {
	rl, url := newTestRelay(t, Config{})

	a := dial(t, url)
	sendEvent(t, a, EventJoinRoom, JoinPayload{ProjectID: "p1", Username: "alice"})
	waitForMembers(t, rl, "p1", 1)
	b := dial(t, url)
	sendEvent(t, b, EventJoinRoom, JoinPayload{ProjectID: "p1", Username: "bob"})
	waitForMembers(t, rl, "p1", 2)
	c := dial(t, url)
	sendEvent(t, c, EventJoinRoom, JoinPayload{ProjectID: "p1", Username: "carol"})
	waitForMembers(t, rl, "p1", 3)

	// drain peer-joined notices
	readEvent(t, a)
	readEvent(t, a)
	readEvent(t, b)

	sendEvent(t, a, EventEdit, EditPayload{ProjectID: "p1", Code: "print(2)"})

	for _, peer := range []*websocket.Conn{b, c} {
		env := readEvent(t, peer)
		assert.Equal(t, EventCodeUpdate, env.Event)
		var update CodeUpdate
		require.NoError(t, json.Unmarshal(env.Data, &update))
		assert.Equal(t, "print(2)", update.Code)
	}

	expectSilence(t, a)
}

func TestChatIncludesSenderWithSharedTimestamp(t *testing.T) {
	rl, url := newTestRelay(t, Config{})

	a := dial(t, url)
	sendEvent(t, a, EventJoinRoom, JoinPayload{ProjectID: "p1", Username: "alice"})
	waitForMembers(t, rl, "p1", 1)
	b := dial(t, url)
	sendEvent(t, b, EventJoinRoom, JoinPayload{ProjectID: "p1", Username: "bob"})
	waitForMembers(t, rl, "p1", 2)
	readEvent(t, a) // peer-joined bob

	sendEvent(t, b, EventChat, ChatPayload{ProjectID: "p1", Username: "bob", Message: "hi"})

	var got []ChatReceived
	for _, conn := range []*websocket.Conn{a, b} {
		env := readEvent(t, conn)
		assert.Equal(t, EventChatReceived, env.Event)
		var chat ChatReceived
		require.NoError(t, json.Unmarshal(env.Data, &chat))
		got = append(got, chat)
	}

	assert.Equal(t, "bob", got[0].Username)
	assert.Equal(t, "hi", got[0].Message)
	assert.False(t, got[0].Time.IsZero())
	// One server-assigned timestamp, identical across deliveries
	assert.Equal(t, got[0].Time, got[1].Time)
}

func TestSuggestionExcludesSenderAndCarriesTimestamp(t *testing.T) {
	rl, url := newTestRelay(t, Config{})

	a := dial(t, url)
	sendEvent(t, a, EventJoinRoom, JoinPayload{ProjectID: "p1", Username: "alice"})
	waitForMembers(t, rl, "p1", 1)
	b := dial(t, url)
	sendEvent(t, b, EventJoinRoom, JoinPayload{ProjectID: "p1", Username: "bob"})
	waitForMembers(t, rl, "p1", 2)
	readEvent(t, a) // peer-joined bob

	sendEvent(t, a, EventSuggestion, SuggestionPayload{ProjectID: "p1", Username: "alice", Suggestion: "use a map"})

	env := readEvent(t, b)
	assert.Equal(t, EventSuggestionReceived, env.Event)
	var sug SuggestionReceived
	require.NoError(t, json.Unmarshal(env.Data, &sug))
	assert.Equal(t, "alice", sug.Username)
	assert.Equal(t, "use a map", sug.Suggestion)
	assert.False(t, sug.Time.IsZero())

	expectSilence(t, a)
}

func TestCursorMoveExcludesSender(t *testing.T) {
	rl, url := newTestRelay(t, Config{})

	a := dial(t, url)
	sendEvent(t, a, EventJoinRoom, JoinPayload{ProjectID: "p1", Username: "alice"})
	waitForMembers(t, rl, "p1", 1)
	b := dial(t, url)
	sendEvent(t, b, EventJoinRoom, JoinPayload{ProjectID: "p1", Username: "bob"})
	waitForMembers(t, rl, "p1", 2)
	readEvent(t, a) // peer-joined bob

	sendEvent(t, a, EventCursorMove, CursorPayload{
		ProjectID: "p1",
		Username:  "alice",
		Position:  json.RawMessage(`{"line":3,"column":7}`),
	})

	env := readEvent(t, b)
	assert.Equal(t, EventPeerCursor, env.Event)
	var cursor PeerCursor
	require.NoError(t, json.Unmarshal(env.Data, &cursor))
	assert.Equal(t, "alice", cursor.Username)
	assert.JSONEq(t, `{"line":3,"column":7}`, string(cursor.Position))

	expectSilence(t, a)
}

func TestEditsDoNotCrossRooms(t *testing.T) {
	rl, url := newTestRelay(t, Config{})

	a := dial(t, url)
	sendEvent(t, a, EventJoinRoom, JoinPayload{ProjectID: "p1", Username: "alice"})
	b := dial(t, url)
	sendEvent(t, b, EventJoinRoom, JoinPayload{ProjectID: "p2", Username: "bob"})
	waitForMembers(t, rl, "p1", 1)
	waitForMembers(t, rl, "p2", 1)

	sendEvent(t, a, EventEdit, EditPayload{ProjectID: "p1", Code: "secret"})

	expectSilence(t, b)
}

func TestDisconnectRemovesFromRoomSilently(t *testing.T) {
	rl, url := newTestRelay(t, Config{})

	a := dial(t, url)
	sendEvent(t, a, EventJoinRoom, JoinPayload{ProjectID: "p1", Username: "alice"})
	waitForMembers(t, rl, "p1", 1)
	b := dial(t, url)
	sendEvent(t, b, EventJoinRoom, JoinPayload{ProjectID: "p1", Username: "bob"})
	waitForMembers(t, rl, "p1", 2)
	readEvent(t, a) // peer-joined bob

	require.NoError(t, b.Close())
	waitForMembers(t, rl, "p1", 1)

	// departure is not announced
	expectSilence(t, a)

	// and the departed member receives nothing further
	sendEvent(t, a, EventEdit, EditPayload{ProjectID: "p1", Code: "print(3)"})
	waitForMembers(t, rl, "p1", 1)
}

func TestDisconnectNotifiesWhenConfigured(t *testing.T) {
	rl, url := newTestRelay(t, Config{NotifyOnLeave: true})

	a := dial(t, url)
	sendEvent(t, a, EventJoinRoom, JoinPayload{ProjectID: "p1", Username: "alice"})
	waitForMembers(t, rl, "p1", 1)
	b := dial(t, url)
	sendEvent(t, b, EventJoinRoom, JoinPayload{ProjectID: "p1", Username: "bob"})
	waitForMembers(t, rl, "p1", 2)
	readEvent(t, a) // peer-joined bob

	require.NoError(t, b.Close())

	env := readEvent(t, a)
	assert.Equal(t, EventPeerLeft, env.Event)
	var left PeerLeft
	require.NoError(t, json.Unmarshal(env.Data, &left))
	assert.Equal(t, "bob", left.Username)
}

func TestUnknownEventIsDropped(t *testing.T) {
	rl, url := newTestRelay(t, Config{})

	a := dial(t, url)
	sendEvent(t, a, EventJoinRoom, JoinPayload{ProjectID: "p1", Username: "alice"})
	waitForMembers(t, rl, "p1", 1)

	sendEvent(t, a, "no-such-event", map[string]string{"x": "y"})

	// the unknown event produced nothing and the connection still lives:
	// the next frame received is the chat echo, not an error
	sendEvent(t, a, EventChat, ChatPayload{ProjectID: "p1", Username: "alice", Message: "still here"})
	env := readEvent(t, a)
	assert.Equal(t, EventChatReceived, env.Event)
}

// The end-to-end scenario: alice and bob share project P1.
func TestTwoParticipantScenario(t *testing.T) {
	fs := &fakeStore{projects: map[string]*store.Project{
		"P1": {ID: "P1", Code: "print(1)"},
	}}
	rl, url := newTestRelay(t, Config{Store: fs})

	a := dial(t, url)
	sendEvent(t, a, EventJoinRoom, JoinPayload{ProjectID: "P1", Username: "alice"})
	env := readEvent(t, a)
	require.Equal(t, EventBootstrapCode, env.Event)
	var boot BootstrapCode
	require.NoError(t, json.Unmarshal(env.Data, &boot))
	assert.Equal(t, "print(1)", boot.Code)

	b := dial(t, url)
	sendEvent(t, b, EventJoinRoom, JoinPayload{ProjectID: "P1", Username: "bob"})
	env = readEvent(t, b)
	require.Equal(t, EventBootstrapCode, env.Event)

	env = readEvent(t, a)
	require.Equal(t, EventPeerJoined, env.Event)
	var joined PeerJoined
	require.NoError(t, json.Unmarshal(env.Data, &joined))
	assert.Equal(t, "bob", joined.Username)

	sendEvent(t, a, EventEdit, EditPayload{ProjectID: "P1", Code: "print(2)"})
	env = readEvent(t, b)
	require.Equal(t, EventCodeUpdate, env.Event)
	var update CodeUpdate
	require.NoError(t, json.Unmarshal(env.Data, &update))
	assert.Equal(t, "print(2)", update.Code)

	sendEvent(t, b, EventChat, ChatPayload{ProjectID: "P1", Username: "bob", Message: "hi"})
	envA := readEvent(t, a)
	envB := readEvent(t, b)
	require.Equal(t, EventChatReceived, envA.Event)
	require.Equal(t, EventChatReceived, envB.Event)

	var chatA, chatB ChatReceived
	require.NoError(t, json.Unmarshal(envA.Data, &chatA))
	require.NoError(t, json.Unmarshal(envB.Data, &chatB))
	assert.Equal(t, "bob", chatA.Username)
	assert.Equal(t, "hi", chatA.Message)
	assert.Equal(t, chatA.Time, chatB.Time)

	waitForMembers(t, rl, "P1", 2)
}
