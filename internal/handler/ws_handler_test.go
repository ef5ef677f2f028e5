package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsEvent is the union of every server-pushed message shape.
type wsEvent struct {
	Event      string                 `json:"event"`
	Snapshot   map[string]interface{} `json:"snapshot"`
	TotalScore float64                `json:"total_score"`
	Error      string                 `json:"error"`
}

func startPracticeSession(t *testing.T, env *testEnv, bearer string) string {
	t.Helper()
	w, envelope := env.do(t, bearer, http.MethodPost, "/api/v1/quiz/practice/start", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return data(envelope)["session_id"].(string)
}

// streamURL serves the router over a real listener and returns the ws://
// address for a session stream, authenticating via the query-token
// fallback the way a browser client would.
func streamURL(t *testing.T, env *testEnv, bearer, sessionID string) string {
	t.Helper()
	srv := httptest.NewServer(env.engine)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") +
		"/ws/v1/quiz/sessions/" + sessionID + "/stream?token=" + bearer
}

func dialStream(t *testing.T, env *testEnv, bearer, sessionID string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(streamURL(t, env, bearer, sessionID), nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendAction(t *testing.T, conn *websocket.Conn, msg map[string]interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

// awaitEvent reads messages until one satisfies match, failing on timeout.
// Interleaved tick snapshots are skipped.
func awaitEvent(t *testing.T, conn *websocket.Conn, match func(wsEvent) bool) wsEvent {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var ev wsEvent
		require.NoError(t, conn.ReadJSON(&ev))
		if match(ev) {
			return ev
		}
	}
	t.Fatal("expected event not received")
	return wsEvent{}
}

func TestSessionStreamDrivesQuizToScore(t *testing.T) {
	env := newTestEnv(t)
	bearer := studentToken(t)
	sessionID := startPracticeSession(t, env, bearer)
	conn := dialStream(t, env, bearer, sessionID)

	// The subscription opens with an immediate snapshot.
	open := awaitEvent(t, conn, func(ev wsEvent) bool { return ev.Event == "snapshot" })
	assert.Equal(t, "ACTIVE", open.Snapshot["state"])
	assert.EqualValues(t, 3, open.Snapshot["question_count"])

	sendAction(t, conn, map[string]interface{}{"action": "select", "option": 2})
	awaitEvent(t, conn, func(ev wsEvent) bool {
		return ev.Event == "snapshot" && ev.Snapshot["selected_count"] == float64(1)
	})

	sendAction(t, conn, map[string]interface{}{"action": "next"})
	awaitEvent(t, conn, func(ev wsEvent) bool {
		return ev.Event == "snapshot" && ev.Snapshot["position"] == float64(1)
	})

	sendAction(t, conn, map[string]interface{}{"action": "skip"})
	awaitEvent(t, conn, func(ev wsEvent) bool {
		return ev.Event == "snapshot" && ev.Snapshot["position"] == float64(2)
	})

	sendAction(t, conn, map[string]interface{}{"action": "select", "option": 1})
	sendAction(t, conn, map[string]interface{}{"action": "submit"})

	scored := awaitEvent(t, conn, func(ev wsEvent) bool { return ev.Event == "scored" })
	assert.InDelta(t, 33.3, scored.TotalScore, 0.001)

	assert.Equal(t, []map[string]int{
		{"question_id": 101, "answer_index": 2},
		{"question_id": 102, "answer_index": 0},
		{"question_id": 103, "answer_index": 1},
	}, env.fake.deliveries())
}

func TestSessionStreamRejectsBadActions(t *testing.T) {
	env := newTestEnv(t)
	bearer := studentToken(t)
	sessionID := startPracticeSession(t, env, bearer)
	conn := dialStream(t, env, bearer, sessionID)

	sendAction(t, conn, map[string]interface{}{"action": "teleport"})
	ev := awaitEvent(t, conn, func(ev wsEvent) bool { return ev.Event == "error" })
	assert.Equal(t, "unknown action", ev.Error)

	// Advancing past an unanswered question is refused but the stream
	// stays usable.
	sendAction(t, conn, map[string]interface{}{"action": "next"})
	awaitEvent(t, conn, func(ev wsEvent) bool { return ev.Event == "error" })

	sendAction(t, conn, map[string]interface{}{"action": "ping"})
	awaitEvent(t, conn, func(ev wsEvent) bool { return ev.Event == "pong" })
}

func TestSessionStreamInterleavedPingsAndSelects(t *testing.T) {
	env := newTestEnv(t)
	bearer := studentToken(t)
	sessionID := startPracticeSession(t, env, bearer)
	conn := dialStream(t, env, bearer, sessionID)

	// Selects publish snapshots from the session's side while pings earn
	// pongs from the reader's side; both must come out of the single
	// connection writer intact.
	for i := 0; i < 50; i++ {
		sendAction(t, conn, map[string]interface{}{"action": "ping"})
		sendAction(t, conn, map[string]interface{}{"action": "select", "option": 1 + i%2})
		awaitEvent(t, conn, func(ev wsEvent) bool { return ev.Event == "pong" })
	}
}

func TestSessionStreamForeignSessionRejected(t *testing.T) {
	env := newTestEnv(t)
	bearer := studentToken(t)
	sessionID := startPracticeSession(t, env, bearer)

	otherClaims := jwt.MapClaims{
		"sub": "5110", "role": 1, "faculty": 2,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	other, err := jwt.NewWithClaims(jwt.SigningMethodHS256, otherClaims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	conn, resp, err := websocket.DefaultDialer.Dial(streamURL(t, env, other, sessionID), nil)
	require.Error(t, err)
	require.Nil(t, conn)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
