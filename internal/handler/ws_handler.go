package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/prepforge/quizgate/internal/logger"
	"github.com/prepforge/quizgate/internal/middleware"
	"github.com/prepforge/quizgate/internal/quiz"
	"github.com/prepforge/quizgate/internal/registry"
	ws "github.com/prepforge/quizgate/internal/wsproto"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams live session state and accepts quiz actions over one
// WebSocket, so a connected client needs no polling during the countdown
// and the running clock.
type WSHandler struct {
	sessions *registry.Registry
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessions *registry.Registry, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		log:      logger.Component(log, "ws_handler"),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/quiz/sessions/:session_id/stream
// Upgrades to WebSocket for snapshot streaming and live quiz actions.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	session, err := h.sessions.Get(sessionID, claims.Subject)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	log := h.log.With().Str("session_id", sessionID.String()).Logger()
	log.Debug().Msg("WebSocket stream opened")

	snapshots, unsubscribe := session.Subscribe()
	defer unsubscribe()

	// Single writer: gorilla connections allow one concurrent writer, so
	// the reader hands replies to this goroutine instead of writing to the
	// connection itself. The subscription buffer already carries an opening
	// snapshot, no separate first write is needed.
	replies := make(chan interface{}, 8)
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		scoredSent := false
		for {
			select {
			case snap, ok := <-snapshots:
				if !ok {
					return
				}
				if err := ws.WriteTyped(conn, ws.SnapshotEvent{Event: ws.EventSnapshot, Snapshot: snap}); err != nil {
					return
				}
				if snap.State == quiz.StateScored && !scoredSent {
					scoredSent = true
					if payload, ok := session.Score(); ok {
						_ = ws.WriteTyped(conn, ws.ScoredEvent{Event: ws.EventScored, TotalScore: payload.Score.TotalScore})
					}
				}
			case msg := <-replies:
				if err := ws.WriteTyped(conn, msg); err != nil {
					return
				}
			}
		}
	}()

	reply := func(msg interface{}) {
		select {
		case replies <- msg:
		case <-writeDone:
		}
	}

	// Reader: apply actions until the peer disconnects.
	for {
		var raw json.RawMessage
		if err := ws.ReadJSON(conn, &raw); err != nil {
			log.Debug().Msg("WebSocket stream closed")
			return
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			reply(ws.ErrorResponse{Event: ws.EventError, Error: "malformed message"})
			continue
		}

		if err := h.apply(c, session, envelope.Action, raw, reply); err != nil {
			reply(ws.ErrorResponse{Event: ws.EventError, Error: err.Error()})
		}

		select {
		case <-writeDone:
			return
		default:
		}
	}
}

func (h *WSHandler) apply(c *gin.Context, session *quiz.Session, action ws.Action, raw json.RawMessage, reply func(interface{})) error {
	ctx := c.Request.Context()

	switch action {
	case ws.ActionPing:
		reply(ws.PongResponse{Event: ws.EventPong})
		return nil
	case ws.ActionSelect:
		var req ws.SelectRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return err
		}
		return session.Select(req.Option)
	case ws.ActionNext:
		return session.Next(ctx)
	case ws.ActionPrevious:
		return session.Previous()
	case ws.ActionSkip:
		return session.Skip(ctx)
	case ws.ActionJump:
		var req ws.JumpRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return err
		}
		return session.Jump(req.Position)
	case ws.ActionSubmit:
		return session.Submit(ctx)
	default:
		return errors.New("unknown action")
	}
}
