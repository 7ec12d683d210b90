package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/odvcencio/reelview/pkg/bus"
	"github.com/odvcencio/reelview/pkg/fanout"
	"github.com/odvcencio/reelview/pkg/logging"
	"github.com/odvcencio/reelview/pkg/movie"
)

// StreamEvent is the wire format pushed to WebSocket clients.
type StreamEvent struct {
	Type      string         `json:"type"`
	SessionID string         `json:"session_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// WebSocketMessage is a control message from a WebSocket client.
type WebSocketMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
}

// handleWebSocket is the live event channel. Clients join sessions
// explicitly; each join holds one bus subscription, and events flow only
// for joined sessions. Artifacts captured before the join are not
// replayed.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.eventBus == nil {
		writeError(w, movie.NewError(movie.CodeInternal, "event bus not configured"))
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "connection closed")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events := make(chan StreamEvent, 128)
	subs := make(map[string]bus.Subscription)
	defer func() {
		for _, sub := range subs {
			_ = sub.Unsubscribe()
		}
	}()

	join := func(sessionID string) error {
		if _, ok := subs[sessionID]; ok {
			return nil
		}
		sub, err := s.eventBus.Subscribe(ctx, fanout.SubjectSession(sessionID), func(msg *bus.Message) {
			event := StreamEvent{
				Type:      msg.Subject,
				SessionID: sessionID,
				Timestamp: time.Now(),
			}
			var payload map[string]any
			if json.Unmarshal(msg.Data, &payload) == nil {
				event.Data = payload
				if t, ok := payload["type"].(string); ok {
					event.Type = t
				}
			}
			select {
			case events <- event:
			default:
				// Drop if channel full
			}
		})
		if err != nil {
			return err
		}
		subs[sessionID] = sub
		return nil
	}

	leave := func(sessionID string) {
		if sub, ok := subs[sessionID]; ok {
			_ = sub.Unsubscribe()
			delete(subs, sessionID)
		}
	}

	// Control messages are handled inline on a channel so the subscription
	// map stays single-goroutine.
	incoming := make(chan WebSocketMessage, 16)
	go func() {
		for {
			var msg WebSocketMessage
			if err := wsjson.Read(ctx, conn, &msg); err != nil {
				cancel()
				return
			}
			select {
			case incoming <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := wsjson.Write(ctx, conn, StreamEvent{Type: "connected", Timestamp: time.Now()}); err != nil {
		return
	}

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-incoming:
			switch msg.Type {
			case "join_session":
				if err := join(msg.SessionID); err != nil {
					s.logger.Warn(logging.CategoryAPI, "ws_join_failed", msg.SessionID, err.Error(), nil)
					continue
				}
				if err := wsjson.Write(ctx, conn, StreamEvent{
					Type:      "joined",
					SessionID: msg.SessionID,
					Timestamp: time.Now(),
				}); err != nil {
					return
				}
			case "leave_session":
				leave(msg.SessionID)
				if err := wsjson.Write(ctx, conn, StreamEvent{
					Type:      "left",
					SessionID: msg.SessionID,
					Timestamp: time.Now(),
				}); err != nil {
					return
				}
			case "ping":
				if err := wsjson.Write(ctx, conn, StreamEvent{Type: "pong", Timestamp: time.Now()}); err != nil {
					return
				}
			}
		case <-ticker.C:
			if err := wsjson.Write(ctx, conn, StreamEvent{Type: "heartbeat", Timestamp: time.Now()}); err != nil {
				return
			}
		case event := <-events:
			if err := wsjson.Write(ctx, conn, event); err != nil {
				return
			}
		}
	}
}
