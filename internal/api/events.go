package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"stemsplit/internal/logging"
)

const (
	eventBatchSize   = 64
	eventWriteWindow = 10 * time.Second
)

// handleEvents upgrades to a websocket and streams status events with a
// sequence greater than the optional since query parameter.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	since, _ := strconv.ParseUint(r.URL.Query().Get("since"), 10, 64)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(s.streams, cancel)
	defer stop()

	// The client never sends data; reading surfaces the close frame.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	hub := s.ctrl.Hub()
	for {
		events, next, err := hub.Fetch(ctx, since, eventBatchSize, true)
		if err != nil {
			if s.streams.Err() != nil {
				closing := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
				_ = conn.WriteControl(websocket.CloseMessage, closing, time.Now().Add(time.Second))
				return
			}
			if !errors.Is(err, context.Canceled) {
				s.logger.Debug("event stream ended", logging.Error(err))
			}
			return
		}
		for _, evt := range events {
			_ = conn.SetWriteDeadline(time.Now().Add(eventWriteWindow))
			if err := conn.WriteJSON(evt); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.logger.Debug("event write failed", logging.Error(err))
				}
				return
			}
		}
		since = next
	}
}
