// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ============================================================================
// EVENT HUB
// ============================================================================

const (
	// subscriberBuffer is the per-subscriber channel depth. A subscriber
	// that falls this far behind starts losing lines rather than blocking
	// the audit path.
	subscriberBuffer = 64

	// heartbeatInterval keeps idle stream connections from being reaped
	// by intermediaries.
	heartbeatInterval = 15 * time.Second

	// wsWriteTimeout bounds a single WebSocket write.
	wsWriteTimeout = 10 * time.Second
)

// eventHub fans audit lines out to stream subscribers. Publishing never
// blocks; slow subscribers drop lines.
type eventHub struct {
	mu     sync.Mutex
	subs   map[chan string]struct{}
	closed bool
}

func newEventHub() *eventHub {
	return &eventHub{
		subs: make(map[chan string]struct{}),
	}
}

// subscribe registers a new subscriber channel. After shutdown the returned
// channel is already closed.
func (h *eventHub) subscribe() chan string {
	ch := make(chan string, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(ch)
		return ch
	}
	h.subs[ch] = struct{}{}
	return ch
}

// unsubscribe removes and closes a subscriber channel. Safe to call after
// shutdown already closed it.
func (h *eventHub) unsubscribe(ch chan string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

// publish sends a line to every subscriber without blocking.
func (h *eventHub) publish(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	for ch := range h.subs {
		select {
		case ch <- line:
		default:
		}
	}
}

// shutdown closes every subscriber so stream handlers return.
func (h *eventHub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		close(ch)
	}
	h.subs = make(map[chan string]struct{})
}

// ============================================================================
// SERVER-SENT EVENTS
// ============================================================================

// handleEvents handles GET /v1/events. The ring is replayed oldest-first,
// then the stream follows live audit activity until the client disconnects
// or the server shuts down.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Subscribe before snapshotting the ring so nothing recorded during
	// the replay is lost; a line landing in both may repeat once.
	sub := s.hub.subscribe()
	defer s.hub.unsubscribe(sub)

	recent := s.rec.Recent(0)
	for i := len(recent) - 1; i >= 0; i-- {
		fmt.Fprintf(w, "data: %s\n\n", recent[i])
	}
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case line, open := <-sub:
			if !open {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", line)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

// ============================================================================
// WEBSOCKET
// ============================================================================

var upgrader = websocket.Upgrader{}

// handleEventsWS handles GET /v1/events/ws, serving the same line stream as
// /v1/events over a WebSocket.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		log.Printf("WS_UPGRADE_FAILED | ip=%s error=%v", GetClientIP(r), err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Drain reads so close frames are processed; any read error means the
	// peer is gone.
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	sub := s.hub.subscribe()
	defer s.hub.unsubscribe(sub)

	recent := s.rec.Recent(0)
	for i := len(recent) - 1; i >= 0; i-- {
		if err := s.writeWS(conn, websocket.TextMessage, []byte(recent[i])); err != nil {
			return
		}
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case line, open := <-sub:
			if !open {
				s.writeWS(conn, websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := s.writeWS(conn, websocket.TextMessage, []byte(line)); err != nil {
				return
			}
		case <-heartbeat.C:
			if err := s.writeWS(conn, websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// writeWS writes one WebSocket message under a deadline.
func (s *Server) writeWS(conn *websocket.Conn, messageType int, data []byte) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteMessage(messageType, data)
}
