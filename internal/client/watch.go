// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package client

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// watchBuffer is the channel depth for the event watcher. The dashboard
// drains quickly; the buffer only absorbs redraw hiccups.
const watchBuffer = 64

// WatchEvents connects to the coordinator's live audit stream. The recent
// log replays first, then lines arrive as lock activity happens. The channel
// closes when the context ends, the server shuts down, or the connection
// drops; callers needing a stream again should reconnect.
func (c *Client) WatchEvents(ctx context.Context) (<-chan string, error) {
	wsURL := toWebSocketURL(c.config.BaseURL) + "/v1/events/ws"

	header := http.Header{}
	if c.config.AuthToken != "" {
		header.Set("Authorization", "Bearer "+c.config.AuthToken)
	}
	if c.config.Session != "" {
		header.Set("X-Session-Id", c.config.Session)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, ErrUnauthorized
		}
		return nil, &ClientError{Type: ErrTypeServerDown, Message: "event stream dial failed", Cause: err}
	}

	lines := make(chan string, watchBuffer)
	done := make(chan struct{})

	// Closing the connection is the only way to unblock ReadMessage.
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	go func() {
		defer close(lines)
		defer close(done)
		defer conn.Close()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			select {
			case lines <- string(msg):
			case <-ctx.Done():
				return
			}
		}
	}()

	return lines, nil
}

// toWebSocketURL rewrites an http(s) base URL onto the ws scheme.
func toWebSocketURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return "ws://" + base
	}
}
