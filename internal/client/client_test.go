// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package client

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/locktower/internal/audit"
	"github.com/jeranaias/locktower/internal/config"
	"github.com/jeranaias/locktower/internal/locks"
	"github.com/jeranaias/locktower/internal/server"
)

// =============================================================================
// HELPERS
// =============================================================================

// newTestStack spins up a real coordinator over httptest and a client
// pointed at it.
func newTestStack(t *testing.T, authToken string) (*Client, *locks.Manager) {
	t.Helper()

	rec := audit.NewRecorder(audit.NewRing(128), nil)
	t.Cleanup(func() { rec.Close() })

	mgr := locks.NewManager(locks.Config{Timeout: 200 * time.Millisecond}, rec)

	cfg := config.Default()
	cfg.Server.AuthToken = authToken
	srv := server.New(cfg, mgr, rec)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	c := New(&ClientConfig{
		BaseURL:   ts.URL,
		AuthToken: authToken,
		Session:   "sess_test",
	})
	return c, mgr
}

// =============================================================================
// CONFIGURATION TESTS
// =============================================================================

func TestNewFillsDefaults(t *testing.T) {
	c := New(nil)

	if c.BaseURL() != "http://127.0.0.1:7700" {
		t.Errorf("BaseURL = %q, want default", c.BaseURL())
	}
	if !strings.HasPrefix(c.Session(), "sess_") {
		t.Errorf("Session = %q, want a minted sess_ id", c.Session())
	}
	if c.config.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", c.config.Timeout)
	}
}

func TestToWebSocketURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://127.0.0.1:7700", "ws://127.0.0.1:7700"},
		{"https://locks.internal", "wss://locks.internal"},
		{"127.0.0.1:7700", "ws://127.0.0.1:7700"},
	}
	for _, tt := range tests {
		if got := toWebSocketURL(tt.in); got != tt.want {
			t.Errorf("toWebSocketURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// =============================================================================
// LOCK FLOW TESTS
// =============================================================================

func TestAcquireAndRelease(t *testing.T) {
	c, mgr := newTestStack(t, "")
	ctx := context.Background()

	res, err := c.AcquireWrite(ctx, "orders")
	if err != nil {
		t.Fatalf("AcquireWrite failed: %v", err)
	}
	if !res.Granted || res.Mode != "write" || res.Session != "sess_test" {
		t.Errorf("AcquireWrite result = %+v", res)
	}
	if stats := mgr.Stats(); stats.Writers != 1 {
		t.Errorf("Writers = %d, want 1", stats.Writers)
	}

	released, err := c.Release(ctx, "orders")
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if !released {
		t.Error("first Release = false, want true")
	}

	released, err = c.Release(ctx, "orders")
	if err != nil {
		t.Fatalf("second Release failed: %v", err)
	}
	if released {
		t.Error("second Release = true, want false")
	}
}

func TestAcquireTimesOut(t *testing.T) {
	c, mgr := newTestStack(t, "")
	ctx := context.Background()

	if err := mgr.AcquireWrite(ctx, "orders", "sess_holder"); err != nil {
		t.Fatalf("holder AcquireWrite failed: %v", err)
	}

	_, err := c.AcquireRead(ctx, "orders")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestAcquireInvalidResource(t *testing.T) {
	c, _ := newTestStack(t, "")

	_, err := c.AcquireRead(context.Background(), "")
	var ce *ClientError
	if !errors.As(err, &ce) || ce.Type != ErrTypeInvalidRequest {
		t.Fatalf("err = %v, want an invalid request error", err)
	}
}

func TestSimulateReturnsImmediately(t *testing.T) {
	c, _ := newTestStack(t, "")

	start := time.Now()
	res, err := c.SimulateRead(context.Background(), "orders", 80*time.Millisecond)
	if err != nil {
		t.Fatalf("SimulateRead failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("simulate took %v, want an immediate response", elapsed)
	}
	if !strings.HasPrefix(res.Session, "sim_") {
		t.Errorf("Session = %q, want sim_ prefix", res.Session)
	}
	if res.HoldMS != 80 {
		t.Errorf("HoldMS = %d, want 80", res.HoldMS)
	}
}

func TestUnlockAndClear(t *testing.T) {
	c, mgr := newTestStack(t, "")
	ctx := context.Background()

	if _, err := c.AcquireWrite(ctx, "orders"); err != nil {
		t.Fatalf("AcquireWrite failed: %v", err)
	}
	if _, err := c.SimulateRead(ctx, "billing", time.Second); err != nil {
		t.Fatalf("SimulateRead failed: %v", err)
	}

	if err := c.Unlock(ctx, "orders"); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if stats := mgr.Stats(); stats.Writers != 0 {
		t.Errorf("Writers = %d after unlock, want 0", stats.Writers)
	}

	cleared, err := c.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if cleared != 1 {
		t.Errorf("Clear = %d, want 1 (the simulated reader)", cleared)
	}
}

// =============================================================================
// SNAPSHOT TESTS
// =============================================================================

func TestHealthStatusQueueAudit(t *testing.T) {
	c, _ := newTestStack(t, "")
	ctx := context.Background()

	h, err := c.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if h.Status != "ok" || h.Version == "" {
		t.Errorf("Health = %+v", h)
	}

	if _, err := c.AcquireRead(ctx, "orders"); err != nil {
		t.Fatalf("AcquireRead failed: %v", err)
	}

	st, err := c.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if st.Stats.Readers != 1 || len(st.Active) != 1 {
		t.Errorf("Status = %+v, want one reader", st)
	}
	if len(st.Recent) == 0 {
		t.Error("Status.Recent is empty, want the acquire's audit lines")
	}

	q, err := c.Queue(ctx)
	if err != nil {
		t.Fatalf("Queue failed: %v", err)
	}
	if q.Count != 0 {
		t.Errorf("Queue.Count = %d, want 0", q.Count)
	}

	tail, err := c.Audit(ctx, 2)
	if err != nil {
		t.Fatalf("Audit failed: %v", err)
	}
	if tail.Count != 2 || tail.Source != "ring" {
		t.Errorf("Audit = %+v, want 2 lines from the ring", tail)
	}
}

// =============================================================================
// FAILURE MODE TESTS
// =============================================================================

func TestServerDownMapsToSentinel(t *testing.T) {
	c := New(&ClientConfig{BaseURL: "http://127.0.0.1:1"})

	_, err := c.Health(context.Background())
	if !errors.Is(err, ErrServerDown) {
		t.Fatalf("err = %v, want ErrServerDown", err)
	}
}

func TestUnauthorizedMapsToSentinel(t *testing.T) {
	c, _ := newTestStack(t, "secret-token")

	// Correct token works.
	if _, err := c.Health(context.Background()); err != nil {
		t.Fatalf("authorized Health failed: %v", err)
	}

	// A client without the token is rejected.
	bad := New(&ClientConfig{BaseURL: c.BaseURL()})
	_, err := bad.Health(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

// =============================================================================
// EVENT STREAM TESTS
// =============================================================================

func TestWatchEvents(t *testing.T) {
	c, mgr := newTestStack(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Activity recorded before the watch replays first.
	if err := mgr.AcquireRead(context.Background(), "orders", "sess_a"); err != nil {
		t.Fatalf("AcquireRead failed: %v", err)
	}

	lines, err := c.WatchEvents(ctx)
	if err != nil {
		t.Fatalf("WatchEvents failed: %v", err)
	}

	waitForLine := func(want string) {
		t.Helper()
		deadline := time.After(3 * time.Second)
		for {
			select {
			case line, open := <-lines:
				if !open {
					t.Fatalf("stream closed before %q arrived", want)
				}
				if strings.Contains(line, want) {
					return
				}
			case <-deadline:
				t.Fatalf("no %q line within deadline", want)
			}
		}
	}

	waitForLine("GRANTED")

	// Live activity follows.
	mgr.Release("orders", "sess_a")
	waitForLine("RELEASED")

	// Cancelling the context tears the stream down.
	cancel()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case _, open := <-lines:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("stream did not close after cancel")
		}
	}
}
