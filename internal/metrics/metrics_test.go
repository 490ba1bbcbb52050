// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jeranaias/locktower/internal/locks"
)

func TestRegisterAndGather(t *testing.T) {
	mgr := locks.NewManager(locks.Config{Events: Hooks()}, nil)
	reg := prometheus.NewRegistry()
	Register(reg, mgr)

	if err := mgr.AcquireWrite(context.Background(), "orders", "s1"); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	byName := make(map[string]float64)
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				byName[mf.GetName()] += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				byName[mf.GetName()] += m.GetGauge().GetValue()
			}
		}
	}

	if byName["locktower_requests_queued_total"] != 1 {
		t.Errorf("queued_total = %v", byName["locktower_requests_queued_total"])
	}
	if byName["locktower_locks_granted_total"] != 1 {
		t.Errorf("granted_total = %v", byName["locktower_locks_granted_total"])
	}
	if byName["locktower_writers_held"] != 1 {
		t.Errorf("writers_held gauge = %v", byName["locktower_writers_held"])
	}
	if byName["locktower_resources"] != 1 {
		t.Errorf("resources gauge = %v", byName["locktower_resources"])
	}

	mgr.Release("orders", "s1")

	mfs, err = reg.Gather()
	if err != nil {
		t.Fatalf("gather after release: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == "locktower_writers_held" {
			if v := mf.GetMetric()[0].GetGauge().GetValue(); v != 0 {
				t.Errorf("writers_held after release = %v", v)
			}
		}
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	mgr := locks.NewManager(locks.Config{}, nil)
	reg := prometheus.NewRegistry()
	Register(reg, mgr)
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	Register(reg, mgr)
}
