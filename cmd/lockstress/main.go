// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main provides lockstress, a load generator for a running
// locktower coordinator.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/jeranaias/locktower/internal/client"
)

var (
	serverURL   = flag.String("server", "http://127.0.0.1:7700", "Coordinator base URL")
	token       = flag.String("token", "", "Bearer token, when the coordinator requires one")
	concurrency = flag.Int("c", 10, "Number of concurrent holders")
	requests    = flag.Int("n", 1000, "Total acquire/release cycles across all holders")
	resources   = flag.Int("resources", 8, "Number of distinct resources to contend on")
	writeRatio  = flag.Float64("write", 0.2, "Fraction of acquires that take the write lock")
	hold        = flag.Duration("hold", 5*time.Millisecond, "How long each granted lock is held")
	progress    = flag.Duration("progress", 5*time.Second, "Progress report interval (0 disables)")
)

// counters aggregates results across all holders.
type counters struct {
	grants    atomic.Int64
	releases  atomic.Int64
	timeouts  atomic.Int64
	cancelled atomic.Int64
	errors    atomic.Int64
	waitedMS  atomic.Int64
}

func main() {
	flag.Parse()

	if *concurrency < 1 || *requests < 1 || *resources < 1 {
		log.Fatalf("c, n and resources must all be positive")
	}
	if *writeRatio < 0 || *writeRatio > 1 {
		log.Fatalf("write ratio must be between 0 and 1, got %v", *writeRatio)
	}

	log.Printf("Starting stress run: %d cycles, %d holders, %d resources, %.0f%% writes, hold %v",
		*requests, *concurrency, *resources, *writeRatio*100, *hold)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var stats counters
	var wg sync.WaitGroup

	start := time.Now()
	cyclesPerHolder := *requests / *concurrency

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runHolder(ctx, id, cyclesPerHolder, &stats)
		}(i)
	}

	if *progress > 0 {
		ticker := time.NewTicker(*progress)
		defer ticker.Stop()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					log.Printf("progress: granted=%d timeouts=%d cancelled=%d errors=%d",
						stats.grants.Load(), stats.timeouts.Load(),
						stats.cancelled.Load(), stats.errors.Load())
				}
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	grants := stats.grants.Load()
	throughput := float64(grants) / elapsed.Seconds()
	log.Printf("Finished in %v", elapsed)
	log.Printf("Granted: %d (%.2f locks/s)", grants, throughput)
	if grants > 0 {
		log.Printf("Avg queue wait: %.2f ms", float64(stats.waitedMS.Load())/float64(grants))
	}
	log.Printf("Released: %d", stats.releases.Load())
	if n := stats.timeouts.Load(); n > 0 {
		log.Printf("Timeouts: %d", n)
	}
	if n := stats.cancelled.Load(); n > 0 {
		log.Printf("Cancelled: %d", n)
	}
	if n := stats.errors.Load(); n > 0 {
		log.Printf("Errors: %d", n)
		os.Exit(1)
	}
}

// runHolder drives one session through its share of acquire/release cycles.
func runHolder(ctx context.Context, id, cycles int, stats *counters) {
	// Each holder is its own session; the client mints a fresh session id
	// when none is configured.
	cc := client.DefaultConfig()
	cc.BaseURL = *serverURL
	cc.AuthToken = *token
	c := client.New(cc)

	r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))

	for i := 0; i < cycles; i++ {
		if ctx.Err() != nil {
			return
		}

		resource := pickResource(r)

		var res *client.AcquireResult
		var err error
		if r.Float64() < *writeRatio {
			res, err = c.AcquireWrite(ctx, resource)
		} else {
			res, err = c.AcquireRead(ctx, resource)
		}
		if err != nil {
			classify(err, stats)
			continue
		}

		stats.grants.Add(1)
		stats.waitedMS.Add(res.WaitedMS)

		select {
		case <-ctx.Done():
		case <-time.After(*hold):
		}

		// Release even on shutdown so the run leaves no locks behind.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		released, err := c.Release(releaseCtx, resource)
		cancel()
		if err != nil {
			classify(err, stats)
			continue
		}
		if released {
			stats.releases.Add(1)
		}
	}
}

func pickResource(r *rand.Rand) string {
	names := [...]string{
		"orders", "billing", "inventory", "users", "sessions",
		"reports", "exports", "search-index", "cache-warm", "migrations",
	}
	n := *resources
	if n > len(names) {
		n = len(names)
	}
	return names[r.Intn(n)]
}

// classify buckets a failed call into the result counters.
func classify(err error, stats *counters) {
	var ce *client.ClientError
	if errors.As(err, &ce) {
		switch ce.Type {
		case client.ErrTypeTimeout:
			stats.timeouts.Add(1)
			return
		case client.ErrTypeCancelled:
			stats.cancelled.Add(1)
			return
		}
	}
	if errors.Is(err, context.Canceled) {
		stats.cancelled.Add(1)
		return
	}
	stats.errors.Add(1)
}
