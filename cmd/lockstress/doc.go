// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package lockstress provides a load generator for exercising a running
locktower coordinator.

# Overview

lockstress opens one client session per holder and drives each through a
loop of acquire, hold, release against a shared pool of resource names.
Read and write acquires are mixed by a configurable ratio, so the run
produces real contention: readers sharing, writers excluding, and queued
requests timing out under pressure. Results are reported as locks granted
per second plus the average queue wait the coordinator imposed.

# Command Line Options

	-server     Coordinator base URL (default http://127.0.0.1:7700)
	-token      Bearer token, when the coordinator requires one
	-c          Number of concurrent holders (default 10)
	-n          Total acquire/release cycles across all holders (default 1000)
	-resources  Number of distinct resources to contend on (default 8)
	-write      Fraction of acquires that take the write lock (default 0.2)
	-hold       How long each granted lock is held (default 5ms)
	-progress   Progress report interval, 0 disables (default 5s)

# Usage Examples

Hammer a local coordinator with the defaults:

	lockstress

Heavy write contention on two resources:

	lockstress -c 50 -n 20000 -resources 2 -write 0.8 -hold 1ms

The process exits non-zero when any call failed for a reason other than a
lock timeout or a cancelled wait, so it slots into CI smoke jobs.
*/
package main
