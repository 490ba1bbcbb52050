// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds the small helpers shared across locktower packages:
// crash-safe file writes for the config layer and width-aware string
// truncation for the dashboard.
package util
