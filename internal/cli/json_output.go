// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - JSON output support for scripting and log shipping.
//
// Every command shares one envelope so callers can check .success and
// .error uniformly before reaching into .data.
package cli

import (
	"encoding/json"
	"os"
	"time"

	"github.com/jeranaias/locktower/internal/client"
	"github.com/jeranaias/locktower/internal/locks"
)

// JSONResponse is the standardized response format for all CLI commands.
type JSONResponse struct {
	// Success indicates whether the command completed successfully
	Success bool `json:"success"`

	// Data contains the command-specific response data
	Data interface{} `json:"data"`

	// Error contains the error message if Success is false, null otherwise
	Error *string `json:"error"`

	// Timestamp is the ISO8601 timestamp when the response was generated
	Timestamp string `json:"timestamp"`

	// Command is the command that was executed
	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a new successful JSON response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Error:     nil,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a new error JSON response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	errStr := err.Error()
	return &JSONResponse{
		Success:   false,
		Data:      nil,
		Error:     &errStr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print outputs the JSON response to stdout.
func (r *JSONResponse) Print() error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// PrintCompact outputs the JSON response without indentation.
// Useful for piping to other tools or log aggregation.
func (r *JSONResponse) PrintCompact() error {
	return json.NewEncoder(os.Stdout).Encode(r)
}

// =============================================================================
// COMMAND-SPECIFIC DATA STRUCTURES
// =============================================================================

// ServerInfo describes the coordinator a command talked to.
type ServerInfo struct {
	URL           string `json:"url"`
	Status        string `json:"status"`
	Version       string `json:"version,omitempty"`
	UptimeSeconds int64  `json:"uptime_seconds,omitempty"`
	AuditDurable  bool   `json:"audit_durable"`
	AuditDropped  int64  `json:"audit_dropped"`
}

// StatusData is the payload of "status --json".
type StatusData struct {
	Server ServerInfo       `json:"server"`
	Stats  locks.Stats      `json:"stats"`
	Active []locks.HeldLock `json:"active"`
	Recent []string         `json:"recent"`
}

// QueueData is the payload of "queue --json".
type QueueData struct {
	Pending []locks.QueuedRequest `json:"pending"`
	Count   int                   `json:"count"`
}

// AuditData is the payload of "audit --json".
type AuditData struct {
	Lines  []string `json:"lines"`
	Count  int      `json:"count"`
	Source string   `json:"source"`
}

// SimulateData is the payload of "simulate --json".
type SimulateData struct {
	Started []client.SimulateResult `json:"started"`
}

// UnlockData is the payload of "unlock --json".
type UnlockData struct {
	Resource string `json:"resource"`
}

// ClearData is the payload of "clear --json".
type ClearData struct {
	Cleared int `json:"cleared"`
}

// VersionData is the payload of "version --json".
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}

// ConfigKeyData is the payload of "config get --json".
type ConfigKeyData struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// ConfigPathData is the payload of "config path --json".
type ConfigPathData struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}
