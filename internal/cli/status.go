// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Status and queue command implementations for locktower.
//
// Command: status
// Short:   Show held locks and lock table statistics
// Aliases: s
//
// Examples:
//   locktower status              Show server health, stats, held locks
//   locktower s --json            Status in JSON format
//   locktower queue               Show waiting requests in queue order
//
// Status Sections:
//   Server:       URL, health, daemon version, uptime, audit sink state
//   Table:        Resource/reader/writer/queued counts
//   Active Locks: One line per holder with mode, session, held duration
//   Recent:       Newest audit lines, newest first
package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/locktower/internal/client"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	// Title style for the header
	statusTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")) // Cyan

	// Section header style
	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")) // White

	// Label style for field names
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")). // Light gray
			Width(14)

	// Value styles
	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")) // White

	valueGreenStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")) // Green

	valueYellowStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("220")) // Yellow

	valueRedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // Red

	valueDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")) // Dim

	// Separator line
	statusSeparatorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))
)

// =============================================================================
// HANDLE STATUS
// =============================================================================

// HandleStatus handles the "status" command. It shows server health, lock
// table statistics and every held lock.
func HandleStatus(args Args) error {
	c := newClient(args)
	ctx, cancel := snapshotContext()
	defer cancel()

	snap, err := c.Status(ctx)
	if err != nil {
		return err
	}

	// Health is best effort; the daemon answered /v1/status already.
	health, healthErr := c.Health(ctx)

	if args.JSON {
		data := StatusData{
			Server: buildServerInfo(c.BaseURL(), health, healthErr),
			Stats:  snap.Stats,
			Active: snap.Active,
			Recent: snap.Recent,
		}
		return NewJSONResponse("status", data).Print()
	}

	if args.Quiet {
		fmt.Printf("%d resources, %d readers, %d writers, %d queued\n",
			snap.Stats.Resources, snap.Stats.Readers, snap.Stats.Writers, snap.Stats.Queued)
		return nil
	}

	separator := strings.Repeat("=", 41)
	fmt.Println()
	fmt.Println(statusTitleStyle.Render("locktower status"))
	fmt.Println(statusSeparatorStyle.Render(separator))
	fmt.Println()

	fmt.Println(sectionStyle.Render("Server"))
	fmt.Println(formatServerStatus(c.BaseURL(), health, healthErr))
	fmt.Println()

	fmt.Println(sectionStyle.Render("Table"))
	fmt.Println(formatTableStats(snap))
	fmt.Println()

	fmt.Println(sectionStyle.Render("Active Locks"))
	fmt.Println(formatActiveLocks(snap))
	fmt.Println()

	fmt.Println(sectionStyle.Render("Recent"))
	fmt.Println(formatRecent(snap))
	fmt.Println()

	return nil
}

// HandleQueue handles the "queue" command. It lists waiting requests in
// arrival order, the order the scheduler will grant them.
func HandleQueue(args Args) error {
	c := newClient(args)
	ctx, cancel := snapshotContext()
	defer cancel()

	snap, err := c.Queue(ctx)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("queue", QueueData{Pending: snap.Pending, Count: snap.Count}).Print()
	}

	if args.Quiet {
		fmt.Printf("%d queued\n", snap.Count)
		return nil
	}

	if len(snap.Pending) == 0 {
		fmt.Println(valueDimStyle.Render("queue is empty"))
		return nil
	}

	fmt.Println()
	fmt.Println(statusTitleStyle.Render(fmt.Sprintf("locktower queue (%d waiting)", snap.Count)))
	fmt.Println(statusSeparatorStyle.Render(strings.Repeat("=", 41)))
	fmt.Println()
	for i, req := range snap.Pending {
		mode := req.Mode.String()
		if mode == "write" {
			mode = valueYellowStyle.Render(mode)
		} else {
			mode = valueGreenStyle.Render(mode)
		}
		fmt.Printf("  %2d. %-24s %s  %-22s waiting %s\n",
			i+1, req.Resource, mode, req.Session, since(req.WaitingSince))
	}
	fmt.Println()

	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// buildServerInfo folds a health probe into the JSON server block.
func buildServerInfo(url string, health *client.Health, healthErr error) ServerInfo {
	info := ServerInfo{URL: url, Status: "unknown"}
	if healthErr != nil || health == nil {
		return info
	}
	info.Status = health.Status
	info.Version = health.Version
	info.UptimeSeconds = health.UptimeSeconds
	info.AuditDurable = health.AuditDurable
	info.AuditDropped = health.AuditDropped
	return info
}

// formatServerStatus renders the server section of the status output.
func formatServerStatus(url string, health *client.Health, healthErr error) string {
	var lines []string

	lines = append(lines, fmt.Sprintf("  %s%s",
		labelStyle.Render("URL:"),
		valueStyle.Render(url)))

	var healthStr string
	switch {
	case healthErr != nil || health == nil:
		healthStr = valueRedStyle.Render("unreachable")
	default:
		uptime := formatDurationShort(time.Duration(health.UptimeSeconds) * time.Second)
		healthStr = valueGreenStyle.Render(fmt.Sprintf("%s (v%s, uptime %s)", health.Status, health.Version, uptime))
	}
	lines = append(lines, fmt.Sprintf("  %s%s",
		labelStyle.Render("Health:"),
		healthStr))

	if health != nil {
		auditStr := valueDimStyle.Render("ring only")
		if health.AuditDurable {
			auditStr = valueGreenStyle.Render("durable")
		}
		if health.AuditDropped > 0 {
			auditStr += valueYellowStyle.Render(fmt.Sprintf(" (%d dropped)", health.AuditDropped))
		}
		lines = append(lines, fmt.Sprintf("  %s%s",
			labelStyle.Render("Audit:"),
			auditStr))
	}

	return strings.Join(lines, "\n")
}

// formatTableStats renders the lock table census.
func formatTableStats(snap *client.StatusSnapshot) string {
	var lines []string

	lines = append(lines, fmt.Sprintf("  %s%s",
		labelStyle.Render("Resources:"),
		valueStyle.Render(fmt.Sprintf("%d", snap.Stats.Resources))))

	readers := fmt.Sprintf("%d", snap.Stats.Readers)
	if snap.Stats.Readers > 0 {
		readers = valueGreenStyle.Render(readers)
	}
	lines = append(lines, fmt.Sprintf("  %s%s",
		labelStyle.Render("Readers:"),
		readers))

	writers := fmt.Sprintf("%d", snap.Stats.Writers)
	if snap.Stats.Writers > 0 {
		writers = valueYellowStyle.Render(writers)
	}
	lines = append(lines, fmt.Sprintf("  %s%s",
		labelStyle.Render("Writers:"),
		writers))

	queued := fmt.Sprintf("%d", snap.Stats.Queued)
	if snap.Stats.Queued > 0 {
		queued = valueYellowStyle.Render(queued)
	}
	lines = append(lines, fmt.Sprintf("  %s%s",
		labelStyle.Render("Queued:"),
		queued))

	return strings.Join(lines, "\n")
}

// formatRecent renders the newest audit lines shipped with the snapshot.
func formatRecent(snap *client.StatusSnapshot) string {
	if len(snap.Recent) == 0 {
		return valueDimStyle.Render("  no activity yet")
	}
	var lines []string
	for _, l := range snap.Recent {
		lines = append(lines, "  "+valueDimStyle.Render(l))
	}
	return strings.Join(lines, "\n")
}

// formatActiveLocks renders one line per held lock.
func formatActiveLocks(snap *client.StatusSnapshot) string {
	if len(snap.Active) == 0 {
		return valueDimStyle.Render("  none")
	}

	var lines []string
	for _, l := range snap.Active {
		mode := l.Mode.String()
		if mode == "write" {
			mode = valueYellowStyle.Render(fmt.Sprintf("%-5s", mode))
		} else {
			mode = valueGreenStyle.Render(fmt.Sprintf("%-5s", mode))
		}
		lines = append(lines, fmt.Sprintf("  %-24s %s %-22s held %s",
			l.Resource, mode, l.Session, since(l.HeldSince)))
	}
	return strings.Join(lines, "\n")
}
