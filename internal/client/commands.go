// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/MKhiriev/go-recipe-sync/internal/service"
	"github.com/MKhiriev/go-recipe-sync/internal/store"
	"github.com/MKhiriev/go-recipe-sync/models"
)

type command struct {
	usage string
	run   func(ctx context.Context, args []string) error
}

func (a *App) commands() map[string]command {
	return map[string]command{
		"sync":         {"sync [TYPE...]  run a sync session for the given record types (all by default)", a.cmdSync},
		"status":       {"status  show last sync times and queue counters", a.cmdStatus},
		"servers":      {"servers  list configured servers", a.cmdServers},
		"use":          {"use ID  make server ID the active server", a.cmdUse},
		"test-servers": {"test-servers  probe every enabled server", a.cmdTestServers},
		"pending":      {"pending  list changes waiting for upload", a.cmdPending},
		"failed":       {"failed [retry [ID...]]  list failed changes or return them to the queue", a.cmdFailed},
		"conflicts":    {"conflicts  list unresolved conflicts", a.cmdConflicts},
		"resolve":      {"resolve ID local|server|merge|custom [FILE|-]  settle a conflict", a.cmdResolve},
		"help":         {"help  show this message", a.cmdHelp},
	}
}

func (a *App) cmdHelp(context.Context, []string) error {
	cmds := a.commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	slices.Sort(names)

	var b strings.Builder
	b.WriteString("Usage: client [flags] [command]\n\nWithout a command the interactive dashboard starts.\n\nCommands:\n")
	for _, name := range names {
		b.WriteString("  " + cmds[name].usage + "\n")
	}
	_, err := io.WriteString(a.out, b.String())
	return err
}

// ── Sync ───────────────────────────────────────────────────────────────────

func (a *App) cmdSync(ctx context.Context, args []string) error {
	recordTypes, err := parseRecordTypes(args)
	if err != nil {
		return err
	}

	var failed []string
	for st := range a.services.Orchestrator.TriggerSync(ctx, recordTypes...) {
		if !st.State.Terminal() {
			continue
		}
		fmt.Fprintf(a.out, "%-14s %-10s downloaded %d, uploaded %d, failed %d, conflicts %d",
			st.RecordType, st.State, st.DownloadDone, st.UploadDone, st.FailedItems, st.Conflicts)
		if st.Message != "" {
			fmt.Fprintf(a.out, ": %s", st.Message)
		}
		fmt.Fprintln(a.out)

		if st.State == models.SyncStateError {
			failed = append(failed, string(st.RecordType))
		}
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	if len(failed) > 0 {
		return fmt.Errorf("%w: %s", ErrSyncFailed, strings.Join(failed, ", "))
	}
	return nil
}

func parseRecordTypes(args []string) ([]models.RecordType, error) {
	out := make([]models.RecordType, 0, len(args))
	for _, arg := range args {
		rt := models.RecordType(strings.ToUpper(strings.ReplaceAll(arg, "-", "_")))
		if !rt.Valid() {
			return nil, fmt.Errorf("%w: %q", service.ErrUnknownRecordType, arg)
		}
		out = append(out, rt)
	}
	return out, nil
}

func (a *App) cmdStatus(ctx context.Context, _ []string) error {
	rows := make([][]string, 0, len(models.AllRecordTypes))
	for _, rt := range models.AllRecordTypes {
		lastSyncAt, err := a.storages.Settings.GetTime(ctx, store.SettingLastSyncAt(rt))
		if err != nil {
			return err
		}
		rows = append(rows, []string{string(rt), formatTime(lastSyncAt)})
	}
	if err := a.renderTable([]string{"TYPE", "LAST SYNC"}, rows); err != nil {
		return err
	}

	pending, err := a.services.Queue.PendingCount(ctx)
	if err != nil {
		return err
	}
	failed, err := a.services.Queue.FailedCount(ctx)
	if err != nil {
		return err
	}
	conflicts, err := a.services.Resolver.CountOpen(ctx)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(a.out, "device %s: %d pending, %d failed, %d open conflicts\n",
		a.services.DeviceID, pending, failed, conflicts)
	return err
}

// ── Servers ────────────────────────────────────────────────────────────────

func (a *App) cmdServers(ctx context.Context, _ []string) error {
	servers, err := a.services.Registry.List(ctx)
	if err != nil {
		return err
	}

	var activeID int64
	if active, activeErr := a.services.Registry.Active(ctx); activeErr == nil {
		activeID = active.ID
	}

	rows := make([][]string, 0, len(servers))
	for _, s := range servers {
		name := s.Name
		if s.ID == activeID {
			name += " *"
		}
		rows = append(rows, []string{
			strconv.FormatInt(s.ID, 10),
			name,
			s.BaseURL,
			strconv.Itoa(s.Priority),
			string(s.Status),
			yesNo(s.IsDefault),
			yesNo(s.Enabled && s.SyncEnabled),
			formatTime(s.LastConnectedAt),
		})
	}
	return a.renderTable([]string{"ID", "NAME", "URL", "PRIORITY", "STATUS", "DEFAULT", "SYNC", "LAST CONNECTED"}, rows)
}

func (a *App) cmdUse(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: use ID", ErrUsage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: server id %q", ErrUsage, args[0])
	}

	server, err := a.services.Registry.SetActive(ctx, id)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.out, "active server: %s (%s)\n", server.Name, server.BaseURL)
	return err
}

func (a *App) cmdTestServers(ctx context.Context, _ []string) error {
	results, err := a.services.Registry.TestAll(ctx)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.Name,
			r.BaseURL,
			string(r.Status),
			r.Latency.Round(time.Millisecond).String(),
			r.Error,
		})
	}
	return a.renderTable([]string{"NAME", "URL", "STATUS", "LATENCY", "ERROR"}, rows)
}

// ── Queue ──────────────────────────────────────────────────────────────────

func (a *App) cmdPending(ctx context.Context, _ []string) error {
	changes, err := a.services.Queue.NextBatch(ctx)
	if err != nil {
		return err
	}
	return a.renderChanges(changes, false)
}

func (a *App) cmdFailed(ctx context.Context, args []string) error {
	if len(args) > 0 {
		if args[0] != "retry" {
			return fmt.Errorf("%w: failed [retry [ID...]]", ErrUsage)
		}
		ids := make([]int64, 0, len(args)-1)
		for _, raw := range args[1:] {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: change id %q", ErrUsage, raw)
			}
			ids = append(ids, id)
		}

		n, err := a.services.Queue.RetryFailed(ctx, ids...)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(a.out, "%d change(s) returned to the queue\n", n)
		return err
	}

	changes, err := a.services.Queue.ListFailed(ctx)
	if err != nil {
		return err
	}
	return a.renderChanges(changes, true)
}

func (a *App) renderChanges(changes []models.PendingChange, withError bool) error {
	headers := []string{"ID", "TYPE", "ACTION", "ITEM", "CREATED", "RETRIES"}
	if withError {
		headers = append(headers, "LAST ERROR")
	}

	rows := make([][]string, 0, len(changes))
	for _, c := range changes {
		row := []string{
			strconv.FormatInt(c.ID, 10),
			string(c.RecordType),
			string(c.Action),
			c.ItemID,
			formatTime(&c.CreatedAt),
			strconv.Itoa(c.RetryCount),
		}
		if withError {
			row = append(row, c.LastError)
		}
		rows = append(rows, row)
	}
	return a.renderTable(headers, rows)
}

// ── Conflicts ──────────────────────────────────────────────────────────────

func (a *App) cmdConflicts(ctx context.Context, _ []string) error {
	conflicts, err := a.services.Resolver.ListOpen(ctx)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(conflicts))
	for _, c := range conflicts {
		server := formatTime(&c.ServerVersion.ModifiedAt)
		if c.ServerVersion.Deleted {
			server += " (deleted)"
		}
		local := formatTime(&c.LocalVersion.ModifiedAt)
		if c.LocalVersion.Deleted {
			local += " (deleted)"
		}
		rows = append(rows, []string{c.ID, string(c.ConflictType), c.ItemID, formatTime(&c.DetectedAt), local, server})
	}
	return a.renderTable([]string{"ID", "TYPE", "ITEM", "DETECTED", "LOCAL CHANGED", "SERVER CHANGED"}, rows)
}

var strategyAliases = map[string]models.ResolutionStrategy{
	"local":  models.StrategyUseLocal,
	"server": models.StrategyUseServer,
	"merge":  models.StrategyMerge,
	"custom": models.StrategyAskUser,
}

func (a *App) cmdResolve(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("%w: resolve ID local|server|merge|custom [FILE|-]", ErrUsage)
	}

	strategy, ok := strategyAliases[strings.ToLower(args[1])]
	if !ok {
		strategy = models.ResolutionStrategy(strings.ToUpper(args[1]))
	}
	if !strategy.Valid() {
		return fmt.Errorf("%w: %q", service.ErrInvalidStrategy, args[1])
	}

	var version json.RawMessage
	if strategy == models.StrategyMerge || strategy == models.StrategyAskUser {
		if len(args) != 3 {
			return fmt.Errorf("%w: %s needs the resolved version in FILE or on stdin (-)", ErrUsage, strings.ToLower(args[1]))
		}
		var err error
		if version, err = a.readVersion(args[2]); err != nil {
			return err
		}
	}

	resolved, err := a.services.Resolver.Resolve(ctx, args[0], strategy, version)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.out, "conflict %s resolved with %s\n", resolved.ID, resolved.Strategy)
	return err
}

func (a *App) readVersion(path string) (json.RawMessage, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(a.in)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read resolved version: %w", err)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: resolved version is not valid JSON", ErrUsage)
	}
	return json.RawMessage(raw), nil
}

// ── Output ─────────────────────────────────────────────────────────────────

func (a *App) renderTable(headers []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(a.out, "nothing to show")
		return err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	_, err := fmt.Fprintln(a.out, t.Render())
	return err
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return t.Local().Format(time.DateTime)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
