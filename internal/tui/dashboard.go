// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/MKhiriev/go-recipe-sync/internal/service"
	"github.com/MKhiriev/go-recipe-sync/models"
)

const refreshInterval = 2 * time.Second

var recordTypeTitles = map[models.RecordType]string{
	models.RecordTypeRecipe:       "Рецепты",
	models.RecordTypeMealPlan:     "План питания",
	models.RecordTypeShoppingList: "Списки покупок",
	models.RecordTypeUserProfile:  "Профиль",
}

type dashboardModel struct {
	ctx       context.Context
	services  *service.ClientServices
	buildInfo models.AppBuildInfo

	table   table.Model
	spinner spinner.Model

	statuses  map[models.RecordType]models.SyncSessionStatus
	servers   []models.ServerProfile
	activeID  int64
	pending   int
	failed    int
	conflicts int

	// stream is the TriggerSync channel being drained, nil when idle.
	stream       <-chan models.SyncSessionStatus
	cancelStream context.CancelFunc
	testing      bool

	notice        string
	refreshErr    string
	overlay       *errorOverlayModel
	showBuildInfo bool
}

func newDashboardModel(ctx context.Context, services *service.ClientServices, buildInfo models.AppBuildInfo) dashboardModel {
	s := spinner.New()
	s.Spinner = spinner.MiniDot

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Тип", Width: 16},
			{Title: "Состояние", Width: 26},
			{Title: "Обработано", Width: 11},
			{Title: "Последняя синхр.", Width: 16},
		}),
		table.WithFocused(true),
		table.WithHeight(len(models.AllRecordTypes)+2),
	)

	m := dashboardModel{
		ctx:       ctx,
		services:  services,
		buildInfo: buildInfo,
		table:     t,
		spinner:   s,
		statuses:  make(map[models.RecordType]models.SyncSessionStatus, len(models.AllRecordTypes)),
	}
	for _, st := range services.Orchestrator.Statuses() {
		m.statuses[st.RecordType] = st
	}
	m.table.SetRows(m.rows())
	return m
}

func (m dashboardModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.cmdRefresh(), tickRefresh())
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case statusMsg:
		m.statuses[msg.status.RecordType] = msg.status
		m.table.SetRows(m.rows())
		return m, waitForStatus(m.stream)

	case streamClosedMsg:
		m.stopStream()
		m.notice = "Синхронизация завершена"
		return m, m.cmdRefresh()

	case refreshedMsg:
		if msg.err != nil {
			m.refreshErr = humanizeError(msg.err)
			return m, nil
		}
		m.refreshErr = ""
		m.servers = msg.servers
		m.activeID = msg.activeID
		m.pending, m.failed, m.conflicts = msg.pending, msg.failed, msg.conflicts
		if m.stream == nil {
			for _, st := range msg.statuses {
				m.statuses[st.RecordType] = st
			}
			m.table.SetRows(m.rows())
		}
		return m, nil

	case healthDoneMsg:
		m.testing = false
		if msg.err != nil {
			m.overlay = &errorOverlayModel{message: humanizeError(msg.err)}
			return m, nil
		}
		online := 0
		for _, r := range msg.results {
			if r.Status == models.ServerStatusOnline {
				online++
			}
		}
		m.notice = fmt.Sprintf("Проверено серверов: %d, доступно: %d", len(msg.results), online)
		return m, m.cmdRefresh()

	case retryDoneMsg:
		if msg.err != nil {
			m.overlay = &errorOverlayModel{message: humanizeError(msg.err)}
			return m, nil
		}
		m.notice = fmt.Sprintf("Возвращено в очередь: %d", msg.count)
		return m, m.cmdRefresh()

	case refreshTickMsg:
		return m, tea.Batch(m.cmdRefresh(), tickRefresh())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m dashboardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.stopStream()
		return m, tea.Quit
	}

	if m.overlay != nil {
		if key.Matches(msg, keys.enter, keys.esc) {
			m.overlay = nil
		}
		return m, nil
	}
	if m.showBuildInfo {
		if key.Matches(msg, keys.esc, keys.info) {
			m.showBuildInfo = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.quit):
		m.stopStream()
		return m, tea.Quit

	case key.Matches(msg, keys.sync):
		return m.startSync()

	case key.Matches(msg, keys.enter):
		row := m.table.Cursor()
		if row < 0 || row >= len(models.AllRecordTypes) {
			return m, nil
		}
		return m.startSync(models.AllRecordTypes[row])

	case key.Matches(msg, keys.test):
		if m.testing {
			return m, nil
		}
		m.testing = true
		m.notice = "Проверка серверов..."
		return m, m.cmdTestServers()

	case key.Matches(msg, keys.retry):
		return m, m.cmdRetryFailed()

	case key.Matches(msg, keys.refresh):
		return m, m.cmdRefresh()

	case key.Matches(msg, keys.info):
		m.showBuildInfo = true
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// startSync triggers sessions for recordTypes (all when empty) unless a
// stream started from the dashboard is still running.
func (m dashboardModel) startSync(recordTypes ...models.RecordType) (tea.Model, tea.Cmd) {
	if m.stream != nil {
		return m, nil
	}

	ctx, cancel := context.WithCancel(m.ctx)
	m.cancelStream = cancel
	m.stream = m.services.Orchestrator.TriggerSync(ctx, recordTypes...)
	m.notice = ""
	return m, waitForStatus(m.stream)
}

func (m *dashboardModel) stopStream() {
	if m.cancelStream != nil {
		m.cancelStream()
	}
	m.cancelStream = nil
	m.stream = nil
}

func waitForStatus(stream <-chan models.SyncSessionStatus) tea.Cmd {
	if stream == nil {
		return nil
	}
	return func() tea.Msg {
		st, ok := <-stream
		if !ok {
			return streamClosedMsg{}
		}
		return statusMsg{status: st}
	}
}

func tickRefresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshTickMsg(t)
	})
}

func (m dashboardModel) cmdRefresh() tea.Cmd {
	ctx, svc := m.ctx, m.services
	return func() tea.Msg {
		msg := refreshedMsg{statuses: svc.Orchestrator.Statuses()}

		var err error
		if msg.servers, err = svc.Registry.List(ctx); err != nil {
			return refreshedMsg{err: err}
		}
		if active, activeErr := svc.Registry.Active(ctx); activeErr == nil {
			msg.activeID = active.ID
		}
		if msg.pending, err = svc.Queue.PendingCount(ctx); err != nil {
			return refreshedMsg{err: err}
		}
		if msg.failed, err = svc.Queue.FailedCount(ctx); err != nil {
			return refreshedMsg{err: err}
		}
		if msg.conflicts, err = svc.Resolver.CountOpen(ctx); err != nil {
			return refreshedMsg{err: err}
		}
		return msg
	}
}

func (m dashboardModel) cmdTestServers() tea.Cmd {
	ctx, registry := m.ctx, m.services.Registry
	return func() tea.Msg {
		results, err := registry.TestAll(ctx)
		return healthDoneMsg{results: results, err: err}
	}
}

func (m dashboardModel) cmdRetryFailed() tea.Cmd {
	ctx, queue := m.ctx, m.services.Queue
	return func() tea.Msg {
		n, err := queue.RetryFailed(ctx)
		return retryDoneMsg{count: n, err: err}
	}
}

func (m dashboardModel) rows() []table.Row {
	rows := make([]table.Row, 0, len(models.AllRecordTypes))
	for _, rt := range models.AllRecordTypes {
		st, ok := m.statuses[rt]
		if !ok {
			st = models.SyncSessionStatus{RecordType: rt, State: models.SyncStateIdle}
		}
		rows = append(rows, table.Row{
			recordTypeTitles[rt],
			fitText(stateTitle(st), 26),
			fmt.Sprintf("%d/%d", st.ProcessedItems, st.TotalItems),
			formatTime(st.LastSyncAt),
		})
	}
	return rows
}

func (m dashboardModel) View() string {
	if m.overlay != nil {
		return m.overlay.View()
	}
	if m.showBuildInfo {
		return renderBuildInfoWindow(m.buildInfo)
	}

	var b strings.Builder
	b.WriteString(m.table.View())
	b.WriteString("\n\n")
	b.WriteString(m.selectedView())
	b.WriteString("\n\n")
	b.WriteString(titleStyle.Render("Серверы"))
	b.WriteString("\n")
	b.WriteString(m.serversView())
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Очередь: ожидают %d • неудачных %d • конфликтов %d", m.pending, m.failed, m.conflicts))

	switch {
	case m.refreshErr != "":
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render(m.refreshErr))
	case m.notice != "":
		b.WriteString("\n\n")
		b.WriteString(noticeStyle.Render(m.notice))
	}

	return renderPage("GO RECIPE SYNC", b.String(), hotKeys)
}

func (m dashboardModel) selectedView() string {
	row := m.table.Cursor()
	if row < 0 || row >= len(models.AllRecordTypes) {
		return ""
	}
	rt := models.AllRecordTypes[row]
	st, ok := m.statuses[rt]
	if !ok {
		st = models.SyncSessionStatus{RecordType: rt, State: models.SyncStateIdle}
	}

	prefix := "  "
	if st.State == models.SyncStateSyncing {
		prefix = m.spinner.View() + " "
	}
	line := prefix + recordTypeTitles[rt] + ": " + stateStyle(st.State).Render(stateTitle(st)) + "\n" +
		"  " + progressBar(st.Percent())
	if st.Message != "" {
		line += "\n  " + fitText(st.Message, 60)
	}
	return line
}

func (m dashboardModel) serversView() string {
	if len(m.servers) == 0 {
		return "  нет настроенных серверов\n"
	}

	var b strings.Builder
	for _, s := range m.servers {
		marker := "  "
		if s.ID == m.activeID {
			marker = "▶ "
		}
		status := s.Status
		if status == "" {
			status = models.ServerStatusUnknown
		}
		line := fmt.Sprintf("%s%-12s %-30s %s  приоритет %d",
			marker,
			fitText(s.Name, 12),
			fitText(s.BaseURL, 30),
			serverStatusStyle(status).Render(string(status)),
			s.Priority,
		)
		if s.IsDefault {
			line += "  по умолчанию"
		}
		if !s.Enabled || !s.SyncEnabled {
			line += "  отключён"
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}
