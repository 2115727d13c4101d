package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	cl "oremarket/internal/cli"
	"oremarket/internal/game"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	boardStyle  = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
)

func newWatchCmd(apiBase *string) *cobra.Command {
	var every time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live market board",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return errors.New("watch needs an interactive terminal; use `ore market` instead")
			}
			if every < time.Second {
				every = time.Second
			}
			m := newWatchModel(cmd.Context(), newClient(apiBase), every)
			_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
	cmd.Flags().DurationVar(&every, "every", 2*time.Second, "refresh interval")
	return cmd
}

type marketMsg struct {
	rows []game.ResourceView
	err  error
}

type refreshMsg struct{}

type watchModel struct {
	ctx     context.Context
	client  *cl.Client
	every   time.Duration
	table   table.Model
	updated time.Time
	err     error
}

func newWatchModel(ctx context.Context, client *cl.Client, every time.Duration) watchModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Ore", Width: 12},
			{Title: "Sym", Width: 4},
			{Title: "Price", Width: 12},
			{Title: "Stock", Width: 7},
			{Title: "Event", Width: 7},
			{Title: "Trend", Width: 24},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	return watchModel{ctx: ctx, client: client, every: every, table: t}
}

func (m watchModel) Init() tea.Cmd {
	return m.fetch
}

func (m watchModel) fetch() tea.Msg {
	ctx, cancel := context.WithTimeout(m.ctx, requestTimeout)
	defer cancel()
	rows, err := m.client.Market(ctx)
	if err != nil {
		return marketMsg{err: err}
	}
	// The list view omits history; fetch it per ore for the trend column.
	for i := range rows {
		if detail, err := m.client.Resource(ctx, rows[i].Key); err == nil {
			rows[i].History = detail.History
		}
	}
	return marketMsg{rows: rows}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, m.fetch
		}
	case marketMsg:
		m.err = msg.err
		if msg.err == nil {
			m.table.SetRows(marketRows(msg.rows))
			m.updated = time.Now()
		}
		return m, tea.Tick(m.every, func(time.Time) tea.Msg { return refreshMsg{} })
	case refreshMsg:
		return m, m.fetch
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m watchModel) View() string {
	status := statusStyle.Render("waiting for market...")
	if !m.updated.IsZero() {
		status = statusStyle.Render(fmt.Sprintf("updated %s  ·  r refresh  ·  q quit", m.updated.Format("15:04:05")))
	}
	if m.err != nil {
		status = errorStyle.Render(m.err.Error())
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("ORE MARKET"),
		boardStyle.Render(m.table.View()),
		status,
	) + "\n"
}

func marketRows(views []game.ResourceView) []table.Row {
	rows := make([]table.Row, 0, len(views))
	for _, r := range views {
		rows = append(rows, table.Row{
			r.Display,
			r.Symbol,
			money(r.Price),
			fmt.Sprintf("%.1f%%", r.StockLevel*100),
			fmt.Sprintf("x%.2f", r.EventMultiplier),
			sparkline(r.History, 24),
		})
	}
	return rows
}
