package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/bx-cli/internal/adapters/notify"
	"github.com/kamal-hamza/bx-cli/internal/core/domain"
	"github.com/kamal-hamza/bx-cli/internal/core/services"
	"github.com/kamal-hamza/bx-cli/pkg/ui"
)

// redeemCmd represents the redeem command
var redeemCmd = &cobra.Command{
	Use:     "redeem [code]",
	Aliases: []string{"r"},
	Short:   "Redeem a badge interactively (alias: r)",
	Long: `Launch a full-screen form for redeeming a badge download code.

Type or paste the code and press Enter to check it. Once the code is
valid the badge is shown and can be downloaded or exported. After a
download the badge details are refreshed from the server.

Keyboard Shortcuts:
  Enter       Check code
  Ctrl+D      Download badge
  Ctrl+E      Export badge record (JSON)
  Ctrl+Y      Copy code to clipboard
  Ctrl+R      Start over
  Esc/Ctrl+C  Quit`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRedeem,
}

func runRedeem(cmd *cobra.Command, args []string) error {
	ctx := getContext(cmd)

	notes := notify.NewChannel(32)
	flow := newRedemptionFlow(notes)

	m := newRedeemModel(ctx, flow, notes.C(), now)
	if len(args) == 1 {
		m.input.SetValue(args[0])
		flow.SetInput(args[0])
		m.state = flow.State()
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running redeem: %w", err)
	}
	return nil
}

const toastLifetime = 4 * time.Second

// Key bindings
type redeemKeyMap struct {
	Validate key.Binding
	Download key.Binding
	Export   key.Binding
	Copy     key.Binding
	Reset    key.Binding
	Quit     key.Binding
}

func (k redeemKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Validate, k.Download, k.Export, k.Copy, k.Reset, k.Quit}
}

func (k redeemKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var redeemKeys = redeemKeyMap{
	Validate: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "check code"),
	),
	Download: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("ctrl+d", "download"),
	),
	Export: key.NewBinding(
		key.WithKeys("ctrl+e"),
		key.WithHelp("ctrl+e", "export json"),
	),
	Copy: key.NewBinding(
		key.WithKeys("ctrl+y"),
		key.WithHelp("ctrl+y", "copy code"),
	),
	Reset: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("ctrl+r", "start over"),
	),
	Quit: key.NewBinding(
		key.WithKeys("esc", "ctrl+c"),
		key.WithHelp("esc", "quit"),
	),
}

type toast struct {
	n       domain.Notification
	expires time.Time
}

// Redeem model
type redeemModel struct {
	ctx     context.Context
	flow    *services.RedemptionFlow
	notes   <-chan domain.Notification
	now     func() time.Time
	input   textinput.Model
	spinner spinner.Model
	help    help.Model
	keys    redeemKeyMap
	state   domain.FlowState
	toasts  []toast
	saved   string // last downloaded file
	export  string // last exported file
	width   int
}

func newRedeemModel(ctx context.Context, flow *services.RedemptionFlow, notes <-chan domain.Notification, now func() time.Time) redeemModel {
	ti := textinput.New()
	ti.Placeholder = "Paste your download code..."
	ti.CharLimit = 256
	ti.Width = 48
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ui.ColorPrimary)

	return redeemModel{
		ctx:     ctx,
		flow:    flow,
		notes:   notes,
		now:     now,
		input:   ti,
		spinner: sp,
		help:    help.New(),
		keys:    redeemKeys,
		state:   flow.State(),
	}
}

// Messages

// flowDoneMsg reports that a flow operation settled
type flowDoneMsg struct {
	op   string
	path string
	err  error
}

type notificationMsg struct {
	n domain.Notification
}

type redeemTickMsg time.Time

func (m redeemModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.listen(), redeemTick())
}

// listen waits for the next notification from the flow
func (m redeemModel) listen() tea.Cmd {
	if m.notes == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-m.notes
		if !ok {
			return nil
		}
		return notificationMsg{n: n}
	}
}

// redeemTick re-renders once a second so the validity line and toasts
// follow the clock
func redeemTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return redeemTickMsg(t)
	})
}

func (m redeemModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)

	case flowDoneMsg:
		m.state = m.flow.State()
		switch msg.op {
		case "download":
			if msg.err == nil {
				m.saved = msg.path
			}
		case "export":
			if msg.err == nil {
				m.export = msg.path
			}
		}
		return m, nil

	case notificationMsg:
		m.toasts = append(m.toasts, toast{n: msg.n, expires: m.now().Add(toastLifetime)})
		return m, m.listen()

	case redeemTickMsg:
		m.pruneToasts()
		return m, redeemTick()

	case spinner.TickMsg:
		if !m.state.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m redeemModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Validate):
		// Busy phases disable the trigger
		if m.state.Busy() {
			return m, nil
		}
		raw := m.input.Value()
		m.flow.SetInput(raw)
		if token := strings.TrimSpace(raw); token != "" {
			m.state = domain.ValidatingState(raw, token)
		}
		m.saved, m.export = "", ""
		return m, tea.Batch(m.spinner.Tick, m.validate(raw))

	case key.Matches(msg, m.keys.Download):
		if !m.state.CanDownload() {
			return m, nil
		}
		m.state = domain.DownloadingState(m.state.Input, m.state.Token, *m.state.View)
		return m, tea.Batch(m.spinner.Tick, m.download())

	case key.Matches(msg, m.keys.Export):
		if !m.state.CanExport() {
			return m, nil
		}
		return m, m.exportView()

	case key.Matches(msg, m.keys.Copy):
		m.flow.SetInput(m.input.Value())
		return m, m.copyToken()

	case key.Matches(msg, m.keys.Reset):
		if m.state.Busy() {
			return m, nil
		}
		m.flow.Reset()
		m.input.Reset()
		m.state = m.flow.State()
		m.saved, m.export = "", ""
		return m, nil
	}

	// The code field is read-only while a request runs
	if m.state.Busy() {
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.flow.SetInput(m.input.Value())
	m.state.Input = m.input.Value()
	return m, cmd
}

// Commands

func (m redeemModel) validate(raw string) tea.Cmd {
	flow, ctx := m.flow, m.ctx
	return func() tea.Msg {
		_, err := flow.Validate(ctx, raw)
		return flowDoneMsg{op: "validate", err: err}
	}
}

func (m redeemModel) download() tea.Cmd {
	flow, ctx := m.flow, m.ctx
	return func() tea.Msg {
		res, err := flow.Download(ctx)
		return flowDoneMsg{op: "download", path: res.Path, err: err}
	}
}

func (m redeemModel) exportView() tea.Cmd {
	flow, ctx := m.flow, m.ctx
	return func() tea.Msg {
		path, err := flow.Export(ctx)
		return flowDoneMsg{op: "export", path: path, err: err}
	}
}

func (m redeemModel) copyToken() tea.Cmd {
	flow := m.flow
	return func() tea.Msg {
		err := flow.CopyToken()
		return flowDoneMsg{op: "copy", err: err}
	}
}

func (m *redeemModel) pruneToasts() {
	now := m.now()
	kept := m.toasts[:0]
	for _, t := range m.toasts {
		if now.Before(t.expires) {
			kept = append(kept, t)
		}
	}
	m.toasts = kept
}

// View

func (m redeemModel) View() string {
	var s strings.Builder

	s.WriteString(ui.FormatTitle("Redeem a badge"))
	s.WriteString("\n\n")
	s.WriteString(m.input.View())
	s.WriteString("\n")
	s.WriteString(m.renderStatus())
	s.WriteString("\n")

	if m.state.View != nil {
		width := 0
		if m.width > 8 {
			width = min(m.width-4, 72)
		}
		s.WriteString("\n")
		s.WriteString(renderBadgeCard(*m.state.View, m.now(), width))
		s.WriteString("\n")
	}

	if m.saved != "" {
		s.WriteString("\n")
		s.WriteString(ui.RenderKeyValue("Saved", m.saved))
	}
	if m.export != "" {
		s.WriteString("\n")
		s.WriteString(ui.RenderKeyValue("Exported", m.export))
	}

	if len(m.toasts) > 0 {
		s.WriteString("\n")
		now := m.now()
		for _, t := range m.toasts {
			if now.Before(t.expires) {
				s.WriteString("\n")
				s.WriteString(notify.Render(t.n))
			}
		}
	}

	s.WriteString("\n\n")
	s.WriteString(m.help.View(m.keys))
	return s.String()
}

func (m redeemModel) renderStatus() string {
	switch m.state.Phase {
	case domain.PhaseValidating:
		return m.spinner.View() + " " + ui.StyleInfo.Render("Checking code...")
	case domain.PhaseDownloading:
		return m.spinner.View() + " " + ui.StyleInfo.Render("Downloading badge...")
	case domain.PhaseInvalid:
		msg := "Invalid code"
		if m.state.Message != "" {
			msg += ": " + m.state.Message
		}
		return ui.FormatError(msg)
	case domain.PhaseValid:
		return ui.FormatSuccess("Code valid")
	default:
		return ui.FormatMuted("Enter the code from your badge e-mail")
	}
}
