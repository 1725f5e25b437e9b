package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/birdseye/internal/classify"
	"github.com/desertthunder/birdseye/internal/formatter"
	"github.com/desertthunder/birdseye/internal/models"
	"github.com/desertthunder/birdseye/internal/severity"
	"github.com/desertthunder/birdseye/internal/shared"
	"github.com/desertthunder/birdseye/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoginView ViewState = iota
	DashboardView
)

// Sessions is the read side of the session store used at view entry.
type Sessions interface {
	RequireSession() (models.Session, error)
}

// Bridge forwards controller callbacks into a running [tea.Program].
// It implements [tasks.Navigator] and [tasks.Notifier].
type Bridge struct {
	mu sync.Mutex
	p  *tea.Program
}

var (
	_ tasks.Navigator = (*Bridge)(nil)
	_ tasks.Notifier  = (*Bridge)(nil)
)

// Attach sets the program messages are sent to.
func (b *Bridge) Attach(p *tea.Program) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.p = p
}

func (b *Bridge) RedirectToLogin()      { b.send(redirectMsg()) }
func (b *Bridge) Notify(message string) { b.send(noticeMsg(message)) }

func (b *Bridge) send(msg tea.Msg) {
	b.mu.Lock()
	p := b.p
	b.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

const (
	fieldIdentity = iota
	fieldPassword
)

// Model represents the TUI application state.
type Model struct {
	ctx        context.Context
	viewCtx    context.Context
	viewCancel context.CancelFunc
	view       ViewState
	sessions   Sessions
	login      *tasks.LoginTask
	uploads    *tasks.UploadController
	logger     *log.Logger
	identity   string
	width      int
	height     int

	inputs   []textinput.Model
	focus    int
	pathIn   textinput.Model
	spinner  spinner.Model
	busy     bool
	progress tasks.ProgressUpdate
	progCh   chan tasks.ProgressUpdate
	doneCh   chan Msg
	run      int
	lastFile string
	notice   string
	history  list.Model
	help     help.Model
	keys     keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, sessions Sessions, login *tasks.LoginTask, uploads *tasks.UploadController, logger *log.Logger) *Model {
	identity := textinput.New()
	identity.Placeholder = "email or username"
	identity.Prompt = "Email    › "
	identity.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = "Password › "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	path := textinput.New()
	path.Placeholder = "path/to/litter.jpg"
	path.Prompt = "Image › "

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	history := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	history.Title = "This session"
	history.SetShowHelp(false)
	history.SetFilteringEnabled(false)
	history.SetShowStatusBar(false)

	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Model{
		ctx:      ctx,
		view:     LoginView,
		sessions: sessions,
		login:    login,
		uploads:  uploads,
		logger:   logger,
		inputs:   []textinput.Model{identity, password},
		pathIn:   path,
		spinner:  sp,
		history:  history,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// ViewState returns the active view.
func (m *Model) ViewState() ViewState { return m.view }

// Init enters the dashboard when a session exists, else the login view.
func (m *Model) Init() tea.Cmd {
	m.enterDashboard()
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.history.SetSize(msg.Width-4, max(msg.Height/3, 6))
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			m.leaveDashboard()
			return m, tea.Quit
		}
		switch m.view {
		case LoginView:
			return m.handleLoginKeys(msg)
		case DashboardView:
			return m.handleDashboardKeys(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgLoginComplete:
		res := msg.data.(loginResult)
		m.busy = false
		m.logger.Debug("login finished", "error", res.err)
		if res.err != nil {
			m.notice = errorText(res.err)
			return m, nil
		}
		m.inputs[fieldPassword].SetValue("")
		m.notice = ""
		m.enterDashboard()
		return m, nil

	case MsgProgressUpdate:
		if msg.run != m.run {
			return m, nil
		}
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgAnalysisComplete:
		if msg.run != m.run {
			return m, nil
		}
		res := msg.data.(analysisResult)
		m.busy = false
		m.progCh, m.doneCh = nil, nil
		if res.err != nil {
			if errors.Is(res.err, tasks.ErrSubmissionDiscarded) {
				return m, nil
			}
			m.notice = errorText(res.err)
			if ce, ok := classify.As(res.err); ok && ce.Category.IsAuth() {
				m.toLogin(ce.Message)
			}
			return m, nil
		}
		m.notice = ""
		m.logger.Debug("analysis finished", "file", res.file, "wet_percentage", res.result.WetPercentage)
		cmd := m.history.InsertItem(0, analysisItem{file: res.file, result: *res.result})
		return m, cmd

	case MsgRedirect:
		m.logger.Info("redirecting to login")
		m.toLogin(m.notice)
		return m, nil

	case MsgNotice:
		m.notice = msg.data.(string)
		return m, nil
	}
	return m, nil
}

func (m *Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.next):
		return m, m.focusField((m.focus + 1) % len(m.inputs))
	case key.Matches(msg, m.keys.prev):
		return m, m.focusField((m.focus + len(m.inputs) - 1) % len(m.inputs))
	case key.Matches(msg, m.keys.enter):
		if m.focus == fieldIdentity {
			return m, m.focusField(fieldPassword)
		}
		if m.busy {
			return m, nil
		}
		m.busy = true
		m.notice = ""
		return m, m.doLogin(m.inputs[fieldIdentity].Value(), m.inputs[fieldPassword].Value())
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) handleDashboardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.enter):
		path := strings.TrimSpace(m.pathIn.Value())
		if path == "" || m.busy {
			return m, nil
		}
		m.busy = true
		m.notice = ""
		m.lastFile = filepath.Base(path)
		m.progress = tasks.ProgressUpdate{}
		return m, m.startAnalysis(path)
	case key.Matches(msg, m.keys.clear):
		m.pathIn.SetValue("")
		m.notice = ""
		return m, nil
	case key.Matches(msg, m.keys.logout):
		if err := m.login.Logout(); err != nil {
			m.notice = errorText(err)
			return m, nil
		}
		m.toLogin("Signed out.")
		return m, nil
	case key.Matches(msg, m.keys.open):
		return m, m.openImage()
	case key.Matches(msg, m.keys.export):
		return m, m.exportReport()
	}

	var cmd tea.Cmd
	m.pathIn, cmd = m.pathIn.Update(msg)
	return m, cmd
}

// enterDashboard is the protected-view checkpoint.
func (m *Model) enterDashboard() {
	sess, err := m.sessions.RequireSession()
	if err != nil {
		m.toLogin(errorText(err))
		return
	}

	m.identity = sess.Identity
	m.view = DashboardView
	m.viewCtx, m.viewCancel = context.WithCancel(m.ctx)
	m.pathIn.Focus()
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
}

func (m *Model) leaveDashboard() {
	if m.viewCancel != nil {
		m.viewCancel()
		m.viewCancel = nil
	}
}

// toLogin leaves the dashboard and forgets everything shown for the previous identity.
func (m *Model) toLogin(notice string) {
	m.leaveDashboard()
	m.view = LoginView
	m.busy = false
	m.run++
	m.progCh, m.doneCh = nil, nil
	m.progress = tasks.ProgressUpdate{}
	m.lastFile = ""
	m.history.SetItems(nil)
	m.identity = ""
	m.notice = notice
	m.pathIn.Blur()
	m.focusField(fieldIdentity)
	if m.inputs[fieldIdentity].Value() != "" {
		m.focusField(fieldPassword)
	}
}

func (m *Model) focusField(i int) tea.Cmd {
	m.focus = i
	var cmd tea.Cmd
	for j := range m.inputs {
		if j == i {
			cmd = m.inputs[j].Focus()
		} else {
			m.inputs[j].Blur()
		}
	}
	return cmd
}

func (m *Model) doLogin(identity, password string) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		sess, err := m.login.Login(ctx, identity, password, nil)
		return loginCompleteMsg(sess, err)
	}
}

func (m *Model) startAnalysis(path string) tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan Msg, 1)
	m.progCh, m.doneCh = progress, done
	m.run++

	ctx, uploads := m.viewCtx, m.uploads
	go func() {
		result, err := uploads.SubmitFile(ctx, path, progress)
		close(progress)
		done <- analysisCompleteMsg(filepath.Base(path), result, err)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done, run := m.progCh, m.doneCh, m.run
	if progress == nil {
		return nil
	}
	return func() tea.Msg {
		var msg Msg
		if update, ok := <-progress; ok {
			msg = progressUpdateMsg(update)
		} else {
			msg = <-done
		}
		msg.run = run
		return msg
	}
}

func (m *Model) openImage() tea.Cmd {
	snap := m.uploads.Snapshot()
	return func() tea.Msg {
		image := snap.DisplayImage()
		if image == "" {
			return noticeMsg("No image to open yet.")
		}
		name := "birdseye-" + snap.SubmissionID
		path, err := formatter.SaveImage(image, filepath.Join(os.TempDir(), name))
		if err != nil {
			return noticeMsg(errorText(err))
		}
		if err := shared.OpenInViewer(path); err != nil {
			return noticeMsg(errorText(err))
		}
		return noticeMsg("Opened " + path)
	}
}

func (m *Model) exportReport() tea.Cmd {
	snap := m.uploads.Snapshot()
	return func() tea.Msg {
		if snap.Result == nil {
			return noticeMsg(severity.NoResultText)
		}
		report := formatter.NewReport(snap.FileName, snap.Result)
		res, err := formatter.WriteMarkdownExport(report, snap.Result.ProcessedImage, "")
		if err != nil {
			return noticeMsg(errorText(err))
		}
		return noticeMsg("Report written to " + res.Directory)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case LoginView:
		return m.renderLogin()
	case DashboardView:
		return m.renderDashboard()
	default:
		return ""
	}
}

func (m *Model) renderLogin() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("Birdseye · Sign in"))
	b.WriteString("\n")
	for _, in := range m.inputs {
		b.WriteString(in.View())
		b.WriteString("\n")
	}

	if m.busy {
		fmt.Fprintf(&b, "\n%s Signing in...\n", m.spinner.View())
	}
	if m.notice != "" {
		fmt.Fprintf(&b, "\n%s\n", styles.err.Render(m.notice))
	}

	helpKeys := []key.Binding{m.keys.next, m.keys.enter, m.keys.quit}
	fmt.Fprintf(&b, "\n%s", m.help.ShortHelpView(helpKeys))
	return b.String()
}

func (m *Model) renderDashboard() string {
	var b strings.Builder
	snap := m.uploads.Snapshot()

	b.WriteString(styles.title.Render("Birdseye · Wet Litter Analysis"))
	b.WriteString("\n")
	b.WriteString(styles.help.Render("Signed in as " + m.identity))
	b.WriteString("\n\n")
	b.WriteString(m.pathIn.View())
	b.WriteString("\n\n")

	if m.busy {
		msg := m.progress.Message
		if msg == "" {
			msg = "Analyzing..."
		}
		fmt.Fprintf(&b, "%s %s\n\n", m.spinner.View(), msg)
	}

	b.WriteString(m.renderResult(snap))

	if m.notice != "" {
		fmt.Fprintf(&b, "\n%s\n", styles.err.Render(m.notice))
	}

	if len(m.history.Items()) > 0 {
		fmt.Fprintf(&b, "\n%s\n", m.history.View())
	}

	helpKeys := []key.Binding{m.keys.enter, m.keys.open, m.keys.export, m.keys.logout, m.keys.quit}
	fmt.Fprintf(&b, "\n%s", m.help.ShortHelpView(helpKeys))
	return b.String()
}

func (m *Model) renderResult(snap tasks.Snapshot) string {
	var b strings.Builder

	if snap.Preview != nil {
		fmt.Fprintf(&b, "Preview: %s %s (%dx%d)\n", snap.FileName, snap.Preview.Format, snap.Preview.Width, snap.Preview.Height)
	}

	rec := severity.Recommend(snap.Result)
	if snap.Result == nil {
		b.WriteString(styles.card.Render(rec.Title))
		b.WriteString("\n")
		return b.String()
	}

	band := severity.Evaluate(snap.Result.WetPercentage)
	style := styles.severity(band)
	fmt.Fprintf(&b, "Wet litter: %s  %s\n",
		style.Render(severity.FormatPercentage(snap.Result.WetPercentage)), style.Render(band.String()))
	if snap.Result.Message != "" {
		fmt.Fprintf(&b, "%s\n", styles.help.Render(snap.Result.Message))
	}
	if snap.Result.ProcessedImage != "" {
		b.WriteString(styles.help.Render("Processed image ready (ctrl+o to open)"))
		b.WriteString("\n")
	}

	card := rec.Title
	if rec.Recommended {
		card = styles.warn.Bold(true).Render(rec.Title) + "\n" + rec.Detail
	}
	b.WriteString(styles.card.Render(card))
	b.WriteString("\n")
	return b.String()
}

func errorText(err error) string {
	if ce, ok := classify.As(err); ok {
		return ce.Message
	}
	return err.Error()
}
