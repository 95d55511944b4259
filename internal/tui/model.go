package tui

import (
	"context"
	"fmt"
	"image/color"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/atotto/clipboard"
	"github.com/hylla/timebox/internal/adapters/export"
	"github.com/hylla/timebox/internal/adapters/report"
	"github.com/hylla/timebox/internal/app"
	"github.com/hylla/timebox/internal/domain"
)

// Service is the activity store surface the model drives.
type Service interface {
	Snapshot() []domain.Activity
	Active() (domain.Activity, bool)
	Generation() uint64
	TimerState() app.TimerState
	Tick(uint64) app.TickResult
	StartActivityInput(context.Context, string, string) (domain.Activity, error)
	CompleteActivity(context.Context) (domain.Activity, error)
	DeleteActivity(context.Context, string) error
	ApplyEdit(context.Context, string, string, string) (domain.Activity, error)
	LastSaveError() error
}

// inputMode represents a selectable mode.
type inputMode int

const (
	modeNone inputMode = iota
	modeStart
	modeEdit
	modeConfirmDelete
	modeReport
)

// start-form field indexes.
const (
	startFieldName = iota
	startFieldMinutes
)

// Model is the bubbletea model for the activity list and countdown.
type Model struct {
	svc Service

	ready  bool
	width  int
	height int

	status    string
	statusErr bool

	help help.Model
	keys keyMap

	activities []domain.Activity
	active     domain.Activity
	hasActive  bool
	selected   int

	mode            inputMode
	startInputs     []textinput.Model
	startFocus      int
	editInput       textinput.Model
	editID          string
	editField       int
	pendingDeleteID string

	// tickGen is the generation of the tick chain currently scheduled.
	tickGen      uint64
	ticking      bool
	tickInterval time.Duration
	scheduleTick func(gen uint64, every time.Duration) tea.Cmd

	warning         time.Duration
	exportDir       string
	loc             *time.Location
	now             func() time.Time
	copyToClipboard func(string) error
	reports         report.Renderer
}

// loadedMsg carries the initial snapshot.
type loadedMsg struct {
	activities []domain.Activity
}

// tickMsg is one countdown second for the chain stamped with gen.
type tickMsg struct {
	gen uint64
}

// actionMsg reports the outcome of one store mutation or side effect.
type actionMsg struct {
	err       error
	status    string
	focusID   string
	closeMode bool
}

// NewModel constructs the model over svc.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		svc:             svc,
		status:          "loading...",
		help:            h,
		keys:            newKeyMap(),
		startInputs:     newStartInputs(),
		editInput:       newModalInput("", "", "", 200),
		tickInterval:    time.Second,
		scheduleTick:    tickEvery,
		warning:         app.DefaultWarningThreshold,
		exportDir:       ".",
		loc:             time.Local,
		now:             time.Now,
		copyToClipboard: clipboard.WriteAll,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init loads the first snapshot.
func (m Model) Init() tea.Cmd {
	return m.loadData
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		m.activities = msg.activities
		cmd := m.refresh()
		if m.status == "" || m.status == "loading..." {
			m.setStatus("ready")
		}
		return m, cmd

	case tickMsg:
		if !m.ticking || msg.gen != m.tickGen {
			return m, nil
		}
		res := m.svc.Tick(msg.gen)
		if !res.Applied {
			m.ticking = false
			return m, m.refresh()
		}
		m.activities = m.svc.Snapshot()
		m.active, m.hasActive = m.svc.Active()
		if res.EnteredOvertime {
			m.setStatus(fmt.Sprintf("time is up: %s", m.active.Name))
		}
		return m, m.scheduleTick(msg.gen, m.tickInterval)

	case actionMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, m.refresh()
		}
		if msg.closeMode {
			m.mode = modeNone
		}
		m.setStatus(msg.status)
		if err := m.svc.LastSaveError(); err != nil {
			m.setError(fmt.Errorf("%s (not saved: %w)", msg.status, err))
		}
		cmd := m.refresh()
		if msg.focusID != "" {
			m.focusActivity(msg.focusID)
		}
		return m, cmd

	case tea.KeyPressMsg:
		if m.mode != modeNone {
			return m.handleInputModeKey(msg)
		}
		return m.handleNormalModeKey(msg)

	default:
		return m, nil
	}
}

// loadData snapshots the store.
func (m Model) loadData() tea.Msg {
	return loadedMsg{activities: m.svc.Snapshot()}
}

// refresh re-reads the store and makes sure a tick chain runs for the active countdown.
func (m *Model) refresh() tea.Cmd {
	m.activities = m.svc.Snapshot()
	m.active, m.hasActive = m.svc.Active()
	m.selected = clamp(m.selected, 0, len(m.activities)-1)
	if m.mode == modeEdit {
		if _, ok := m.activityByID(m.editID); !ok {
			m.mode = modeNone
		}
	}
	return m.ensureTicking()
}

// ensureTicking starts a tick chain for the live generation unless one is already scheduled.
func (m *Model) ensureTicking() tea.Cmd {
	if !m.hasActive {
		return nil
	}
	gen := m.svc.Generation()
	if m.ticking && gen == m.tickGen {
		return nil
	}
	m.tickGen = gen
	m.ticking = true
	return m.scheduleTick(gen, m.tickInterval)
}

// tickEvery schedules one tick for gen.
func tickEvery(gen uint64, every time.Duration) tea.Cmd {
	return tea.Tick(every, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

func (m *Model) setStatus(status string) {
	m.status = status
	m.statusErr = false
}

func (m *Model) setError(err error) {
	m.status = err.Error()
	m.statusErr = true
}

func (m Model) selectedActivity() (domain.Activity, bool) {
	if len(m.activities) == 0 {
		return domain.Activity{}, false
	}
	return m.activities[clamp(m.selected, 0, len(m.activities)-1)], true
}

func (m Model) activityByID(id string) (domain.Activity, bool) {
	for _, a := range m.activities {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Activity{}, false
}

func (m *Model) focusActivity(id string) {
	for idx, a := range m.activities {
		if a.ID == id {
			m.selected = idx
			return
		}
	}
}

// newModalInput constructs modal input.
func newModalInput(prompt, placeholder, value string, limit int) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.CharLimit = limit
	if value != "" {
		in.SetValue(value)
	}
	return in
}

func newStartInputs() []textinput.Model {
	return []textinput.Model{
		newModalInput("activity: ", "what are you working on?", "", 200),
		newModalInput("minutes:  ", "25", "", 6),
	}
}

func (m *Model) focusStartField(idx int) tea.Cmd {
	idx = clamp(idx, 0, len(m.startInputs)-1)
	m.startFocus = idx
	for i := range m.startInputs {
		m.startInputs[i].Blur()
	}
	return m.startInputs[idx].Focus()
}

// startEditField loads the current value of field idx into the edit input.
func (m *Model) startEditField(idx int) tea.Cmd {
	a, ok := m.activityByID(m.editID)
	if !ok {
		m.mode = modeNone
		return nil
	}
	m.editField = idx % len(domain.EditableFields)
	field := domain.EditableFields[m.editField]
	m.editInput = newModalInput(string(field)+": ", editPlaceholder(field), a.FieldValue(field, m.loc), 200)
	return m.editInput.Focus()
}

func editPlaceholder(field domain.Field) string {
	switch field {
	case domain.FieldStartTime, domain.FieldEndTime:
		return "YYYY-MM-DD HH:MM (empty clears end)"
	case domain.FieldStatus:
		return "in-progress | completed"
	case domain.FieldEstimatedMinutes, domain.FieldActualMinutes:
		return "minutes"
	default:
		return ""
	}
}

// handleNormalModeKey handles normal mode key.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		if m.selected < len(m.activities)-1 {
			m.selected++
		}
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case key.Matches(msg, m.keys.start):
		if m.hasActive {
			m.setError(fmt.Errorf("%w: complete %q first", domain.ErrActivityActive, m.active.Name))
			return m, nil
		}
		m.mode = modeStart
		m.startInputs = newStartInputs()
		m.setStatus("start activity")
		return m, m.focusStartField(startFieldName)
	case key.Matches(msg, m.keys.complete):
		return m, m.completeCmd()
	case key.Matches(msg, m.keys.edit):
		a, ok := m.selectedActivity()
		if !ok {
			m.setStatus("nothing to edit")
			return m, nil
		}
		m.mode = modeEdit
		m.editID = a.ID
		m.setStatus("edit " + a.Name)
		return m, m.startEditField(0)
	case key.Matches(msg, m.keys.delete):
		a, ok := m.selectedActivity()
		if !ok {
			m.setStatus("nothing to delete")
			return m, nil
		}
		if a.InProgress() {
			m.setError(domain.ErrDeleteActive)
			return m, nil
		}
		m.mode = modeConfirmDelete
		m.pendingDeleteID = a.ID
		m.setStatus(fmt.Sprintf("delete %q? y/enter confirm, any other key cancels", a.Name))
		return m, nil
	case key.Matches(msg, m.keys.exportCSV):
		return m, m.exportCmd()
	case key.Matches(msg, m.keys.copyCSV):
		return m, m.copyCmd()
	case key.Matches(msg, m.keys.report):
		m.mode = modeReport
		return m, nil
	default:
		return m, nil
	}
}

// handleInputModeKey handles keys while a form or prompt is open.
func (m Model) handleInputModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeConfirmDelete:
		id := m.pendingDeleteID
		m.mode = modeNone
		m.pendingDeleteID = ""
		if msg.String() == "y" || key.Matches(msg, m.keys.submit) {
			return m, m.deleteCmd(id)
		}
		m.setStatus("delete cancelled")
		return m, nil

	case modeReport:
		if key.Matches(msg, m.keys.cancel, m.keys.report, m.keys.quit) {
			m.mode = modeNone
		}
		return m, nil

	case modeStart:
		switch {
		case key.Matches(msg, m.keys.cancel):
			m.mode = modeNone
			m.setStatus("start cancelled")
			return m, nil
		case key.Matches(msg, m.keys.nextField):
			return m, m.focusStartField((m.startFocus + 1) % len(m.startInputs))
		case key.Matches(msg, m.keys.submit):
			if m.startFocus == startFieldName && strings.TrimSpace(m.startInputs[startFieldMinutes].Value()) == "" {
				return m, m.focusStartField(startFieldMinutes)
			}
			return m, m.startCmd(m.startInputs[startFieldName].Value(), m.startInputs[startFieldMinutes].Value())
		}
		var cmd tea.Cmd
		m.startInputs[m.startFocus], cmd = m.startInputs[m.startFocus].Update(msg)
		return m, cmd

	case modeEdit:
		switch {
		case key.Matches(msg, m.keys.cancel):
			m.mode = modeNone
			m.setStatus("edit cancelled")
			return m, nil
		case key.Matches(msg, m.keys.nextField):
			return m, m.startEditField(m.editField + 1)
		case key.Matches(msg, m.keys.submit):
			field := domain.EditableFields[m.editField]
			return m, m.editCmd(m.editID, field, m.editInput.Value())
		}
		var cmd tea.Cmd
		m.editInput, cmd = m.editInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) startCmd(name, minutes string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		a, err := svc.StartActivityInput(context.Background(), name, minutes)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{
			status:    fmt.Sprintf("started %q (%s min)", a.Name, domain.FormatNumber(a.EstimatedMinutes)),
			focusID:   a.ID,
			closeMode: true,
		}
	}
}

func (m Model) completeCmd() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		a, err := svc.CompleteActivity(context.Background())
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{
			status:  fmt.Sprintf("completed %q: %s min, %s", a.Name, optionalNumber(a.ActualMinutes, ""), optionalNumber(a.Difference, "%")),
			focusID: a.ID,
		}
	}
}

func (m Model) deleteCmd(id string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		if err := svc.DeleteActivity(context.Background(), id); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "activity deleted"}
	}
}

func (m Model) editCmd(id string, field domain.Field, raw string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		a, err := svc.ApplyEdit(context.Background(), id, string(field), raw)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{
			status:    fmt.Sprintf("updated %s of %q", field, a.Name),
			focusID:   a.ID,
			closeMode: true,
		}
	}
}

func (m Model) exportCmd() tea.Cmd {
	activities := m.svc.Snapshot()
	dir, now, loc := m.exportDir, m.now(), m.loc
	return func() tea.Msg {
		path, err := export.WriteFile(dir, now, activities, loc)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: fmt.Sprintf("exported %d activities to %s", len(activities), path)}
	}
}

func (m Model) copyCmd() tea.Cmd {
	activities := m.svc.Snapshot()
	loc, write := m.loc, m.copyToClipboard
	return func() tea.Msg {
		data, err := export.Bytes(activities, loc)
		if err != nil {
			return actionMsg{err: err}
		}
		if err := write(string(data)); err != nil {
			return actionMsg{err: fmt.Errorf("copy to clipboard: %w", err)}
		}
		return actionMsg{status: fmt.Sprintf("copied %d activities as csv", len(activities))}
	}
}

// View handles view.
func (m Model) View() tea.View {
	if !m.ready {
		v := tea.NewView("loading...")
		v.AltScreen = true
		return v
	}

	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)
	if m.statusErr {
		statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	}

	sections := []string{titleStyle.Render("timebox"), ""}
	if m.mode == modeReport {
		md := report.Markdown(m.activities, m.now(), m.loc, 0)
		sections = append(sections, m.reports.Render(md, max(0, m.width-2)), "", statusStyle.Render("esc/r close report"))
	} else {
		sections = append(sections, m.renderActive(accent, muted), "", m.renderList(accent, muted))
		if form := m.renderForm(accent, muted); form != "" {
			sections = append(sections, "", form)
		}
		if strings.TrimSpace(m.status) != "" {
			sections = append(sections, "", statusStyle.Render(m.status))
		}
	}
	content := strings.Join(sections, "\n")

	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))
	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(helpLine)))
	}
	v := tea.NewView(content + "\n" + helpLine)
	v.AltScreen = true
	return v
}

// renderActive renders the countdown panel.
func (m Model) renderActive(accent, muted color.Color) string {
	if !m.hasActive {
		return lipgloss.NewStyle().Foreground(muted).Render("No activity running. Press s to start one.")
	}
	remaining := m.active.RemainingSeconds
	clock := toneStyle(app.DisplayTone(remaining, m.warning)).Render(app.FormatRemaining(remaining))
	label := "remaining"
	if m.svc.TimerState() == app.TimerOvertime {
		label = "overtime"
	}
	name := lipgloss.NewStyle().Bold(true).Foreground(accent).Render(m.active.Name)
	detail := lipgloss.NewStyle().Foreground(muted).Render(
		fmt.Sprintf("%s · estimate %s min", label, domain.FormatNumber(m.active.EstimatedMinutes)),
	)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1).
		Render(name + "  " + clock + "\n" + detail)
}

func toneStyle(tone app.Tone) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true)
	switch tone {
	case app.ToneWarning:
		return style.Foreground(lipgloss.Color("214"))
	case app.ToneExpired:
		return style.Foreground(lipgloss.Color("196"))
	default:
		return style.Foreground(lipgloss.Color("252"))
	}
}

const nameWidth = 28

// renderList renders the activity table, most recent first.
func (m Model) renderList(accent, muted color.Color) string {
	if len(m.activities) == 0 {
		return lipgloss.NewStyle().Foreground(muted).Render("No activities yet.")
	}
	header := lipgloss.NewStyle().Foreground(muted).Render(
		fmt.Sprintf("  %-*s  %-16s  %6s  %8s  %8s  %s", nameWidth, "Activity", "Start", "Est", "Actual", "Diff", "Status"),
	)
	lines := []string{header}
	selectedStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	for idx, a := range m.activities {
		cursor := "  "
		if idx == m.selected {
			cursor = "› "
		}
		line := fmt.Sprintf("%s%-*s  %-16s  %6s  %8s  %8s  %s",
			cursor,
			nameWidth, truncate(strings.ReplaceAll(a.Name, "\n", " "), nameWidth),
			a.StartTime.In(m.loc).Format("2006-01-02 15:04"),
			domain.FormatNumber(a.EstimatedMinutes),
			optionalNumber(a.ActualMinutes, ""),
			optionalNumber(a.Difference, "%"),
			a.Status,
		)
		if idx == m.selected {
			line = selectedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// renderForm renders the open start or edit form.
func (m Model) renderForm(accent, muted color.Color) string {
	box := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(0, 1)
	hint := lipgloss.NewStyle().Foreground(muted)
	switch m.mode {
	case modeStart:
		rows := []string{"New activity"}
		for _, in := range m.startInputs {
			rows = append(rows, in.View())
		}
		rows = append(rows, hint.Render("tab next field · enter start · esc cancel"))
		return box.Render(strings.Join(rows, "\n"))
	case modeEdit:
		a, _ := m.activityByID(m.editID)
		rows := []string{
			"Edit " + truncate(a.Name, nameWidth),
			m.editInput.View(),
			hint.Render("tab next field · enter save · esc cancel"),
		}
		return box.Render(strings.Join(rows, "\n"))
	default:
		return ""
	}
}

// optionalNumber renders a derived value, or "-" when it is absent.
func optionalNumber(v *float64, suffix string) string {
	if v == nil {
		return "-"
	}
	return domain.FormatNumber(*v) + suffix
}

// clamp clamps the requested operation.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// fitLines fits lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// truncate truncates the requested operation.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	if max <= 1 {
		return string(rs[:max])
	}
	return string(rs[:max-1]) + "…"
}
