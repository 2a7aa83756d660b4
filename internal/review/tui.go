// Package review provides the interactive terminal UI for working the jobs
// the pipeline could not settle on its own: the needs_review queue, plus the
// post-delivery tracking states that only a human can advance.
package review

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dkalra/jobsieve/internal/model"
	"github.com/dkalra/jobsieve/internal/status"
)

// Lines per job item in the list view (title + subtitle + blank separator).
const jobItemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39")) // bright blue

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240")) // dim gray

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("39"))

	inactiveHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	jobTitleStyle = lipgloss.NewStyle().
			Bold(true)

	jobSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	selectedJobTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")). // bright white
				Background(lipgloss.Color("24"))  // dark blue bg

	selectedJobSubtitleStyle = lipgloss.NewStyle().
					Foreground(lipgloss.Color("252")).
					Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(16)

	detailValueStyle = lipgloss.NewStyle()

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	sectionDividerStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	bodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	ratingStyles = map[model.Rating]lipgloss.Style{
		model.RatingApprove: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		model.RatingMaybe:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		model.RatingReject:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	}
)

// transitionDoneMsg is sent when an async status transition completes.
type transitionDoneMsg struct {
	jobID string
	to    status.Status
	err   error
}

type reviewModel struct {
	store model.JobStore

	queueJobs    []*model.JobRecord // needs_review
	trackingJobs []*model.JobRecord // emailed, pending, applied, interview

	leftViewport  viewport.Model
	rightViewport viewport.Model
	activePane    int // 0=queue, 1=tracking
	leftCursor    int
	rightCursor   int
	width         int
	height        int
	ready         bool

	view            viewState
	detailJob       *model.JobRecord
	detailViewport  viewport.Model
	showDescription bool

	transitionBusy  bool
	transitionError string
}

func (m reviewModel) Init() tea.Cmd {
	return nil
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case transitionDoneMsg:
		m.transitionBusy = false
		if msg.err != nil {
			m.transitionError = fmt.Sprintf("transition failed: %v", msg.err)
			m.detailViewport.SetContent(m.renderDetail())
			return m, nil
		}
		m.transitionError = ""
		m.applyTransition(msg.jobID, msg.to)
		m.recalcContent()
		if m.detailJob != nil && m.detailJob.ID == msg.jobID {
			m.detailJob.Status = msg.to
			if status.Terminal(msg.to) || msg.to == status.New {
				m.view = viewList
			} else {
				m.detailViewport.SetContent(m.renderDetail())
			}
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}

	return m, nil
}

func (m reviewModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "tab", "left", "right":
		m.activePane = 1 - m.activePane
		m.recalcContent()
		return m, nil
	case "up", "k":
		m.moveCursor(-1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "enter":
		return m.openDetailView()
	}

	// Forward other keys (pgup/pgdn/home/end) to the active viewport.
	var cmd tea.Cmd
	if m.activePane == 0 {
		m.leftViewport, cmd = m.leftViewport.Update(msg)
	} else {
		m.rightViewport, cmd = m.rightViewport.Update(msg)
	}
	return m, cmd
}

func (m reviewModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "o":
		openURL(m.detailJob.SourceURL)
		return m, nil
	case "d":
		if m.detailJob.Description != "" {
			m.showDescription = !m.showDescription
			m.detailViewport.SetContent(m.renderDetail())
			m.detailViewport.SetYOffset(0)
		}
		return m, nil
	case "1", "2", "3":
		if m.transitionBusy {
			return m, nil
		}
		idx := int(msg.String()[0] - '1')
		targets := status.Targets(m.detailJob.Status)
		if idx >= len(targets) {
			return m, nil
		}
		m.transitionBusy = true
		m.transitionError = ""
		m.detailViewport.SetContent(m.renderDetail())
		return m, m.transitionCmd(m.detailJob, targets[idx])
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m reviewModel) transitionCmd(job *model.JobRecord, to status.Status) tea.Cmd {
	store := m.store
	from := job.Status
	id := job.ID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := store.UpdateStatus(ctx, id, from, to, nil)
		return transitionDoneMsg{jobID: id, to: to, err: err}
	}
}

// applyTransition moves a job between the two panes to reflect its new state.
func (m *reviewModel) applyTransition(jobID string, to status.Status) {
	var moved *model.JobRecord
	m.queueJobs, moved = removeJob(m.queueJobs, jobID)
	if moved == nil {
		m.trackingJobs, moved = removeJob(m.trackingJobs, jobID)
	}
	if moved == nil {
		return
	}
	moved.Status = to

	switch to {
	case status.NeedsReview:
		m.queueJobs = append(m.queueJobs, moved)
	case status.Emailed, status.Pending, status.Applied, status.Interview:
		m.trackingJobs = append(m.trackingJobs, moved)
	}
	// Other targets leave the board: back to the pipeline or terminal.

	m.leftCursor = clamp(m.leftCursor, 0, max(len(m.queueJobs)-1, 0))
	m.rightCursor = clamp(m.rightCursor, 0, max(len(m.trackingJobs)-1, 0))
}

func removeJob(jobs []*model.JobRecord, id string) ([]*model.JobRecord, *model.JobRecord) {
	for i, j := range jobs {
		if j.ID == id {
			return append(jobs[:i], jobs[i+1:]...), j
		}
	}
	return jobs, nil
}

func (m *reviewModel) moveCursor(delta int) {
	if m.activePane == 0 {
		m.leftCursor = clamp(m.leftCursor+delta, 0, max(len(m.queueJobs)-1, 0))
	} else {
		m.rightCursor = clamp(m.rightCursor+delta, 0, max(len(m.trackingJobs)-1, 0))
	}
}

func (m *reviewModel) ensureCursorVisible() {
	var vp *viewport.Model
	var cursor int
	if m.activePane == 0 {
		vp = &m.leftViewport
		cursor = m.leftCursor
	} else {
		vp = &m.rightViewport
		cursor = m.rightCursor
	}

	cursorTop := cursor * jobItemHeight
	cursorBottom := cursorTop + jobItemHeight - 1

	if cursorTop < vp.YOffset {
		vp.SetYOffset(cursorTop)
	} else if cursorBottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(cursorBottom - vp.Height + 1)
	}
}

func (m reviewModel) openDetailView() (tea.Model, tea.Cmd) {
	jobs := m.activeJobs()
	cursor := m.activeCursor()
	if len(jobs) == 0 {
		return m, nil
	}

	m.view = viewDetail
	m.detailJob = jobs[cursor]
	m.showDescription = false
	m.transitionError = ""
	m.detailViewport = viewport.New(m.width-4, m.height-4)
	m.detailViewport.SetContent(m.renderDetail())
	return m, nil
}

func (m reviewModel) activeJobs() []*model.JobRecord {
	if m.activePane == 0 {
		return m.queueJobs
	}
	return m.trackingJobs
}

func (m reviewModel) activeCursor() int {
	if m.activePane == 0 {
		return m.leftCursor
	}
	return m.rightCursor
}

func (m *reviewModel) recalcLayout() {
	// 2 border chars per pane + 1 gap between panes.
	paneWidth := max((m.width-5)/2, 20)

	// Header (1 line) + border top/bottom (2) + status bar (1) = 4 lines overhead.
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.leftViewport = viewport.New(paneWidth, paneHeight)
		m.rightViewport = viewport.New(paneWidth, paneHeight)
		m.ready = true
	} else {
		m.leftViewport.Width = paneWidth
		m.leftViewport.Height = paneHeight
		m.rightViewport.Width = paneWidth
		m.rightViewport.Height = paneHeight
	}

	m.recalcContent()
}

func (m *reviewModel) recalcContent() {
	m.leftViewport.SetContent(renderJobs(m.queueJobs, m.leftCursor, m.activePane == 0))
	m.rightViewport.SetContent(renderJobs(m.trackingJobs, m.rightCursor, m.activePane == 1))
}

func (m reviewModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.view == viewDetail {
		return m.viewDetail()
	}

	return m.viewList()
}

func (m reviewModel) viewList() string {
	paneWidth := m.leftViewport.Width

	leftHeader := fmt.Sprintf(" Needs Review (%d)", len(m.queueJobs))
	rightHeader := fmt.Sprintf(" In Progress (%d)", len(m.trackingJobs))

	var leftHeaderRendered, rightHeaderRendered string
	var leftBorder, rightBorder lipgloss.Style

	if m.activePane == 0 {
		leftHeaderRendered = activeHeaderStyle.Render(leftHeader)
		rightHeaderRendered = inactiveHeaderStyle.Render(rightHeader)
		leftBorder = activeBorderStyle.Width(paneWidth)
		rightBorder = inactiveBorderStyle.Width(paneWidth)
	} else {
		leftHeaderRendered = inactiveHeaderStyle.Render(leftHeader)
		rightHeaderRendered = activeHeaderStyle.Render(rightHeader)
		leftBorder = inactiveBorderStyle.Width(paneWidth)
		rightBorder = activeBorderStyle.Width(paneWidth)
	}

	leftPane := leftBorder.Render(m.leftViewport.View())
	rightPane := rightBorder.Render(m.rightViewport.View())

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(paneWidth+2).Render(leftHeaderRendered),
		" ",
		lipgloss.NewStyle().Width(paneWidth+2).Render(rightHeaderRendered),
	)

	panes := lipgloss.JoinHorizontal(lipgloss.Top, leftPane, " ", rightPane)

	statusText := fmt.Sprintf(" %d awaiting review | %d in progress    ←/→/Tab switch  ↑/↓ cursor  Enter detail  q quit",
		len(m.queueJobs), len(m.trackingJobs))
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return headerRow + "\n" + panes + "\n" + statusBar
}

func (m reviewModel) viewDetail() string {
	title := detailTitleStyle.Render("Job Review")
	if m.transitionBusy {
		title += "  (saving...)"
	}

	border := activeBorderStyle.Width(m.width - 2)
	content := border.Render(m.detailViewport.View())

	keys := transitionHints(m.detailJob.Status)
	statusText := " o open URL  esc back  ↑/↓ scroll  q quit"
	if m.detailJob.Description != "" {
		statusText = " o open URL  d desc  esc back  ↑/↓ scroll  q quit"
	}
	if keys != "" {
		statusText = " " + keys + " " + statusText
	}
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return title + "\n" + content + "\n" + statusBar
}

// transitionHints renders the numbered key bindings for the legal moves out
// of the current state.
func transitionHints(s status.Status) string {
	targets := status.Targets(s)
	if len(targets) == 0 {
		return ""
	}
	parts := make([]string, 0, len(targets))
	for i, t := range targets {
		parts = append(parts, fmt.Sprintf("%d %s", i+1, t))
	}
	return strings.Join(parts, "  ") + " "
}

func (m reviewModel) renderDetail() string {
	j := m.detailJob
	var b strings.Builder

	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(detailValueStyle.Render(value))
		b.WriteByte('\n')
	}

	addField("Title", j.Title)
	addField("Company", j.Company)
	addField("Location", j.Location)
	addField("Salary", j.SalaryRange)
	addField("Source", j.SourceName)
	addField("Status", string(j.Status))

	if j.PublishedDate != nil {
		addField("Published", j.PublishedDate.Format("2006-01-02 15:04 MST"))
	}
	if j.DateProcessed != nil {
		addField("Processed", j.DateProcessed.Format("2006-01-02 15:04 MST"))
	}

	b.WriteByte('\n')
	addField("Job URL", j.SourceURL)

	wrapWidth := max(m.width-8, 20)
	divider := func(label string) string {
		fill := strings.Repeat("─", max(wrapWidth-len(label), 3))
		return sectionDividerStyle.Render(label + fill)
	}

	if j.Rating != "" {
		b.WriteByte('\n')
		b.WriteString(divider("── Classification ") + "\n\n")
		if st, ok := ratingStyles[j.Rating]; ok {
			b.WriteString(detailLabelStyle.Render("Rating"))
			b.WriteString(st.Render(string(j.Rating)) + "\n")
		}
		if j.Reasoning != "" {
			b.WriteString(detailLabelStyle.Render("Reasoning"))
			b.WriteString(detailValueStyle.Render(wordWrap(j.Reasoning, wrapWidth-16)) + "\n")
		}
		if len(j.TopMatches) > 0 {
			addField("Top Matches", strings.Join(j.TopMatches, ", "))
		}
		if j.Cost != nil && j.Cost.EstimatedUSD > 0 {
			addField("Est. Cost", fmt.Sprintf("$%.4f (%s/%s)", j.Cost.EstimatedUSD, j.Cost.Provider, j.Cost.Model))
		}
	}

	if a := j.DetailedAnalysis; a != nil {
		b.WriteByte('\n')
		b.WriteString(divider("── Detailed Analysis ") + "\n\n")
		addSection := func(label, text string) {
			if text == "" {
				return
			}
			b.WriteString(jobTitleStyle.Render(label) + "\n")
			b.WriteString(bodyStyle.Render(wordWrap(text, wrapWidth)) + "\n\n")
		}
		addSection("Worth Reviewing", a.WorthReviewing)
		addSection("Technical Challenges", a.TechnicalChallenges)
		addSection("Career Growth", a.CareerGrowth)
		addSection("Company Assessment", a.CompanyAssessment)
		addSection("Potential Concerns", a.PotentialConcerns)
		addSection("Recommendations", a.Recommendations)
		addField("Confidence", fmt.Sprintf("%d/100", a.Confidence))
	}

	if j.ProcessingError != "" {
		b.WriteByte('\n')
		b.WriteString(errorStyle.Render("⚠ "+j.ProcessingError) + "\n")
	}

	if m.transitionError != "" {
		b.WriteByte('\n')
		b.WriteString(errorStyle.Render("⚠ "+m.transitionError) + "\n")
	}

	if j.Description != "" {
		b.WriteByte('\n')
		if m.showDescription {
			b.WriteString(divider("── Description ") + "\n\n")
			b.WriteString(bodyStyle.Render(wordWrap(j.Description, wrapWidth)) + "\n")
		} else {
			b.WriteString(hintStyle.Render("  press d to read the description") + "\n")
		}
	}

	return b.String()
}

func renderJobs(jobs []*model.JobRecord, cursor int, isActive bool) string {
	if len(jobs) == 0 {
		return "  (no jobs)"
	}

	var b strings.Builder
	for i, j := range jobs {
		isSelected := isActive && i == cursor

		titleSt := jobTitleStyle
		subtitleSt := jobSubtitleStyle
		prefix := "  "
		if isSelected {
			titleSt = selectedJobTitleStyle
			subtitleSt = selectedJobSubtitleStyle
			prefix = "> "
		}

		b.WriteString(prefix)
		b.WriteString(titleSt.Render(j.Title))
		b.WriteByte('\n')

		subtitle := j.Company
		if j.Rating != "" {
			subtitle += " · " + string(j.Rating)
		}
		subtitle += " · " + string(j.Status)
		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(subtitle))
		b.WriteByte('\n')

		if i < len(jobs)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func sortJobsByCreated(jobs []*model.JobRecord) {
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// trackedStates are the post-delivery states shown in the right pane.
var trackedStates = []status.Status{status.Emailed, status.Pending, status.Applied, status.Interview}

// Run loads the review board from the store and launches the TUI.
func Run(ctx context.Context, store model.JobStore) error {
	queue, err := store.JobsByStatus(ctx, status.NeedsReview)
	if err != nil {
		return fmt.Errorf("loading review queue: %w", err)
	}

	var tracking []*model.JobRecord
	for _, s := range trackedStates {
		jobs, err := store.JobsByStatus(ctx, s)
		if err != nil {
			return fmt.Errorf("loading %s jobs: %w", s, err)
		}
		tracking = append(tracking, jobs...)
	}

	sortJobsByCreated(queue)
	sortJobsByCreated(tracking)

	m := reviewModel{
		store:        store,
		queueJobs:    queue,
		trackingJobs: tracking,
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("review ui: %w", err)
	}
	return nil
}
