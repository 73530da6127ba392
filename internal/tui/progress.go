package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/vvka-141/pgstage/pkg/pgstage"
)

type runStartedMsg struct {
	runID uuid.UUID
	files []pgstage.SourceFile
}

type fileStartedMsg struct {
	index   int
	file    pgstage.SourceFile
	columns int
}

type progressMsg struct {
	file    pgstage.SourceFile
	batches int
	rows    int64
}

type fileFinishedMsg struct {
	result pgstage.FileResult
}

type runFinishedMsg struct {
	outcome pgstage.RunOutcome
}

// progressModel renders one line per finished file and a spinner line for
// the file being loaded.
type progressModel struct {
	spinner  spinner.Model
	runID    uuid.UUID
	total    int
	index    int
	current  *pgstage.SourceFile
	columns  int
	batches  int
	rows     int64
	finished []pgstage.FileResult
	outcome  *pgstage.RunOutcome
}

func newProgressModel() progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle
	return progressModel{spinner: s}
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runStartedMsg:
		m.runID = msg.runID
		m.total = len(msg.files)
		return m, nil
	case fileStartedMsg:
		file := msg.file
		m.index = msg.index
		m.current = &file
		m.columns = msg.columns
		m.batches, m.rows = 0, 0
		return m, nil
	case progressMsg:
		m.batches, m.rows = msg.batches, msg.rows
		return m, nil
	case fileFinishedMsg:
		m.finished = append(m.finished, msg.result)
		m.current = nil
		return m, nil
	case runFinishedMsg:
		outcome := msg.outcome
		m.outcome = &outcome
		m.current = nil
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) View() string {
	var b strings.Builder

	if m.runID != uuid.Nil {
		b.WriteString(TitleStyle.Render(fmt.Sprintf("pgstage run %s", m.runID)))
		b.WriteString(MutedStyle.Render(fmt.Sprintf(" (%d files)", m.total)))
		b.WriteString("\n")
	}

	for _, r := range m.finished {
		fmt.Fprintf(&b, "%s %s %s %s %s rows\n",
			SuccessStyle.Render(SymbolCheck),
			FileStyle.Render(r.File.Name),
			SymbolArrowRight,
			r.File.Table,
			CountStyle.Render(fmt.Sprintf("%d", r.RowsPromoted)))
	}

	if m.current != nil {
		fmt.Fprintf(&b, "%s [%d/%d] %s %s %s  %s\n",
			m.spinner.View(),
			m.index+1, m.total,
			FileStyle.Render(m.current.Name),
			SymbolArrowRight,
			m.current.Table,
			MutedStyle.Render(fmt.Sprintf("%d batches %s %d rows staged", m.batches, SymbolBullet, m.rows)))
	}

	if m.outcome != nil {
		b.WriteString(outcomeLine(*m.outcome))
		b.WriteString("\n")
	}

	return b.String()
}

func outcomeLine(o pgstage.RunOutcome) string {
	if o.Committed() {
		return SuccessStyle.Render(fmt.Sprintf("%s Committed %d rows from %d file(s) in %s",
			SymbolCheck, o.TotalRows(), len(o.Files), o.Duration().Round(time.Millisecond)))
	}
	return ErrorStyle.Render(fmt.Sprintf("%s Rolled back: %v", SymbolCross, o.Err))
}

// ProgressView is a pgstage.Observer that renders a live bubbletea view.
// The view starts with the first event; Wait releases it.
type ProgressView struct {
	program *tea.Program
	done    chan struct{}
	start   sync.Once
	err     error
}

// NewProgressView creates a progress view writing to out (normally stderr).
// It reads no input and leaves signal handling to the caller.
func NewProgressView(out io.Writer) *ProgressView {
	return &ProgressView{
		program: tea.NewProgram(newProgressModel(),
			tea.WithOutput(out),
			tea.WithInput(nil),
			tea.WithoutSignalHandler(),
		),
		done: make(chan struct{}),
	}
}

var _ pgstage.Observer = (*ProgressView)(nil)

// Start runs the view in the background.
func (v *ProgressView) Start() {
	v.start.Do(func() {
		go func() {
			defer close(v.done)
			_, v.err = v.program.Run()
		}()
	})
}

// Wait blocks until the view has rendered its final frame. It stops the
// view if the run ended without a RunFinished event.
func (v *ProgressView) Wait() error {
	v.Start()
	v.program.Quit()
	<-v.done
	return v.err
}

// send starts the view on first use; Program.Send blocks until Run is reading.
func (v *ProgressView) send(msg tea.Msg) {
	v.Start()
	v.program.Send(msg)
}

func (v *ProgressView) RunStarted(runID uuid.UUID, files []pgstage.SourceFile) {
	v.send(runStartedMsg{runID: runID, files: files})
}

func (v *ProgressView) FileStarted(index int, file pgstage.SourceFile, schema pgstage.TableSchema) {
	v.send(fileStartedMsg{index: index, file: file, columns: schema.Len()})
}

func (v *ProgressView) Progress(file pgstage.SourceFile, batches int, rows int64) {
	v.send(progressMsg{file: file, batches: batches, rows: rows})
}

func (v *ProgressView) FileFinished(result pgstage.FileResult) {
	v.send(fileFinishedMsg{result: result})
}

// RunFinished renders the outcome and returns once the view has exited.
func (v *ProgressView) RunFinished(outcome pgstage.RunOutcome) {
	v.send(runFinishedMsg{outcome: outcome})
	<-v.done
}
