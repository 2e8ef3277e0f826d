package util

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	padding  = 2
	maxWidth = 80
)

var helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")).Render

// ProgressBar renders extraction progress as records are processed. When the
// total record count is unknown it falls back to a running counter.
type ProgressBar struct {
	program    *tea.Program
	progress   progress.Model
	processed  int
	total      int
	stopped    bool
	mutex      sync.Mutex
	ctx        context.Context
	cancelFunc context.CancelFunc
	message    string
}

func NewProgressBar(ctx context.Context, cancelFunc context.CancelFunc) *ProgressBar {
	m := ProgressBar{
		progress:   progress.New(progress.WithDefaultGradient()),
		ctx:        ctx,
		cancelFunc: cancelFunc,
	}
	m.program = tea.NewProgram(&m, tea.WithContext(ctx), tea.WithoutSignalHandler())

	go func(m *ProgressBar) {
		if _, err := m.program.Run(); err != nil && ctx.Err() == nil {
			panic(err)
		}
	}(&m)

	return &m
}

func (m *ProgressBar) Stop() {
	m.mutex.Lock()
	m.stopped = true
	m.mutex.Unlock()
	select {
	case <-m.ctx.Done():
	case <-time.After(time.Second):
		return
	}
}

// SetCount updates the processed and total record counts. A total of zero
// means the total is unknown.
func (m *ProgressBar) SetCount(processed int, total int) {
	m.mutex.Lock()
	m.processed = processed
	m.total = total
	m.mutex.Unlock()
}

func (m *ProgressBar) SetMessage(msg string) {
	m.mutex.Lock()
	m.message = msg
	m.mutex.Unlock()
}

func (m *ProgressBar) percent() float64 {
	if m.total <= 0 {
		return 0
	}
	p := float64(m.processed) / float64(m.total)
	if p > 1 {
		p = 1
	}
	return p
}

// RunWithProgress renders a progress bar for the duration of fn.
func RunWithProgress(ctx context.Context, cancel context.CancelFunc, fn func(*ProgressBar)) {
	bar := NewProgressBar(ctx, cancel)
	fn(bar)
	bar.Stop()
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*250, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *ProgressBar) Init() tea.Cmd {
	return tickCmd()
}

func (m *ProgressBar) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancelFunc()
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.progress.Width = msg.Width - padding*2 - 4
		if m.progress.Width > maxWidth {
			m.progress.Width = maxWidth
		}
		return m, nil

	case tickMsg:
		if m.stopped {
			return m, tea.Quit
		}
		return m, tickCmd()

	default:
		return m, nil
	}
}

func (m *ProgressBar) View() string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	pad := strings.Repeat(" ", padding)
	var line string
	if m.total > 0 {
		line = fmt.Sprintf("%s %d/%d", m.progress.ViewAs(m.percent()), m.processed, m.total)
	} else {
		line = fmt.Sprintf("%d records", m.processed)
	}
	return "\n" + pad + line + "\n\n" + pad + helpStyle(m.message)
}
