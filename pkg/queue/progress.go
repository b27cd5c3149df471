package queue

import (
	"sync"

	"github.com/pterm/pterm"
)

// Progress observes a drain. Increment may be called from several goroutines.
type Progress interface {
	Start(title string, total int)
	Increment()
	Stop()
}

// NopProgress discards progress.
type NopProgress struct{}

func (NopProgress) Start(string, int) {}
func (NopProgress) Increment() {}
func (NopProgress) Stop() {}

// TerminalProgress renders a progress bar on the terminal.
type TerminalProgress struct {
	mu  sync.Mutex
	bar *pterm.ProgressbarPrinter
}

// NewTerminalProgress creates a terminal progress bar. A new bar is drawn on every Start.
func NewTerminalProgress() *TerminalProgress {
	return &TerminalProgress{}
}

func (p *TerminalProgress) Start(title string, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	bar, err := pterm.DefaultProgressbar.WithTotal(total).WithTitle(title).Start()
	if err != nil {
		return
	}
	p.bar = bar
}

func (p *TerminalProgress) Increment() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar != nil {
		p.bar.Increment()
	}
}

func (p *TerminalProgress) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar != nil {
		_, _ = p.bar.Stop()
		p.bar = nil
	}
}

var _ Progress = (*TerminalProgress)(nil)
