package importer

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
)

// phaseProgress reports batch progress one phase at a time on a single
// redrawn line. Page workers advance it concurrently.
type phaseProgress struct {
	mu    sync.Mutex
	out   io.Writer
	bar   progress.Model
	phase string
	done  int
	total int
	drawn bool
}

// newPhaseProgress returns nil when out is not a terminal; a nil
// *phaseProgress ignores every call.
func newPhaseProgress(out *os.File) *phaseProgress {
	if !isTerminal(out) {
		return nil
	}
	return newPhaseProgressTo(out)
}

func newPhaseProgressTo(out io.Writer) *phaseProgress {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = 32
	return &phaseProgress{out: out, bar: bar}
}

// Start ends the current phase line, if any, and begins a new one.
func (p *phaseProgress) Start(phase string, total int) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.endLine()
	p.phase, p.done, p.total = phase, 0, total
	p.draw()
}

func (p *phaseProgress) Advance() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done < p.total {
		p.done++
	}
	p.draw()
}

func (p *phaseProgress) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.endLine()
}

func (p *phaseProgress) endLine() {
	if p.drawn {
		fmt.Fprint(p.out, "\n")
		p.drawn = false
	}
}

func (p *phaseProgress) draw() {
	percent := 1.0
	if p.total > 0 {
		percent = float64(p.done) / float64(p.total)
	}
	fmt.Fprintf(p.out, "\r%-12s %s %d/%d", p.phase, p.bar.ViewAs(percent), p.done, p.total)
	p.drawn = true
}

func isTerminal(f *os.File) bool {
	if f == nil || strings.EqualFold(os.Getenv("TERM"), "dumb") {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
