package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// ProgressBar shows how many of a known number of items are done, such as
// records in a batch publish.
type ProgressBar struct {
	w      io.Writer
	title  string
	total  int
	done   int
	failed int
	width  int
	mu     sync.Mutex
}

// NewProgressBar creates a progress bar over total items.
func NewProgressBar(w io.Writer, title string, total int) *ProgressBar {
	return &ProgressBar{
		w:     w,
		title: title,
		total: total,
		width: 30,
	}
}

// Succeed records one finished item.
func (p *ProgressBar) Succeed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	p.render()
}

// Failed records one failed item. Failures count towards completion.
func (p *ProgressBar) Failed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	p.failed++
	p.render()
}

// Finish ends the bar's line.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.render()
	fmt.Fprintln(p.w)
}

func (p *ProgressBar) render() {
	if p.total <= 0 {
		fmt.Fprintf(p.w, "\r%s %d", p.title, p.done)
		return
	}

	ratio := float64(p.done) / float64(p.total)
	if ratio > 1 {
		ratio = 1
	}
	filled := int(float64(p.width) * ratio)

	fmt.Fprintf(p.w, "\r%s [%s%s] %3.0f%% (%d/%d",
		p.title,
		strings.Repeat("█", filled),
		strings.Repeat("░", p.width-filled),
		ratio*100,
		p.done, p.total,
	)
	if p.failed > 0 {
		fmt.Fprintf(p.w, ", %d failed", p.failed)
	}
	fmt.Fprint(p.w, ")")
}
