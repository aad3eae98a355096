package fetch

import (
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"
)

// progress renders a single-line download indicator on a terminal and stays
// silent everywhere else, so piped output is never polluted.
type progress struct {
	out     io.Writer
	label   string
	total   int64
	written int64
	tty     bool
	last    time.Time
}

func newProgress(out *os.File, label string, total int64) *progress {
	return &progress{
		out:   out,
		label: label,
		total: total,
		tty:   term.IsTerminal(int(out.Fd())),
	}
}

func (p *progress) Write(data []byte) (int, error) {
	p.written += int64(len(data))
	if !p.tty || p.total <= 0 {
		return len(data), nil
	}
	if now := time.Now(); now.Sub(p.last) >= 100*time.Millisecond {
		p.last = now
		percent := p.written * 100 / p.total
		fmt.Fprintf(p.out, "\r%s ... %d%%", p.label, percent)
	}
	return len(data), nil
}

func (p *progress) done() {
	if p.tty && p.total > 0 {
		fmt.Fprintf(p.out, "\r%s ... done\n", p.label)
	}
}
