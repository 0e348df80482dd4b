package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"vibecoder.app/console/internal/board"
	"vibecoder.app/console/internal/model"
)

// Printer renders session events as a plain-text transcript.
type Printer struct {
	mu sync.Mutex
	w  io.Writer

	lastPhase  string
	lastStatus string
}

var _ Observer = &Printer{}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) MessageAppended(msg model.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	// User lines were typed by the user; echoing them would double the transcript.
	if msg.Role == model.RoleUser {
		return
	}
	fmt.Fprintf(p.w, "agency> %s\n", msg.Content)
}

// BoardChanged prints a one-line notice when the phase or status moves.
// Use PrintBoard for the full view.
func (p *Printer) BoardChanged(view board.View) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if view.State != board.StateAttached {
		return
	}
	if view.Phase == p.lastPhase && view.Status == p.lastStatus {
		return
	}
	p.lastPhase, p.lastStatus = view.Phase, view.Status
	fmt.Fprintf(p.w, "[board] %s: %s\n", view.Phase, view.Status)
}

func (p *Printer) PrintBoard(view board.View) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.w, FormatBoard(view))
}

func FormatBoard(view board.View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Phase:  %s\n", view.Phase)
	fmt.Fprintf(&b, "Status: %s\n", view.Status)
	if view.Loading() {
		b.WriteString("(connecting to board...)\n")
	}
	if len(view.Tasks) == 0 {
		b.WriteString("Tasks:  none\n")
		return b.String()
	}
	b.WriteString("Tasks:\n")
	for i, task := range view.Tasks {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, task)
	}
	return b.String()
}
