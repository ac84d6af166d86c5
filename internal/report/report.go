// Package report defines the engine report consumed by attached consumers,
// plus a lipgloss-styled printer used by the shell CLI. Consumers are invoked
// synchronously on the search thread between iterations or on significant best-move
// changes; they must be fast, since a slow consumer directly steals search
// time.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/abapaengine/core/internal/game"
)

// Report is produced on every consumer callback.
type Report struct {
	Depth        game.Depth
	Flag         game.Flag
	CentiPawns   int
	PV           []game.Move
	NodesVisited uint64
}

// Consumer receives Reports. Implementations must return quickly: the search thread
// blocks on each call.
type Consumer func(Report)

var (
	depthStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	scoreStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	flagStyle  = lipgloss.NewStyle().Faint(true)
)

// String renders r for a terminal, styled with lipgloss and wrapped to the detected
// terminal width, falling back to 80 columns when the width can't be determined (e.g.
// output is redirected to a file).
func (r Report) String() string {
	width, _, err := term.GetSize(0)
	if err != nil || width <= 0 {
		width = 80
	}

	pvParts := make([]string, len(r.PV))
	for i, m := range r.PV {
		pvParts[i] = m.String()
	}
	pv := strings.Join(pvParts, " ")

	line := fmt.Sprintf("%s %s %s  pv %s",
		depthStyle.Render(fmt.Sprintf("depth %d", r.Depth)),
		scoreStyle.Render(fmt.Sprintf("cp %+d", r.CentiPawns)),
		flagStyle.Render(fmt.Sprintf("(%s)", r.Flag)),
		pv)
	if len(line) > width && width > 10 {
		line = line[:width-1] + "…"
	}
	return line
}

// Broadcaster fans a Report out to a set of attached Consumers, in attachment order. It
// is not safe for concurrent Attach/Notify calls, consistent with the single-threaded
// search core.
type Broadcaster struct {
	consumers []Consumer
}

// Attach registers c to receive future reports.
func (b *Broadcaster) Attach(c Consumer) {
	b.consumers = append(b.consumers, c)
}

// Notify invokes every attached consumer with r, in order, to completion, before
// returning control to the search loop: consumers run to completion before search
// resumes.
func (b *Broadcaster) Notify(r Report) {
	for _, c := range b.consumers {
		c(r)
	}
}
