// Package decisionlog keeps the solver steps of a run and renders them as a
// readable narrative: who was assigned, who was displaced and where they went.
package decisionlog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"lottery/pkg/apperror"
	"lottery/services/solver-svc/internal/algorithms"
	"lottery/services/solver-svc/internal/encoding"
)

// Log records decisions in order. It implements algorithms.Recorder.
type Log struct {
	layout    *encoding.Layout
	decisions []algorithms.Decision
}

var _ algorithms.Recorder = (*Log)(nil)

// New creates an empty log resolving nodes through layout.
func New(layout *encoding.Layout) *Log {
	return &Log{layout: layout}
}

// Record appends d. The path is copied.
func (l *Log) Record(d algorithms.Decision) {
	d.Path = append([]int(nil), d.Path...)
	l.decisions = append(l.decisions, d)
}

// Decisions returns the recorded decisions.
func (l *Log) Decisions() []algorithms.Decision {
	return l.decisions
}

// Len returns the number of recorded decisions.
func (l *Log) Len() int {
	return len(l.decisions)
}

// Render writes one block per decision in chronological order.
func (l *Log) Render(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, d := range l.decisions {
		for _, line := range l.block(d) {
			if _, err := bw.WriteString(line + "\n"); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile renders the log into path, creating parent directories.
func (l *Log) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperror.Wrap(err, apperror.CodeExportFailure, "failed to create decision log directory")
	}
	f, err := os.Create(path)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeExportFailure, "failed to create decision log")
	}
	if err := l.Render(f); err != nil {
		f.Close()
		return apperror.Wrap(err, apperror.CodeExportFailure, "failed to write decision log")
	}
	return f.Close()
}

func (l *Log) block(d algorithms.Decision) []string {
	if d.Cycle {
		names := make([]string, len(d.Path))
		for i, n := range d.Path {
			names[i] = l.layout.Describe(n)
		}
		return []string{
			fmt.Sprintf("Step %d: negative cost cycle", d.Step),
			"  " + strings.Join(names, " -> "),
		}
	}

	lines := []string{fmt.Sprintf("Step %d (cost %+d)", d.Step, d.CostDelta)}
	for _, e := range l.events(d.Path) {
		lines = append(lines, "  "+e)
	}
	return lines
}

// events classifies each transition of the path. Tier nodes and the sink
// only tell which band the final seat is taken from.
func (l *Log) events(path []int) []string {
	lay := l.layout
	var out []string

	for i := 1; i < len(path); i++ {
		from, to := path[i-1], path[i]
		fk, tk := lay.Classify(from), lay.Classify(to)

		switch {
		case fk == encoding.KindSource && tk == encoding.KindPerson:
			out = append(out, fmt.Sprintf("%s enters the lottery", lay.Describe(to)))

		case fk == encoding.KindPerson && tk == encoding.KindWithdraw:
			out = append(out, fmt.Sprintf("%s is withdrawn", lay.Describe(from)))

		case fk == encoding.KindPerson && tk == encoding.KindNonParticipating:
			out = append(out, fmt.Sprintf("%s does not dance", lay.Describe(from)))

		case fk == encoding.KindPerson && tk == encoding.KindCategory:
			out = append(out, fmt.Sprintf("%s is assigned to %s", lay.Describe(from), categoryName(lay, to)))

		case tk == encoding.KindPerson && isCategoryLike(fk):
			out = append(out, fmt.Sprintf("%s is displaced from %s", lay.Describe(to), categoryName(lay, from)))

		case fk == encoding.KindPerson && tk == encoding.KindSource:
			out = append(out, fmt.Sprintf("%s leaves the lottery", lay.Describe(from)))

		case fk == encoding.KindCategory && tk == encoding.KindTier:
			_, band, _ := lay.TierIndex(to)
			out = append(out, fmt.Sprintf("seat taken from the %s band", band))

		case fk == encoding.KindTier && tk == encoding.KindCategory:
			_, band, _ := lay.TierIndex(from)
			out = append(out, fmt.Sprintf("seat returned to the %s band", band))
		}
	}
	return out
}

func isCategoryLike(k encoding.NodeKind) bool {
	return k == encoding.KindCategory || k == encoding.KindWithdraw || k == encoding.KindNonParticipating
}

func categoryName(lay *encoding.Layout, node int) string {
	return strings.TrimPrefix(lay.Describe(node), "category ")
}
