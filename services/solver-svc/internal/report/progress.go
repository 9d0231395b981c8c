package report

import (
	"github.com/pterm/pterm"

	"lottery/services/solver-svc/internal/algorithms"
)

// ProgressBar показывает прогресс решателя полосой pterm. Шкала в процентах.
type ProgressBar struct {
	bar *pterm.ProgressbarPrinter
}

// StartProgressBar запускает полосу прогресса
func StartProgressBar(title string) (*ProgressBar, error) {
	bar, err := pterm.DefaultProgressbar.
		WithTotal(100).
		WithTitle(title).
		WithRemoveWhenDone(true).
		Start()
	if err != nil {
		return nil, err
	}
	return &ProgressBar{bar: bar}, nil
}

// Update продвигает полосу до процента из p. Подходит как algorithms.ProgressFunc.
func (b *ProgressBar) Update(p algorithms.Progress) {
	target := min(int(p.Percent()), 100)
	if delta := target - b.bar.Current; delta > 0 {
		b.bar.Add(delta)
	}
}

// Stop убирает полосу
func (b *ProgressBar) Stop() {
	_, _ = b.bar.Stop()
}
