// Package report печатает статистику распределения в консоль таблицами pterm.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/pterm/pterm"

	"lottery/pkg/domain"
)

// Summary итог прогона для строки под таблицами
type Summary struct {
	RunID         string
	Seed          int64
	Persons       int
	TotalCost     int64
	Augmentations int
	Cached        bool
}

// Printer печатает таблицы статистики в w
type Printer struct {
	w io.Writer
}

// NewPrinter создаёт принтер
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Render печатает таблицу уровней, таблицу групп и итоговую строку
func (p *Printer) Render(stats *domain.Statistics, summary Summary) error {
	tiers, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(TierTable(stats)).Srender()
	if err != nil {
		return err
	}
	categories, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(CategoryTable(stats)).Srender()
	if err != nil {
		return err
	}

	fmt.Fprintln(p.w, pterm.DefaultSection.Sprint("Assignment statistics"))
	fmt.Fprintln(p.w, tiers)
	fmt.Fprintln(p.w, pterm.DefaultSection.Sprint("Class statistics"))
	fmt.Fprintln(p.w, categories)
	fmt.Fprintln(p.w)

	fmt.Fprint(p.w, pterm.Info.Sprintfln("unenrolled members: %d, non-dancing members: %d",
		stats.Withdrawn, stats.NonParticipating))

	line := fmt.Sprintf("run %s: %d persons, total cost %d, %d augmentations, seed %d",
		summary.RunID, summary.Persons, summary.TotalCost, summary.Augmentations, summary.Seed)
	if summary.Cached {
		line += " (cached)"
	}
	fmt.Fprint(p.w, pterm.Success.Sprintln(line))
	return nil
}

// TierTable строки: уровень, 1-й, 2-й, 3-й выбор и выбывшие.
// Доли считаются от всех участников уровня, включая выбывших.
func TierTable(stats *domain.Statistics) pterm.TableData {
	data := pterm.TableData{{"Group", "1st choice", "2nd choice", "3rd choice", "unenrolled"}}

	for _, ts := range stats.Tiers {
		total := ts.Placed() + ts.Withdrawn
		row := []string{ts.Tier.String()}
		for _, n := range ts.Choices {
			row = append(row, share(n, total))
		}
		row = append(row, share(ts.Withdrawn, total))
		data = append(data, row)
	}
	return data
}

// CategoryTable строки: группа, занято, ёмкость, доли 1-го, 2-го и 3-го выбора
func CategoryTable(stats *domain.Statistics) pterm.TableData {
	data := pterm.TableData{{"Class", "Total", "Capacity", "1st choice", "2nd choice", "3rd choice"}}

	for _, cs := range stats.Categories {
		capacity := strconv.Itoa(cs.Capacity)
		if cs.Overflow > 0 {
			capacity += fmt.Sprintf(" (+%d)", cs.Overflow)
		}
		row := []string{cs.Name, strconv.Itoa(cs.Assigned), capacity}
		for _, n := range cs.Choices {
			row = append(row, share(n, cs.Assigned))
		}
		data = append(data, row)
	}
	return data
}

func share(n, total int) string {
	if total == 0 {
		return fmt.Sprintf("%3d (%6.2f%%)", n, 0.0)
	}
	return fmt.Sprintf("%3d (%6.2f%%)", n, float64(n)/float64(total)*100)
}
