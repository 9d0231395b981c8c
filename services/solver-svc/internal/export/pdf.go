package export

import (
	"context"
	"fmt"
	"strconv"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"lottery/pkg/domain"
)

// PDFExporter сводка лотереи в PDF: метрики запуска и таблицы статистики.
// Списки участников в PDF не попадают, для них есть csv и xlsx.
type PDFExporter struct {
	BaseExporter
}

// NewPDFExporter создаёт выгрузку
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Format возвращает формат выгрузки
func (e *PDFExporter) Format() Format {
	return FormatPDF
}

// Стили
var (
	primaryColor   = &props.Color{Red: 52, Green: 152, Blue: 219}  // #3498db
	headerBgColor  = &props.Color{Red: 44, Green: 62, Blue: 80}    // #2c3e50
	dangerColor    = &props.Color{Red: 231, Green: 76, Blue: 60}   // #e74c3c
	lightGrayColor = &props.Color{Red: 236, Green: 240, Blue: 241} // #ecf0f1
	darkGrayColor  = &props.Color{Red: 127, Green: 140, Blue: 141} // #7f8c8d

	titleStyle = props.Text{
		Size:  24,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: headerBgColor,
	}

	h2Style = props.Text{
		Size:  16,
		Style: fontstyle.Bold,
		Color: headerBgColor,
		Top:   5,
	}

	smallStyle = props.Text{
		Size:  8,
		Color: darkGrayColor,
	}

	metricValueStyle = props.Text{
		Size:  20,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: primaryColor,
	}

	metricLabelStyle = props.Text{
		Size:  9,
		Align: align.Center,
		Color: darkGrayColor,
	}

	tableHeaderStyle = &props.Cell{
		BackgroundColor: primaryColor,
	}

	tableHeaderTextStyle = props.Text{
		Size:  9,
		Style: fontstyle.Bold,
		Color: &props.Color{Red: 255, Green: 255, Blue: 255},
		Align: align.Center,
	}

	tableCellStyle = &props.Cell{
		BorderType:  border.Bottom,
		BorderColor: lightGrayColor,
	}

	tableCellTextStyle = props.Text{
		Size:  9,
		Align: align.Center,
	}
)

// Export выгружает отчёт
func (e *PDFExporter) Export(ctx context.Context, r *Report) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber().
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		Build()

	m := maroto.New(cfg)
	stats := e.statistics(r)

	e.addHeader(m, r)

	e.addSection(m, "Run")
	e.addMetricCards(m, []metricCard{
		{Label: "Placed", Value: strconv.Itoa(r.Assignment.Placed()), Highlight: true},
		{Label: "Unenrolled", Value: strconv.Itoa(stats.Withdrawn), Highlight: true},
		{Label: "Non-dancing", Value: strconv.Itoa(stats.NonParticipating)},
	})
	m.AddRow(5)
	e.addMetricCards(m, []metricCard{
		{Label: "Total cost", Value: strconv.FormatInt(r.TotalCost, 10)},
		{Label: "Augmentations", Value: strconv.Itoa(r.Augmentations)},
		{Label: "Seed", Value: strconv.FormatInt(r.Seed, 10)},
	})

	if len(stats.Categories) > 0 {
		e.addSection(m, "Classes")
		e.addCategoryTable(m, stats.Categories)
	}

	e.addSection(m, "Groups")
	e.addTierTable(m, stats.Tiers)

	e.addFooter(m, r)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

func (e *PDFExporter) addHeader(m core.Maroto, r *Report) {
	m.AddRow(15,
		text.NewCol(12, e.Title(r), titleStyle),
	)
	m.AddRow(5,
		line.NewCol(12),
	)
	m.AddRow(6,
		text.NewCol(6, fmt.Sprintf("Run: %s", r.RunID), smallStyle),
		text.NewCol(6, fmt.Sprintf("Generated: %s", e.FormatTimestamp(r.GeneratedAt)),
			props.Text{Size: 8, Color: darkGrayColor, Align: align.Right}),
	)
	if r.InputHash != "" {
		m.AddRow(5,
			text.NewCol(12, fmt.Sprintf("Input: %s", r.InputHash), smallStyle),
		)
	}
	m.AddRow(8)
}

type metricCard struct {
	Label     string
	Value     string
	Highlight bool
}

func (e *PDFExporter) addMetricCards(m core.Maroto, cards []metricCard) {
	if len(cards) == 0 {
		return
	}

	colSize := max(12/len(cards), 2)

	var cols []core.Col
	for _, card := range cards {
		valueStyle := metricValueStyle
		if !card.Highlight {
			valueStyle.Size = 14
		}
		cols = append(cols,
			col.New(colSize).Add(
				text.New(card.Value, valueStyle),
				text.New(card.Label, metricLabelStyle),
			),
		)
	}

	m.AddRow(20, cols...)
}

func (e *PDFExporter) addSection(m core.Maroto, title string) {
	m.AddRow(10,
		text.NewCol(12, title, h2Style),
	)
	m.AddRow(2,
		line.NewCol(12, props.Line{Color: primaryColor}),
	)
	m.AddRow(5)
}

func (e *PDFExporter) addCategoryTable(m core.Maroto, categories []domain.CategoryStatistics) {
	m.AddRow(8,
		text.NewCol(3, "Class", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "Assigned", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(1, "Max", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "1st", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "2nd", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "3rd", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
	)

	for _, cs := range categories {
		assignedStyle := tableCellTextStyle
		if cs.Overflow > 0 {
			assignedStyle.Color = dangerColor
		}
		m.AddRow(6,
			text.NewCol(3, cs.Name, tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(2, strconv.Itoa(cs.Assigned), assignedStyle).WithStyle(tableCellStyle),
			text.NewCol(1, strconv.Itoa(cs.Capacity), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(2, e.share(cs.Choices[0], cs.Assigned), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(2, e.share(cs.Choices[1], cs.Assigned), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(2, e.share(cs.Choices[2], cs.Assigned), tableCellTextStyle).WithStyle(tableCellStyle),
		)
	}
}

func (e *PDFExporter) addTierTable(m core.Maroto, tiers []domain.TierStatistics) {
	m.AddRow(8,
		text.NewCol(4, "Group", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "1st", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "2nd", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "3rd", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "Unenrolled", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
	)

	for _, ts := range tiers {
		total := ts.Placed() + ts.Withdrawn
		if total == 0 {
			continue
		}
		m.AddRow(6,
			text.NewCol(4, ts.Tier.String(), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(2, e.share(ts.Choices[0], total), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(2, e.share(ts.Choices[1], total), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(2, e.share(ts.Choices[2], total), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(2, e.share(ts.Withdrawn, total), tableCellTextStyle).WithStyle(tableCellStyle),
		)
	}
}

// share количество и доля от total
func (e *PDFExporter) share(n, total int) string {
	if total == 0 {
		return strconv.Itoa(n)
	}
	return fmt.Sprintf("%d (%s)", n, e.FormatPercent(float64(n)/float64(total)))
}

func (e *PDFExporter) addFooter(m core.Maroto, r *Report) {
	m.AddRow(10)
	m.AddRow(2,
		line.NewCol(12, props.Line{Color: lightGrayColor}),
	)
	m.AddRow(6,
		text.NewCol(12,
			fmt.Sprintf("Generated by Studance lottery | seed %d | %s", r.Seed, e.FormatTimestamp(r.GeneratedAt)),
			props.Text{Size: 8, Color: darkGrayColor, Align: align.Center},
		),
	)
}
