package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"lottery/pkg/domain"
)

const (
	statisticsSheet = "Statistics"
	maxSheetName    = 31
)

// ExcelExporter выгрузка в Excel: лист статистики и лист на каждую группу
type ExcelExporter struct {
	BaseExporter
}

// NewExcelExporter создаёт выгрузку
func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{}
}

// Format возвращает формат выгрузки
func (e *ExcelExporter) Format() Format {
	return FormatXLSX
}

// Export выгружает отчёт
func (e *ExcelExporter) Export(ctx context.Context, r *Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	if _, err := f.NewSheet(statisticsSheet); err != nil {
		return nil, err
	}
	// Удаляем дефолтный лист после создания своего, иначе книга останется без листов
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	e.writeStatistics(f, r, headerStyle)

	used := map[string]bool{strings.ToLower(statisticsSheet): true}
	for _, placement := range r.Assignment {
		name := uniqueSheetName(placement.Category.Name, used)
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to create sheet %q: %w", name, err)
		}
		e.writePlacement(f, name, r.Header, placement, headerStyle)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *ExcelExporter) writeStatistics(f *excelize.File, r *Report, headerStyle int) {
	sheet := statisticsSheet
	stats := e.statistics(r)
	row := 1

	f.SetCellValue(sheet, cellAddr("A", row), e.Title(r))
	f.MergeCell(sheet, cellAddr("A", row), cellAddr("F", row))
	row += 2

	f.SetCellValue(sheet, cellAddr("A", row), "Run")
	f.SetCellStyle(sheet, cellAddr("A", row), cellAddr("B", row), headerStyle)
	row++

	for _, kv := range []keyValue{
		{"Run ID", r.RunID},
		{"Seed", fmt.Sprintf("%d", r.Seed)},
		{"Input hash", r.InputHash},
		{"Total cost", fmt.Sprintf("%d", r.TotalCost)},
		{"Augmentations", fmt.Sprintf("%d", r.Augmentations)},
		{"Generated", e.FormatTimestamp(r.GeneratedAt)},
	} {
		f.SetCellValue(sheet, cellAddr("A", row), kv.Key)
		f.SetCellValue(sheet, cellAddr("B", row), kv.Value)
		row++
	}
	row++

	headers := []string{"Group", "1st choice", "2nd choice", "3rd choice", "Unenrolled"}
	for i, h := range headers {
		f.SetCellValue(sheet, cellAddr(string(rune('A'+i)), row), h)
	}
	f.SetCellStyle(sheet, cellAddr("A", row), cellAddr("E", row), headerStyle)
	row++

	for _, ts := range stats.Tiers {
		f.SetCellValue(sheet, cellAddr("A", row), ts.Tier.String())
		f.SetCellValue(sheet, cellAddr("B", row), ts.Choices[0])
		f.SetCellValue(sheet, cellAddr("C", row), ts.Choices[1])
		f.SetCellValue(sheet, cellAddr("D", row), ts.Choices[2])
		f.SetCellValue(sheet, cellAddr("E", row), ts.Withdrawn)
		row++
	}
	row++

	headers = []string{"Class", "Assigned", "Capacity", "1st choice", "2nd choice", "3rd choice"}
	for i, h := range headers {
		f.SetCellValue(sheet, cellAddr(string(rune('A'+i)), row), h)
	}
	f.SetCellStyle(sheet, cellAddr("A", row), cellAddr("F", row), headerStyle)
	row++

	for _, cs := range stats.Categories {
		f.SetCellValue(sheet, cellAddr("A", row), cs.Name)
		f.SetCellValue(sheet, cellAddr("B", row), cs.Assigned)
		f.SetCellValue(sheet, cellAddr("C", row), cs.Capacity)
		f.SetCellValue(sheet, cellAddr("D", row), cs.Choices[0])
		f.SetCellValue(sheet, cellAddr("E", row), cs.Choices[1])
		f.SetCellValue(sheet, cellAddr("F", row), cs.Choices[2])
		row++
	}
	row++

	f.SetCellValue(sheet, cellAddr("A", row), "Non-dancing members")
	f.SetCellValue(sheet, cellAddr("B", row), stats.NonParticipating)
	row++
	f.SetCellValue(sheet, cellAddr("A", row), "Unenrolled members")
	f.SetCellValue(sheet, cellAddr("B", row), stats.Withdrawn)
}

// writePlacement пишет исходные строки участников группы под заголовком файла танцоров
func (e *ExcelExporter) writePlacement(f *excelize.File, sheet string, header []string, placement domain.Placement, headerStyle int) {
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	if len(header) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(header), 1)
		f.SetCellStyle(sheet, "A1", last, headerStyle)
	}

	for i, p := range placement.Persons {
		for j, v := range p.Row {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	total := len(placement.Persons) + 2
	f.SetCellValue(sheet, cellAddr("A", total), "Totaal:")
	f.SetCellValue(sheet, cellAddr("B", total), len(placement.Persons))
}

// sheetNameReplacer убирает символы, запрещённые Excel в именах листов
var sheetNameReplacer = strings.NewReplacer(
	"[", "", "]", "", ":", "", "*", "", "?", "", "/", "", "\\", "",
)

// SheetName приводит имя группы к допустимому имени листа
func SheetName(name string) string {
	name = strings.TrimSpace(sheetNameReplacer.Replace(name))
	if name == "" {
		name = "class"
	}
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	return name
}

// uniqueSheetName добавляет суффикс, если имя после обрезки совпало с уже занятым
func uniqueSheetName(name string, used map[string]bool) string {
	base := SheetName(name)
	candidate := base
	for i := 2; used[strings.ToLower(candidate)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		r := []rune(base)
		if len(r)+len(suffix) > maxSheetName {
			r = r[:maxSheetName-len(suffix)]
		}
		candidate = string(r) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func cellAddr(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

type keyValue struct {
	Key   string
	Value string
}
