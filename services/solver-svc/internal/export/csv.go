package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
)

// blankRowsAfterCategory пустые строки между блоками групп
const blankRowsAfterCategory = 4

// CSVExporter выгрузка в формате исходной таблицы: на каждую группу блок
// с заголовком, строками танцоров, строкой "Totaal:" и четырьмя пустыми строками.
// Имя группы вставляется второй колонкой.
type CSVExporter struct {
	BaseExporter
}

// NewCSVExporter создаёт выгрузку
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Format возвращает формат выгрузки
func (e *CSVExporter) Format() Format {
	return FormatCSV
}

// csvWriter обёртка для отслеживания ошибок
type csvWriter struct {
	w   *csv.Writer
	err error
}

func (cw *csvWriter) Write(record []string) {
	if cw.err != nil {
		return
	}
	cw.err = cw.w.Write(record)
}

func (cw *csvWriter) Flush() {
	if cw.err != nil {
		return
	}
	cw.w.Flush()
	cw.err = cw.w.Error()
}

// Export выгружает отчёт
func (e *CSVExporter) Export(ctx context.Context, r *Report) ([]byte, error) {
	var buf bytes.Buffer
	cw := &csvWriter{w: csv.NewWriter(&buf)}

	columns := len(r.Header) + 1
	blankRow := make([]string, columns)

	for _, placement := range r.Assignment {
		cw.Write(injectColumn(r.Header, placement.Category.Name))

		for _, p := range placement.Persons {
			cw.Write(injectColumn(p.Row, ""))
		}

		total := make([]string, max(columns, 3))
		total[1] = "Totaal:"
		total[2] = strconv.Itoa(len(placement.Persons))
		cw.Write(total)

		for range blankRowsAfterCategory {
			cw.Write(blankRow)
		}
	}

	cw.Flush()
	if cw.err != nil {
		return nil, fmt.Errorf("csv write error: %w", cw.err)
	}
	return buf.Bytes(), nil
}

// injectColumn вставляет value второй колонкой
func injectColumn(record []string, value string) []string {
	out := make([]string, 0, len(record)+1)
	if len(record) > 0 {
		out = append(out, record[0])
	} else {
		out = append(out, "")
	}
	out = append(out, value)
	if len(record) > 1 {
		out = append(out, record[1:]...)
	}
	return out
}
