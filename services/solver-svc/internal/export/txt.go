package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
)

// TXTExporter текстовая выгрузка: имя группы, исходные строки танцоров, пустые строки
type TXTExporter struct {
	BaseExporter
}

// NewTXTExporter создаёт выгрузку
func NewTXTExporter() *TXTExporter {
	return &TXTExporter{}
}

// Format возвращает формат выгрузки
func (e *TXTExporter) Format() Format {
	return FormatTXT
}

// Export выгружает отчёт
func (e *TXTExporter) Export(ctx context.Context, r *Report) ([]byte, error) {
	var buf bytes.Buffer

	for _, placement := range r.Assignment {
		fmt.Fprintf(&buf, "%s:\n", placement.Category.Name)

		// строки пишутся через csv, чтобы поля с запятыми остались в кавычках
		w := csv.NewWriter(&buf)
		for _, p := range placement.Persons {
			if err := w.Write(p.Row); err != nil {
				return nil, fmt.Errorf("txt write error: %w", err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, fmt.Errorf("txt write error: %w", err)
		}

		buf.WriteString("\n\n\n\n")
	}

	return buf.Bytes(), nil
}
