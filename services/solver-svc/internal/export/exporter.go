// Package export выгружает результат лотереи в файлы: csv, txt, xlsx, pdf, json.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"lottery/pkg/apperror"
	"lottery/pkg/domain"
	"lottery/pkg/telemetry"
)

// Format формат выгрузки
type Format string

const (
	FormatCSV  Format = "csv"
	FormatTXT  Format = "txt"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
	FormatJSON Format = "json"
)

// Report данные для выгрузки
type Report struct {
	Title       string
	RunID       string
	Seed        int64
	InputHash   string
	GeneratedAt time.Time

	// Header исходные колонки файла танцоров, Person.Row выровнены по ним
	Header     []string
	Assignment domain.Assignment
	Statistics *domain.Statistics

	// Unplaced участники без размещения при исчерпанном пределе выбывших
	Unplaced []domain.Person

	TotalCost     int64
	Augmentations int
	Duration      time.Duration
}

// Exporter интерфейс выгрузки
type Exporter interface {
	Format() Format
	Export(ctx context.Context, r *Report) ([]byte, error)
}

// Registry выгрузки по форматам
type Registry struct {
	exporters map[Format]Exporter
}

// NewRegistry создаёт реестр со всеми встроенными форматами
func NewRegistry() *Registry {
	reg := &Registry{exporters: make(map[Format]Exporter)}
	reg.Register(NewCSVExporter())
	reg.Register(NewTXTExporter())
	reg.Register(NewExcelExporter())
	reg.Register(NewPDFExporter())
	reg.Register(NewJSONExporter())
	return reg
}

// Register добавляет или заменяет выгрузку
func (r *Registry) Register(e Exporter) {
	r.exporters[e.Format()] = e
}

// Get ищет выгрузку по имени формата без учёта регистра
func (r *Registry) Get(format string) (Exporter, error) {
	e, ok := r.exporters[Format(strings.ToLower(strings.TrimSpace(format)))]
	if !ok {
		return nil, apperror.Newf(apperror.CodeInvalidArgument, "unknown export format %q", format).
			WithDetails("known", r.Formats())
	}
	return e, nil
}

// Formats зарегистрированные форматы по алфавиту
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.exporters))
	for f := range r.exporters {
		out = append(out, string(f))
	}
	sort.Strings(out)
	return out
}

// WriteAll выгружает отчёт в dir во всех форматах. Файлы называются out.<формат>.
func (r *Registry) WriteAll(ctx context.Context, rep *Report, dir string, formats []string) ([]string, error) {
	ctx, span := telemetry.StartSpan(ctx, "export.WriteAll")
	defer span.End()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeExportFailure, "failed to create output directory").
			WithDetails("dir", dir)
	}

	paths := make([]string, 0, len(formats))
	for _, format := range formats {
		e, err := r.Get(format)
		if err != nil {
			return paths, err
		}

		data, err := e.Export(ctx, rep)
		if err != nil {
			telemetry.SetError(ctx, err)
			return paths, apperror.Wrap(err, apperror.CodeExportFailure, "failed to export "+string(e.Format()))
		}

		path := filepath.Join(dir, "out."+string(e.Format()))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, apperror.Wrap(err, apperror.CodeExportFailure, "failed to write export").
				WithDetails("path", path)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// BaseExporter общие утилиты выгрузок
type BaseExporter struct{}

// Title заголовок отчёта
func (b *BaseExporter) Title(r *Report) string {
	if r.Title != "" {
		return r.Title
	}
	return "Lottery result"
}

// FormatPercent форматирует долю как процент
func (b *BaseExporter) FormatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// FormatTimestamp форматирует время
func (b *BaseExporter) FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format("2006-01-02 15:04:05")
}

// statistics возвращает статистику отчёта, вычисляя её при отсутствии
func (b *BaseExporter) statistics(r *Report) *domain.Statistics {
	if r.Statistics != nil {
		return r.Statistics
	}
	return domain.CalculateStatistics(r.Assignment)
}
