package export

import (
	"context"
	"encoding/json"
)

// JSONExporter машиночитаемая выгрузка результата
type JSONExporter struct {
	BaseExporter
}

// NewJSONExporter создаёт выгрузку
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

// Format возвращает формат выгрузки
func (e *JSONExporter) Format() Format {
	return FormatJSON
}

// JSONReport структура JSON выгрузки
type JSONReport struct {
	Metadata   JSONMetadata        `json:"metadata"`
	Classes    []JSONPlacement     `json:"classes"`
	Statistics JSONStatistics      `json:"statistics"`
	Persons    map[string][]string `json:"persons"`
}

type JSONMetadata struct {
	Title         string `json:"title"`
	RunID         string `json:"runId"`
	Seed          int64  `json:"seed"`
	InputHash     string `json:"inputHash,omitempty"`
	GeneratedAt   string `json:"generatedAt"`
	TotalCost     int64  `json:"totalCost"`
	Augmentations int    `json:"augmentations"`
	DurationMs    int64  `json:"durationMs"`

	Unplaced []string `json:"unplaced,omitempty"`
}

type JSONPlacement struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	MaxSize int      `json:"maxSize"`
	Persons []string `json:"persons"`
}

type JSONStatistics struct {
	Tiers            []JSONTier     `json:"tiers"`
	Classes          []JSONCategory `json:"classes"`
	NonParticipating int            `json:"nonParticipating"`
	Withdrawn        int            `json:"withdrawn"`
}

type JSONTier struct {
	Tier      string `json:"tier"`
	Choices   []int  `json:"choices"`
	Withdrawn int    `json:"withdrawn"`
}

type JSONCategory struct {
	Name     string `json:"name"`
	Assigned int    `json:"assigned"`
	Capacity int    `json:"capacity"`
	Overflow int    `json:"overflow"`
	Choices  []int  `json:"choices"`
}

// Export выгружает отчёт
func (e *JSONExporter) Export(ctx context.Context, r *Report) ([]byte, error) {
	stats := e.statistics(r)

	report := JSONReport{
		Metadata: JSONMetadata{
			Title:         e.Title(r),
			RunID:         r.RunID,
			Seed:          r.Seed,
			InputHash:     r.InputHash,
			GeneratedAt:   e.FormatTimestamp(r.GeneratedAt),
			TotalCost:     r.TotalCost,
			Augmentations: r.Augmentations,
			DurationMs:    r.Duration.Milliseconds(),
		},
		Classes: make([]JSONPlacement, 0, len(r.Assignment)),
		Statistics: JSONStatistics{
			NonParticipating: stats.NonParticipating,
			Withdrawn:        stats.Withdrawn,
		},
		Persons: r.Assignment.ByPerson(),
	}

	for _, p := range r.Unplaced {
		report.Metadata.Unplaced = append(report.Metadata.Unplaced, p.ID)
	}

	for _, placement := range r.Assignment {
		ids := make([]string, 0, len(placement.Persons))
		for _, p := range placement.Persons {
			ids = append(ids, p.ID)
		}
		report.Classes = append(report.Classes, JSONPlacement{
			Name:    placement.Category.Name,
			Kind:    placement.Category.Kind.String(),
			MaxSize: placement.Category.MaxSize,
			Persons: ids,
		})
	}

	for _, ts := range stats.Tiers {
		report.Statistics.Tiers = append(report.Statistics.Tiers, JSONTier{
			Tier:      ts.Tier.String(),
			Choices:   ts.Choices[:],
			Withdrawn: ts.Withdrawn,
		})
	}
	for _, cs := range stats.Categories {
		report.Statistics.Classes = append(report.Statistics.Classes, JSONCategory{
			Name:     cs.Name,
			Assigned: cs.Assigned,
			Capacity: cs.Capacity,
			Overflow: cs.Overflow,
			Choices:  cs.Choices[:],
		})
	}

	return json.MarshalIndent(report, "", "  ")
}
