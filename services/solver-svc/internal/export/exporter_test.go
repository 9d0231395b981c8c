package export

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"lottery/pkg/apperror"
	"lottery/pkg/domain"
)

func sampleReport() *Report {
	salsa := domain.Category{Name: "salsa", MinSize: 1, MaxSize: 2}
	tango := domain.Category{Name: "tango", MaxSize: 1}

	person := func(id, name, choice string, tier domain.Tier) domain.Person {
		return domain.Person{
			ID:      id,
			Tier:    tier,
			Choices: []string{choice},
			Row:     []string{id, name, choice},
		}
	}

	return &Report{
		Title:       "Lottery 2026",
		RunID:       "run-1",
		Seed:        7,
		InputHash:   "abc",
		GeneratedAt: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
		Header:      []string{"Relatienummer", "Naam", "1e keuze"},
		Assignment: domain.Assignment{
			{Category: salsa, Persons: []domain.Person{
				person("1", "Anna", "salsa", domain.TierFemale),
				person("2", "Bob", "salsa", domain.TierNonFemale),
			}},
			{Category: tango, Persons: []domain.Person{
				person("3", "Cor", "tango", domain.TierBoard),
			}},
			{Category: domain.NonParticipatingCategory(), Persons: []domain.Person{
				{ID: "4", NonParticipating: true, Row: []string{"4", "Dirk", domain.NonParticipatingName}},
			}},
			{Category: domain.WithdrawCategory(1), Persons: []domain.Person{
				person("5", "Eva, jr.", "tango", domain.TierFemale),
			}},
		},
		TotalCost:     42,
		Augmentations: 5,
		Duration:      1500 * time.Millisecond,
	}
}

func TestCSVExporter_Export(t *testing.T) {
	data, err := NewCSVExporter().Export(context.Background(), sampleReport())
	require.NoError(t, err)

	blank := strings.Repeat(",,,\n", blankRowsAfterCategory)
	want := "Relatienummer,salsa,Naam,1e keuze\n" +
		"1,,Anna,salsa\n" +
		"2,,Bob,salsa\n" +
		",Totaal:,2,\n" + blank +
		"Relatienummer,tango,Naam,1e keuze\n" +
		"3,,Cor,tango\n" +
		",Totaal:,1,\n" + blank +
		"Relatienummer,niet-dansend lid,Naam,1e keuze\n" +
		"4,,Dirk,niet-dansend lid\n" +
		",Totaal:,1,\n" + blank +
		"Relatienummer,uitgeloot,Naam,1e keuze\n" +
		"5,,\"Eva, jr.\",tango\n" +
		",Totaal:,1,\n" + blank

	assert.Equal(t, want, string(data))
}

func TestInjectColumn(t *testing.T) {
	tests := []struct {
		name   string
		record []string
		want   []string
	}{
		{"empty", nil, []string{"", "x"}},
		{"single", []string{"a"}, []string{"a", "x"}},
		{"many", []string{"a", "b", "c"}, []string{"a", "x", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, injectColumn(tt.record, "x"))
		})
	}
}

func TestTXTExporter_Export(t *testing.T) {
	data, err := NewTXTExporter().Export(context.Background(), sampleReport())
	require.NoError(t, err)

	want := "salsa:\n1,Anna,salsa\n2,Bob,salsa\n\n\n\n\n" +
		"tango:\n3,Cor,tango\n\n\n\n\n" +
		"niet-dansend lid:\n4,Dirk,niet-dansend lid\n\n\n\n\n" +
		"uitgeloot:\n5,\"Eva, jr.\",tango\n\n\n\n\n"

	assert.Equal(t, want, string(data))
}

func TestExcelExporter_Export(t *testing.T) {
	data, err := NewExcelExporter().Export(context.Background(), sampleReport())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{statisticsSheet, "salsa", "tango", "niet-dansend lid", "uitgeloot"}, f.GetSheetList())

	header, err := f.GetCellValue("salsa", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Relatienummer", header)

	name, err := f.GetCellValue("salsa", "B3")
	require.NoError(t, err)
	assert.Equal(t, "Bob", name)

	total, err := f.GetCellValue("salsa", "B4")
	require.NoError(t, err)
	assert.Equal(t, "2", total)

	title, err := f.GetCellValue(statisticsSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Lottery 2026", title)
}

func TestSheetName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"salsa", "salsa"},
		{"salsa [beginners]", "salsa beginners"},
		{"a/b:c*d?e\\f", "abcdef"},
		{"[]", "class"},
		{strings.Repeat("x", 40), strings.Repeat("x", maxSheetName)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SheetName(tt.in))
		})
	}
}

func TestUniqueSheetName(t *testing.T) {
	used := map[string]bool{"statistics": true}

	assert.Equal(t, "Statistics (2)", uniqueSheetName("Statistics", used))

	long := strings.Repeat("y", 35)
	first := uniqueSheetName(long, used)
	second := uniqueSheetName(long+"z", used)

	assert.Equal(t, strings.Repeat("y", maxSheetName), first)
	assert.Equal(t, strings.Repeat("y", maxSheetName-4)+" (2)", second)
	assert.LessOrEqual(t, len(second), maxSheetName)
}

func TestPDFExporter_Export(t *testing.T) {
	data, err := NewPDFExporter().Export(context.Background(), sampleReport())
	require.NoError(t, err)

	require.Greater(t, len(data), 4)
	assert.Equal(t, "%PDF-", string(data[:5]))
}

func TestPDFExporter_Share(t *testing.T) {
	e := NewPDFExporter()
	assert.Equal(t, "0", e.share(0, 0))
	assert.Equal(t, "1 (50.00%)", e.share(1, 2))
}

func TestJSONExporter_Export(t *testing.T) {
	data, err := NewJSONExporter().Export(context.Background(), sampleReport())
	require.NoError(t, err)

	var got JSONReport
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, "run-1", got.Metadata.RunID)
	assert.Equal(t, int64(7), got.Metadata.Seed)
	assert.Equal(t, int64(42), got.Metadata.TotalCost)
	assert.Equal(t, int64(1500), got.Metadata.DurationMs)
	assert.Equal(t, "2026-09-01 12:00:00", got.Metadata.GeneratedAt)

	require.Len(t, got.Classes, 4)
	assert.Equal(t, []string{"1", "2"}, got.Classes[0].Persons)
	assert.Equal(t, domain.KindWithdraw.String(), got.Classes[3].Kind)

	assert.Equal(t, []string{"salsa"}, got.Persons["1"])
	assert.Equal(t, 1, got.Statistics.Withdrawn)
	assert.Equal(t, 1, got.Statistics.NonParticipating)
	require.Len(t, got.Statistics.Classes, 2)
	assert.Equal(t, []int{2, 0, 0}, got.Statistics.Classes[0].Choices)
	assert.Empty(t, got.Metadata.Unplaced)
	assert.NotContains(t, string(data), "unplaced")
}

func TestJSONExporter_Unplaced(t *testing.T) {
	r := sampleReport()
	r.Unplaced = []domain.Person{{ID: "17"}, {ID: "23"}}

	data, err := NewJSONExporter().Export(context.Background(), r)
	require.NoError(t, err)

	var got JSONReport
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, []string{"17", "23"}, got.Metadata.Unplaced)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()

	assert.Equal(t, []string{"csv", "json", "pdf", "txt", "xlsx"}, reg.Formats())

	e, err := reg.Get(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, e.Format())

	_, err = reg.Get("docx")
	require.Error(t, err)
	assert.Equal(t, apperror.CodeInvalidArgument, apperror.Code(err))
}

func TestRegistry_WriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	paths, err := NewRegistry().WriteAll(context.Background(), sampleReport(), dir, []string{"csv", "txt", "json"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "out.csv"),
		filepath.Join(dir, "out.txt"),
		filepath.Join(dir, "out.json"),
	}, paths)

	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

func TestRegistry_WriteAll_UnknownFormat(t *testing.T) {
	paths, err := NewRegistry().WriteAll(context.Background(), sampleReport(), t.TempDir(), []string{"csv", "docx"})
	require.Error(t, err)
	assert.Len(t, paths, 1)
}
