package loader

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"lottery/pkg/apperror"
)

// FindInputFile возвращает первый существующий файл из кандидатов в каталоге dir
func FindInputFile(dir string, candidates []string) (string, error) {
	searched := make([]string, 0, len(candidates))
	for _, name := range candidates {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
		searched = append(searched, path)
	}

	name := "input"
	if len(candidates) > 0 {
		name = candidates[0]
	}
	return "", apperror.Newf(apperror.CodeInputNotFound, "failed to find %s file", name).
		WithDetails("searched", searched)
}

// newCSVReader настраивает csv.Reader под выгрузки из таблиц:
// записи разной длины и кавычки внутри полей допускаются.
func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false
	return cr
}

// readRecords читает заголовок и все непустые записи
func readRecords(r io.Reader, source string) (Header, [][]string, error) {
	cr := newCSVReader(r)

	first, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Header{}, nil, apperror.Newf(apperror.CodeMissingHeader, "%s is empty", source)
	}
	if err != nil {
		return Header{}, nil, apperror.Wrap(err, apperror.CodeInvalidInput, "failed to read header of "+source)
	}

	header, err := ParseHeader(first)
	if err != nil {
		return Header{}, nil, err
	}

	var records [][]string
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Header{}, nil, apperror.Wrap(err, apperror.CodeInvalidInput, "failed to read "+source)
		}
		if blank(record) {
			continue
		}
		records = append(records, record)
	}

	return header, records, nil
}

func blank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperror.Wrap(err, apperror.CodeInputNotFound, "input file not found").
				WithDetails("path", path)
		}
		return nil, apperror.Wrap(err, apperror.CodeInvalidInput, "failed to open input file").
			WithDetails("path", path)
	}
	return f, nil
}
