package loader

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"lottery/pkg/apperror"
	"lottery/pkg/domain"
)

// ReadClasses читает группы из CSV с колонками
// naam, maximale ruimte, minimale ruimte, extra speel ruimte.
// Имена групп приводятся к нижнему регистру. Собираются все ошибки файла.
func ReadClasses(r io.Reader) ([]domain.Category, error) {
	header, records, err := readRecords(r, "classes file")
	if err != nil {
		return nil, err
	}
	if err := header.Require(ClassColumns()...); err != nil {
		return nil, err
	}

	verrs := apperror.NewValidationErrors()
	seen := make(map[string]int, len(records))
	categories := make([]domain.Category, 0, len(records))

	for i, record := range records {
		line := i + 2
		name := strings.ToLower(strings.TrimSpace(header.Value(record, ColumnName)))

		c := domain.Category{Name: name, Kind: domain.KindReal}
		c.MaxSize = parseSize(verrs, header.Value(record, ColumnMaxSize), ColumnMaxSize, line)
		c.MinSize = parseSize(verrs, header.Value(record, ColumnMinSize), ColumnMinSize, line)
		c.AdditionalSpace = parseSize(verrs, header.Value(record, ColumnAdditionalSpace), ColumnAdditionalSpace, line)

		if prev, ok := seen[name]; ok && name != "" {
			verrs.Add(apperror.Newf(apperror.CodeDuplicateCategory,
				"line %d: category %s already defined on line %d", line, name, prev).WithField(ColumnName))
			continue
		}
		if err := c.Validate(); err != nil {
			verrs.Add(apperror.Newf(apperror.CodeInvalidCapacity, "line %d: %v", line, err).WithField(ColumnName))
			continue
		}

		seen[name] = line
		categories = append(categories, c)
	}

	if err := verrs.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

// ReadClassesFile читает группы из файла
func ReadClassesFile(path string) ([]domain.Category, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadClasses(f)
}

func parseSize(verrs *apperror.ValidationErrors, value, column string, line int) int {
	value = strings.TrimSpace(value)
	n, err := strconv.Atoi(value)
	if err != nil {
		verrs.AddErrorWithField(apperror.CodeInvalidCapacity,
			fmt.Sprintf("line %d: %s %q is not a number", line, column, value), column)
		return 0
	}
	return n
}
