// Package loader читает входные файлы лотереи: танцоров, группы и список правления.
package loader

import (
	"strings"

	"lottery/pkg/apperror"
)

// Колонки файла танцоров
const (
	ColumnStudentStatus     = "studentstatus"
	ColumnGender            = "gender"
	ColumnFirstChoice       = "1e keuze"
	ColumnSecondChoice      = "2e keuze"
	ColumnThirdChoice       = "3e keuze"
	ColumnAdvice            = "advies"
	ColumnMembership        = "lidmaatschap"
	ColumnRelationNumber    = "relatienummer"
	ColumnAlreadyMember     = "ben je al lid"
	ColumnNonDancerLastYear = "niet-dansend vorig jaar"
	ColumnUnrolledLastYear  = "uitgeloot vorig jaar"
)

// Колонки файла групп
const (
	ColumnName            = "naam"
	ColumnMaxSize         = "maximale ruimte"
	ColumnMinSize         = "minimale ruimte"
	ColumnAdditionalSpace = "extra speel ruimte"
)

// DancerColumns обязательные колонки файла танцоров
func DancerColumns() []string {
	return []string{
		ColumnStudentStatus,
		ColumnGender,
		ColumnFirstChoice,
		ColumnSecondChoice,
		ColumnThirdChoice,
		ColumnAdvice,
		ColumnMembership,
		ColumnRelationNumber,
	}
}

// ClassColumns обязательные колонки файла групп
func ClassColumns() []string {
	return []string{ColumnName, ColumnMaxSize, ColumnMinSize, ColumnAdditionalSpace}
}

// Header заголовок CSV файла. Значение неизменяемо после ParseHeader.
type Header struct {
	raw   []string
	index map[string]int
}

// NormalizeColumn приводит имя колонки к ключу поиска:
// нижний регистр, без пробелов по краям и без завершающих ':' и '?'.
func NormalizeColumn(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.TrimRight(name, " \n\r\t:?")
}

// ParseHeader индексирует заголовок. Повторяющиеся колонки - ошибка,
// пустые колонки допускаются и не индексируются.
func ParseHeader(record []string) (Header, error) {
	h := Header{
		raw:   append([]string(nil), record...),
		index: make(map[string]int, len(record)),
	}

	for i, column := range record {
		key := NormalizeColumn(column)
		if key == "" {
			continue
		}
		if _, ok := h.index[key]; ok {
			return Header{}, apperror.NewWithField(apperror.CodeDuplicateHeader,
				"duplicate header in input file: "+key, key)
		}
		h.index[key] = i
	}

	return h, nil
}

// Require проверяет наличие колонок и возвращает все недостающие сразу
func (h Header) Require(columns ...string) error {
	var missing []string
	for _, column := range columns {
		if _, ok := h.index[column]; !ok {
			missing = append(missing, column)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return apperror.Newf(apperror.CodeMissingHeader, "missing headers: %s", strings.Join(missing, ", ")).
		WithDetails("missing", missing)
}

// Index позиция колонки по нормализованному имени
func (h Header) Index(column string) (int, bool) {
	i, ok := h.index[column]
	return i, ok
}

// Has сообщает, есть ли колонка
func (h Header) Has(column string) bool {
	_, ok := h.index[column]
	return ok
}

// Columns исходные имена колонок в порядке файла (копия)
func (h Header) Columns() []string {
	return append([]string(nil), h.raw...)
}

// Len количество колонок
func (h Header) Len() int {
	return len(h.raw)
}

// Value значение колонки в записи. Отсутствующая колонка или короткая
// запись дают пустую строку.
func (h Header) Value(record []string, column string) string {
	i, ok := h.index[column]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}
