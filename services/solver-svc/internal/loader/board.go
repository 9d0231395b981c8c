package loader

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"lottery/pkg/apperror"
)

// Board номера отношений членов правления
type Board map[string]struct{}

// Contains проверяет, входит ли номер отношения в правление
func (b Board) Contains(id string) bool {
	_, ok := b[id]
	return ok
}

// ReadBoard читает номера отношений, разделённые запятыми или переводом строки
func ReadBoard(r io.Reader) (Board, error) {
	board := make(Board)
	verrs := apperror.NewValidationErrors()

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		for _, field := range strings.Split(scanner.Text(), ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			id, ok := normalizeRelationNumber(field)
			if !ok {
				verrs.AddErrorWithField(apperror.CodeInvalidPerson,
					fmt.Sprintf("board file line %d: relation number %q is not a number", line, field), ColumnRelationNumber)
				continue
			}
			board[id] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInvalidInput, "failed to read board file")
	}

	if err := verrs.Err(); err != nil {
		return nil, err
	}
	return board, nil
}

// ReadBoardFile читает список правления из файла
func ReadBoardFile(path string) (Board, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadBoard(f)
}

// normalizeRelationNumber приводит номер отношения к каноническому виду: "0042" -> "42"
func normalizeRelationNumber(s string) (string, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return "", false
	}
	return strconv.Itoa(n), true
}
