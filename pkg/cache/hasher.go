package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"lottery/pkg/domain"
)

// InputHash вычисляет хеш входа решателя для использования как ключ кэша.
// Порядок участников значим: он определяет порядок рёбер и разрешение ничьих.
func InputHash(persons []domain.Person, categories []domain.Category, extra ...string) string {
	data := inputToCanonical(persons, categories, extra)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}

// inputToCanonical создаёт детерминированное представление входа
func inputToCanonical(persons []domain.Person, categories []domain.Category, extra []string) []byte {
	var buf bytes.Buffer

	for _, c := range categories {
		fmt.Fprintf(&buf, "c:%q:%d:%d:%d:%d;", c.Name, c.MinSize, c.MaxSize, c.AdditionalSpace, c.Kind)
	}

	for _, p := range persons {
		fmt.Fprintf(&buf, "p:%q:%d:%t:[%s]:[%s];",
			p.ID, p.Tier, p.NonParticipating,
			quoteJoin(p.Choices), quoteJoin(p.Advised))
	}

	for _, e := range extra {
		fmt.Fprintf(&buf, "x:%q;", e)
	}

	return buf.Bytes()
}

func quoteJoin(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(quoted, ",")
}

// BuildAssignmentKey строит ключ кэша для решённого распределения
func BuildAssignmentKey(inputHash string) string {
	return "assignment:" + inputHash
}
