package loader

import (
	"fmt"
	"io"
	"strings"

	"lottery/pkg/apperror"
	"lottery/pkg/domain"
)

// Значения анкеты
const (
	damnChoice          = "d.a.m.n."
	statusStudent       = "student"
	statusGapYear       = "tussenjaar"
	genderFemale        = "vrouw"
	answerNo            = "nee"
	answerYes           = "ja"
	halfYearMembership  = "halfjaarlijkslidmaatschap"
	adviceNotMember     = "ik was vorig jaar geen lid"
	choiceCutoff        = "("
	adviceListSeparator = ","
)

// Dancers прочитанный файл танцоров
type Dancers struct {
	Header  Header
	Persons []domain.Person
}

// ReadDancers читает анкеты танцоров. categories - группы из файла групп,
// board - номера членов правления. Все ошибки файла собираются вместе.
func ReadDancers(r io.Reader, categories []domain.Category, board Board) (*Dancers, error) {
	header, records, err := readRecords(r, "dancers file")
	if err != nil {
		return nil, err
	}
	if err := header.Require(DancerColumns()...); err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(categories)+1)
	for _, c := range categories {
		known[c.Name] = true
	}
	known[domain.NonParticipatingName] = true

	verrs := apperror.NewValidationErrors()
	seen := make(map[string]int, len(records))
	persons := make([]domain.Person, 0, len(records))

	for i, record := range records {
		line := i + 2
		p, ok := parseDancer(header, record, line, known, board, verrs)
		if !ok {
			continue
		}
		if prev, dup := seen[p.ID]; dup {
			verrs.AddErrorWithField(apperror.CodeInvalidPerson,
				fmt.Sprintf("line %d: relation number %s already used on line %d", line, p.ID, prev),
				ColumnRelationNumber)
			continue
		}
		seen[p.ID] = line
		persons = append(persons, p)
	}

	if err := verrs.Err(); err != nil {
		return nil, err
	}
	return &Dancers{Header: header, Persons: persons}, nil
}

// ReadDancersFile читает анкеты из файла
func ReadDancersFile(path string, categories []domain.Category, board Board) (*Dancers, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadDancers(f, categories, board)
}

func parseDancer(h Header, record []string, line int, known map[string]bool, board Board, verrs *apperror.ValidationErrors) (domain.Person, bool) {
	ok := true

	rawID := strings.TrimSpace(h.Value(record, ColumnRelationNumber))
	id, valid := normalizeRelationNumber(rawID)
	if !valid {
		verrs.AddErrorWithField(apperror.CodeInvalidPerson,
			fmt.Sprintf("line %d: relation number %q is not a number", line, rawID), ColumnRelationNumber)
		ok = false
	}

	choices := make([]string, 0, domain.MaxChoices)
	for _, column := range []string{ColumnFirstChoice, ColumnSecondChoice, ColumnThirdChoice} {
		choices = append(choices, CleanChoice(h.Value(record, column)))
	}
	choices = dedupeChoices(choices)

	for _, c := range choices {
		if c != "" && !known[c] {
			verrs.Add(apperror.Newf(apperror.CodeUnknownCategory,
				"line %d: chosen class %s for dancer %s does not exist in the classes file", line, c, rawID).
				WithField(ColumnFirstChoice).
				WithDetails("category", c))
			ok = false
		}
	}
	if !ok {
		return domain.Person{}, false
	}

	answers := questionnaire{
		board:             board.Contains(id),
		firstChoice:       choices[0],
		studentStatus:     lower(h.Value(record, ColumnStudentStatus)),
		gender:            lower(h.Value(record, ColumnGender)),
		halfYear:          lower(h.Value(record, ColumnMembership)) == halfYearMembership,
		nonDancerLastYear: lower(h.Value(record, ColumnNonDancerLastYear)) == answerYes,
		unrolledLastYear:  lower(h.Value(record, ColumnUnrolledLastYear)) == answerYes,
	}
	// без колонки "ben je al lid" участник считается новым
	if h.Has(ColumnAlreadyMember) {
		answers.existingMember = lower(h.Value(record, ColumnAlreadyMember)) != answerNo
	}

	return domain.Person{
		ID:               id,
		Tier:             answers.tier(),
		Choices:          choices,
		Advised:          parseAdvice(h.Value(record, ColumnAdvice), choices),
		NonParticipating: choices[0] == domain.NonParticipatingName,
		Row:              padRecord(record, h.Len()),
	}, true
}

// questionnaire ответы танцора, влияющие на уровень приоритета
type questionnaire struct {
	board             bool
	firstChoice       string
	studentStatus     string
	gender            string
	halfYear          bool
	existingMember    bool
	nonDancerLastYear bool
	unrolledLastYear  bool
}

// tier применяет правила в порядке анкеты: первое сработавшее правило решает
func (q questionnaire) tier() domain.Tier {
	switch {
	case q.board:
		return domain.TierBoard
	case q.firstChoice == damnChoice:
		return domain.TierDamn
	case q.studentStatus == statusGapYear:
		if q.halfYear {
			return domain.TierHalfGapYear
		}
		return domain.TierGapYear
	case q.studentStatus != statusStudent:
		if q.halfYear {
			return domain.TierHalfNonStudying
		}
		return domain.TierNonStudying
	case q.halfYear:
		return domain.TierHalfYear
	case q.nonDancerLastYear:
		return domain.TierNonDancerLastYear
	case q.unrolledLastYear:
		return domain.TierUnrolledLastYear
	case q.existingMember:
		return domain.TierExistingMember
	case q.gender != genderFemale:
		return domain.TierNonFemale
	default:
		return domain.TierFemale
	}
}

// CleanChoice приводит выбор к имени группы: текст до '(' в нижнем регистре.
// Плейсхолдер и имя группы выбывших дают пустой выбор.
func CleanChoice(s string) string {
	if i := strings.Index(s, choiceCutoff); i >= 0 {
		s = s[:i]
	}
	s = lower(s)
	if s == domain.PlaceholderChoice || s == domain.WithdrawName {
		return ""
	}
	return s
}

// dedupeChoices очищает повторы, сохраняя позиции: ранг выбора - его номер в анкете
func dedupeChoices(choices []string) []string {
	for i := range choices {
		for j := 0; j < i; j++ {
			if choices[i] != "" && choices[i] == choices[j] {
				choices[i] = ""
			}
		}
	}
	return choices
}

// parseAdvice разбирает рекомендацию: "ja" подтверждает первый выбор,
// иначе это список групп через запятую.
func parseAdvice(s string, choices []string) []string {
	advice := lower(s)
	switch advice {
	case "", answerNo, adviceNotMember, domain.PlaceholderChoice:
		return nil
	case answerYes:
		if len(choices) == 0 || choices[0] == "" {
			return nil
		}
		return []string{choices[0]}
	}

	var out []string
	for _, item := range strings.Split(advice, adviceListSeparator) {
		if name := CleanChoice(item); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func padRecord(record []string, n int) []string {
	row := make([]string, max(n, len(record)))
	copy(row, record)
	return row
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
