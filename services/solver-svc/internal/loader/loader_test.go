package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lottery/pkg/apperror"
	"lottery/pkg/config"
	"lottery/pkg/domain"
	"lottery/pkg/logger"
)

const classesCSV = `Naam,Maximale ruimte,Minimale ruimte,Extra speel ruimte:
Salsa,20,10,2
Tango,12,6,0
D.A.M.N.,30,0,0
`

const dancersCSV = `Relatienummer,Studentstatus,Gender,Ben je al lid?,1e keuze,2e keuze,3e keuze,Advies,Lidmaatschap
0001,Student,Man,Ja,Salsa,Tango,Maak een keuze,Nee,Jaarlidmaatschap
2,Student,Vrouw,Ja,D.A.M.N. (show),Salsa,,Nee,Jaarlidmaatschap
3,Tussenjaar,Vrouw,Nee,Tango,,,Nee,Halfjaarlijkslidmaatschap
4,Werkend,Man,Nee,Tango,,,Nee,Jaarlidmaatschap
5,Student,Vrouw,Nee,Salsa,,,Nee,Halfjaarlijkslidmaatschap
6,Student,Vrouw,Ja,Salsa,Tango,,Ja,Jaarlidmaatschap
7,Student,Man,Nee,Salsa,salsa,Tango,"salsa, tango (gevorderd)",Jaarlidmaatschap
8,Student,Vrouw,Nee,Niet-dansend lid,,,Ik was vorig jaar geen lid,Jaarlidmaatschap
`

func mustClasses(t *testing.T) []domain.Category {
	t.Helper()
	categories, err := ReadClasses(strings.NewReader(classesCSV))
	require.NoError(t, err)
	return categories
}

func TestParseHeader(t *testing.T) {
	h, err := ParseHeader([]string{"\ufeffNaam", " Maximale ruimte: ", "Ben je al lid?", ""})
	require.NoError(t, err)

	i, ok := h.Index("naam")
	assert.True(t, ok)
	assert.Equal(t, 0, i)

	i, ok = h.Index("ben je al lid")
	assert.True(t, ok)
	assert.Equal(t, 2, i)

	assert.True(t, h.Has("maximale ruimte"))
	assert.False(t, h.Has(""))
	assert.Equal(t, 4, h.Len())
	assert.Equal(t, "Ben je al lid?", h.Columns()[2])
}

func TestParseHeader_Duplicate(t *testing.T) {
	_, err := ParseHeader([]string{"Gender", "gender:"})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeDuplicateHeader))
}

func TestHeader_ColumnsIsCopy(t *testing.T) {
	h, err := ParseHeader([]string{"a", "b"})
	require.NoError(t, err)

	cols := h.Columns()
	cols[0] = "changed"
	assert.Equal(t, "a", h.Columns()[0])
}

func TestHeader_Require(t *testing.T) {
	h, err := ParseHeader([]string{"relatienummer", "gender"})
	require.NoError(t, err)

	require.NoError(t, h.Require("gender"))

	err = h.Require("gender", "advies", "lidmaatschap")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeMissingHeader))
	assert.Contains(t, err.Error(), "advies, lidmaatschap")
}

func TestHeader_Value(t *testing.T) {
	h, err := ParseHeader([]string{"a", "b", "c"})
	require.NoError(t, err)

	assert.Equal(t, "2", h.Value([]string{"1", "2", "3"}, "b"))
	assert.Equal(t, "", h.Value([]string{"1"}, "c"))
	assert.Equal(t, "", h.Value([]string{"1", "2", "3"}, "missing"))
}

func TestReadClasses(t *testing.T) {
	categories := mustClasses(t)

	require.Len(t, categories, 3)
	assert.Equal(t, domain.Category{Name: "salsa", MinSize: 10, MaxSize: 20, AdditionalSpace: 2}, categories[0])
	assert.Equal(t, "tango", categories[1].Name)
	assert.Equal(t, "d.a.m.n.", categories[2].Name)
}

func TestReadClasses_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code apperror.ErrorCode
	}{
		{
			name: "empty file",
			body: "",
			code: apperror.CodeMissingHeader,
		},
		{
			name: "missing column",
			body: "naam,maximale ruimte,minimale ruimte\nsalsa,1,0\n",
			code: apperror.CodeMissingHeader,
		},
		{
			name: "not a number",
			body: "naam,maximale ruimte,minimale ruimte,extra speel ruimte\nsalsa,veel,0,0\n",
			code: apperror.CodeInvalidCapacity,
		},
		{
			name: "minimum above maximum",
			body: "naam,maximale ruimte,minimale ruimte,extra speel ruimte\nsalsa,5,6,0\n",
			code: apperror.CodeInvalidCapacity,
		},
		{
			name: "reserved name",
			body: "naam,maximale ruimte,minimale ruimte,extra speel ruimte\nUitgeloot,5,0,0\n",
			code: apperror.CodeInvalidCapacity,
		},
		{
			name: "duplicate name",
			body: "naam,maximale ruimte,minimale ruimte,extra speel ruimte\nsalsa,5,0,0\nSalsa,6,0,0\n",
			code: apperror.CodeDuplicateCategory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadClasses(strings.NewReader(tt.body))
			require.Error(t, err)
			assert.Equal(t, tt.code, apperror.Code(err))
		})
	}
}

func TestReadClasses_SkipsBlankLines(t *testing.T) {
	body := "naam,maximale ruimte,minimale ruimte,extra speel ruimte\n,,,\nsalsa,5,0,0\n"
	categories, err := ReadClasses(strings.NewReader(body))
	require.NoError(t, err)
	assert.Len(t, categories, 1)
}

func TestReadBoard(t *testing.T) {
	board, err := ReadBoard(strings.NewReader("12, 0034\n56\n\n7,\n"))
	require.NoError(t, err)

	assert.Len(t, board, 4)
	for _, id := range []string{"12", "34", "56", "7"} {
		assert.True(t, board.Contains(id), id)
	}
	assert.False(t, board.Contains("0034"))
}

func TestReadBoard_Invalid(t *testing.T) {
	_, err := ReadBoard(strings.NewReader("12\nvoorzitter\n"))
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidPerson))
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadDancers(t *testing.T) {
	dancers, err := ReadDancers(strings.NewReader(dancersCSV), mustClasses(t), Board{"1": {}})
	require.NoError(t, err)
	require.Len(t, dancers.Persons, 8)

	byID := make(map[string]domain.Person, len(dancers.Persons))
	for _, p := range dancers.Persons {
		byID[p.ID] = p
	}

	tiers := map[string]domain.Tier{
		"1": domain.TierBoard,
		"2": domain.TierDamn,
		"3": domain.TierHalfGapYear,
		"4": domain.TierNonStudying,
		"5": domain.TierHalfYear,
		"6": domain.TierExistingMember,
		"7": domain.TierNonFemale,
		"8": domain.TierFemale,
	}
	for id, want := range tiers {
		assert.Equal(t, want, byID[id].Tier, "dancer %s", id)
	}

	assert.Equal(t, []string{"salsa", "tango", ""}, byID["1"].Choices)
	assert.Equal(t, []string{"d.a.m.n.", "salsa", ""}, byID["2"].Choices)
	assert.Equal(t, []string{"salsa", "", "tango"}, byID["7"].Choices)

	assert.Nil(t, byID["1"].Advised)
	assert.Equal(t, []string{"salsa"}, byID["6"].Advised)
	assert.Equal(t, []string{"salsa", "tango"}, byID["7"].Advised)
	assert.Nil(t, byID["8"].Advised)

	assert.True(t, byID["8"].NonParticipating)
	assert.False(t, byID["7"].NonParticipating)

	assert.Equal(t, "0001", byID["1"].Row[0])
	assert.Len(t, byID["1"].Row, dancers.Header.Len())
	assert.Equal(t, "Ben je al lid?", dancers.Header.Columns()[3])
}

func TestReadDancers_OptionalColumns(t *testing.T) {
	body := `relatienummer,studentstatus,gender,1e keuze,2e keuze,3e keuze,advies,lidmaatschap,niet-dansend vorig jaar,uitgeloot vorig jaar
1,student,vrouw,salsa,,,nee,jaarlidmaatschap,ja,nee
2,student,vrouw,salsa,,,nee,jaarlidmaatschap,nee,ja
3,student,vrouw,salsa,,,nee,jaarlidmaatschap,nee,nee
`
	dancers, err := ReadDancers(strings.NewReader(body), mustClasses(t), nil)
	require.NoError(t, err)
	require.Len(t, dancers.Persons, 3)

	assert.Equal(t, domain.TierNonDancerLastYear, dancers.Persons[0].Tier)
	assert.Equal(t, domain.TierUnrolledLastYear, dancers.Persons[1].Tier)
	// без колонки "ben je al lid" участник считается новым
	assert.Equal(t, domain.TierFemale, dancers.Persons[2].Tier)
}

func TestReadDancers_CollectsErrors(t *testing.T) {
	body := `relatienummer,studentstatus,gender,1e keuze,2e keuze,3e keuze,advies,lidmaatschap
1,student,vrouw,bachata,,,nee,jaarlidmaatschap
abc,student,vrouw,salsa,,,nee,jaarlidmaatschap
5,student,vrouw,salsa,,,nee,jaarlidmaatschap
5,student,vrouw,tango,,,nee,jaarlidmaatschap
`
	_, err := ReadDancers(strings.NewReader(body), mustClasses(t), nil)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidInput))

	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	messages, ok := appErr.Details["errors"].([]string)
	require.True(t, ok)
	require.Len(t, messages, 3)
	assert.Contains(t, messages[0], "bachata")
	assert.Contains(t, messages[1], "abc")
	assert.Contains(t, messages[2], "already used on line 4")
}

func TestReadDancers_SingleErrorKeepsCode(t *testing.T) {
	body := `relatienummer,studentstatus,gender,1e keuze,2e keuze,3e keuze,advies,lidmaatschap
1,student,vrouw,bachata,,,nee,jaarlidmaatschap
`
	_, err := ReadDancers(strings.NewReader(body), mustClasses(t), nil)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeUnknownCategory))
}

func TestReadDancers_MissingHeaders(t *testing.T) {
	body := "relatienummer,studentstatus,gender,1e keuze,2e keuze,3e keuze\n"
	_, err := ReadDancers(strings.NewReader(body), mustClasses(t), nil)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeMissingHeader))

	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, []string{ColumnAdvice, ColumnMembership}, appErr.Details["missing"])
}

func TestQuestionnaire_Tier(t *testing.T) {
	student := questionnaire{studentStatus: statusStudent, gender: genderFemale}

	tests := []struct {
		name   string
		mutate func(*questionnaire)
		want   domain.Tier
	}{
		{"female student", func(q *questionnaire) {}, domain.TierFemale},
		{"non female", func(q *questionnaire) { q.gender = "man" }, domain.TierNonFemale},
		{"existing member", func(q *questionnaire) { q.existingMember = true }, domain.TierExistingMember},
		{"unrolled last year", func(q *questionnaire) {
			q.existingMember = true
			q.unrolledLastYear = true
		}, domain.TierUnrolledLastYear},
		{"non dancer last year", func(q *questionnaire) {
			q.nonDancerLastYear = true
			q.unrolledLastYear = true
		}, domain.TierNonDancerLastYear},
		{"half year", func(q *questionnaire) {
			q.halfYear = true
			q.existingMember = true
		}, domain.TierHalfYear},
		{"non studying", func(q *questionnaire) { q.studentStatus = "werkend" }, domain.TierNonStudying},
		{"half non studying", func(q *questionnaire) {
			q.studentStatus = ""
			q.halfYear = true
		}, domain.TierHalfNonStudying},
		{"gap year", func(q *questionnaire) { q.studentStatus = statusGapYear }, domain.TierGapYear},
		{"half gap year", func(q *questionnaire) {
			q.studentStatus = statusGapYear
			q.halfYear = true
		}, domain.TierHalfGapYear},
		{"damn beats gap year", func(q *questionnaire) {
			q.studentStatus = statusGapYear
			q.firstChoice = damnChoice
		}, domain.TierDamn},
		{"board beats everything", func(q *questionnaire) {
			q.board = true
			q.firstChoice = damnChoice
			q.halfYear = true
		}, domain.TierBoard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := student
			tt.mutate(&q)
			assert.Equal(t, tt.want, q.tier())
		})
	}
}

func TestCleanChoice(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Salsa", "salsa"},
		{"  Salsa (beginners) ", "salsa"},
		{"D.A.M.N. (show)", "d.a.m.n."},
		{"Maak een keuze", ""},
		{"uitgeloot", ""},
		{"(leeg)", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanChoice(tt.in), "CleanChoice(%q)", tt.in)
	}
}

func TestParseAdvice(t *testing.T) {
	choices := []string{"salsa", "tango", ""}

	tests := []struct {
		in   string
		want []string
	}{
		{"Ja", []string{"salsa"}},
		{"nee", nil},
		{"Maak een keuze", nil},
		{"Ik was vorig jaar geen lid", nil},
		{"", nil},
		{"Tango (gevorderd), salsa", []string{"tango", "salsa"}},
		{"bachata,", []string{"bachata"}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseAdvice(tt.in, choices), "parseAdvice(%q)", tt.in)
	}

	assert.Nil(t, parseAdvice("ja", []string{"", "", ""}))
}

func TestShuffle(t *testing.T) {
	persons := make([]domain.Person, 50)
	for i := range persons {
		persons[i] = domain.Person{ID: string(rune('A' + i))}
	}
	original := append([]domain.Person(nil), persons...)

	a := Shuffle(persons, 42)
	b := Shuffle(persons, 42)
	c := Shuffle(persons, 43)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, original, persons, "input must not be reordered")

	ids := func(ps []domain.Person) []string {
		out := make([]string, len(ps))
		for i, p := range ps {
			out[i] = p.ID
		}
		slices.Sort(out)
		return out
	}
	assert.Equal(t, ids(original), ids(a))
}

func TestResolveSeed(t *testing.T) {
	assert.Equal(t, int64(7), ResolveSeed(7))
	assert.NotZero(t, ResolveSeed(0))
}

func TestFindInputFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dancers.csv"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dansers.csv"), 0o755))

	path, err := FindInputFile(dir, []string{"dansers.csv", "dancers.csv"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "dancers.csv"), path)

	_, err = FindInputFile(dir, []string{"Board.txt"})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeInputNotFound))
}

func writeInput(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func inputConfig(dir string, seed int64) config.InputConfig {
	return config.InputConfig{
		Dir:          dir,
		DancersFiles: []string{"dansers.csv", "dancers.csv"},
		ClassesFiles: []string{"danceclasses.csv"},
		BoardFiles:   []string{"Board.txt"},
		Seed:         seed,
	}
}

func TestLoader_Load(t *testing.T) {
	dir := writeInput(t, map[string]string{
		"danceclasses.csv": classesCSV,
		"dancers.csv":      dancersCSV,
		"Board.txt":        "1\n",
	})

	in, err := New(inputConfig(dir, 42), WithLogger(logger.Discard())).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(42), in.Seed)
	assert.Len(t, in.Persons, 8)
	assert.Len(t, in.Categories, 3)
	assert.Equal(t, filepath.Join(dir, "Board.txt"), in.Files.Board)
	assert.Equal(t, filepath.Join(dir, "dancers.csv"), in.Files.Dancers)

	for _, p := range in.Persons {
		if p.ID == "1" {
			assert.Equal(t, domain.TierBoard, p.Tier)
		}
	}

	again, err := New(inputConfig(dir, 42), WithLogger(logger.Discard())).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, in.Persons, again.Persons)
}

func TestLoader_Load_WithoutBoard(t *testing.T) {
	dir := writeInput(t, map[string]string{
		"danceclasses.csv": classesCSV,
		"dancers.csv":      dancersCSV,
	})

	in, err := New(inputConfig(dir, 0), WithLogger(logger.Discard())).Load(context.Background())
	require.NoError(t, err)

	assert.Empty(t, in.Files.Board)
	assert.NotZero(t, in.Seed)
	for _, p := range in.Persons {
		assert.NotEqual(t, domain.TierBoard, p.Tier)
	}
}

func TestLoader_Load_MissingDancers(t *testing.T) {
	dir := writeInput(t, map[string]string{"danceclasses.csv": classesCSV})

	_, err := New(inputConfig(dir, 1), WithLogger(logger.Discard())).Load(context.Background())
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeInputNotFound))
	assert.Equal(t, apperror.ExitInput, apperror.ExitCode(err))
}
