package scoring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSkills(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"whitespace only", "   \n ", nil},
		{"comma list", "Java, SQL", []string{"java", "sql"}},
		{"mixed separators", "Go;Python\nDocker,,Kubernetes", []string{"go", "python", "docker", "kubernetes"}},
		{"duplicates keep first", "SQL, Java, sql", []string{"sql", "java"}},
		{"drops single char", "C, R, Go", []string{"go"}},
		{"multi word", "spring boot, java ee", []string{"spring boot", "java ee"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSkills(tt.in)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractKeywords(t *testing.T) {
	t.Run("filters short words stop words and numbers", func(t *testing.T) {
		got := ExtractKeywords("We need a Backend developer with 2024 experience in Kafka and the Postgres stack")
		assert.Equal(t, []string{"need", "backend", "developer", "experience", "kafka", "postgres", "stack"}, got)
	})

	t.Run("distinct before cap", func(t *testing.T) {
		words := make([]string, 0, 30)
		for i := 0; i < 30; i++ {
			words = append(words, "alpha")
		}
		got := ExtractKeywords(strings.Join(words, " ") + " bravo")
		assert.Equal(t, []string{"alpha", "bravo"}, got)
	})

	t.Run("caps at MaxKeywords", func(t *testing.T) {
		var b strings.Builder
		for i := 0; i < 30; i++ {
			b.WriteString("word")
			b.WriteByte(byte('a' + i%26))
			b.WriteByte(byte('a' + i/26))
			b.WriteByte(' ')
		}
		got := ExtractKeywords(b.String())
		require.Len(t, got, MaxKeywords)
		assert.Equal(t, "wordaa", got[0])
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, ExtractKeywords(""))
	})
}

func TestAliasTable(t *testing.T) {
	aliases := DefaultAliases()

	tests := []struct {
		a, b string
		want bool
	}{
		{"javascript", "node.js", true},
		{"JS", "ecmascript", true},
		{"sql", "PostgreSQL", true},
		{"python3", "py", true},
		{"java", "javascript", false},
		{"spring boot", "springboot", true},
		{"", "java", false},
		{"golang", "go", false},
	}
	for _, tt := range tests {
		t.Run(tt.a+"~"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, aliases.AreRelated(tt.a, tt.b))
			assert.Equal(t, tt.want, aliases.AreRelated(tt.b, tt.a), "relation must be symmetric")
		})
	}
}

func TestAliasTable_Merge(t *testing.T) {
	base := DefaultAliases()
	merged := base.Merge(AliasTable{
		"Golang": {"go", "GoLang", ""},
		"sql":    {"sqlite"},
	})

	assert.True(t, merged.AreRelated("golang", "go"))
	assert.True(t, merged.AreRelated("sql", "sqlite"))
	assert.False(t, merged.AreRelated("sql", "mysql"), "override replaces the whole group")
	assert.True(t, base.AreRelated("sql", "mysql"), "base table is not mutated")
	assert.Contains(t, merged, "golang")
}

func TestExperienceYears(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"5+ years experience", 5},
		{"at least 3 yrs of Go", 3},
		{"minimum 2 ans d'expérience", 2},
		{"1 year", 1},
		{"We want 10 YEARS and then 3 years", 10},
		{"no number here", 0},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExperienceYears(tt.in))
		})
	}
}

func TestRequiredExperience(t *testing.T) {
	assert.Equal(t, 5, RequiredExperience("5+ years in backend"))
	assert.Equal(t, 0, RequiredExperience("4 yrs in backend"), "the ML job view does not read the yrs form")
	assert.Equal(t, 0, RequiredExperience(""))
}
