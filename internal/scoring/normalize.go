// Package scoring implements the candidate/job match scoring rules.
//
// Everything in this package is pure: no I/O, no randomness, no shared
// mutable state. Given the same CvData and JobSignal it always produces the
// same component scores, blend and explanation, which is what makes
// re-scoring an edited application idempotent.
package scoring

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fairyhunter13/job-match-scorer/pkg/textx"
)

// MaxKeywords caps the keyword set extracted from a job offer.
const MaxKeywords = 20

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {},
	"a": {}, "an": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "being": {}, "have": {}, "has": {},
	"had": {}, "do": {}, "does": {}, "did": {}, "will": {}, "would": {}, "should": {}, "could": {}, "may": {}, "might": {},
	"must": {}, "can": {}, "this": {}, "that": {}, "these": {}, "those": {}, "we": {}, "you": {}, "he": {}, "she": {}, "it": {},
}

var (
	skillSeparators = regexp.MustCompile(`[,;\n]+`)
	nonWord         = regexp.MustCompile(`\W+`)
	digitsOnly      = regexp.MustCompile(`^\d+$`)

	// scorerYearsPattern feeds the experience scorer.
	scorerYearsPattern = regexp.MustCompile(`(?i)(\d+)\+?\s*(years?|yrs?|ans?)`)
	// jobYearsPattern feeds the job view sent to the ML service.
	jobYearsPattern = regexp.MustCompile(`(?i)(\d+)\+?\s*(?:years?|ans?)`)
)

// ParseSkills splits a delimited skill list into distinct lowercase tokens,
// preserving the order of first appearance. Single-character tokens are dropped.
func ParseSkills(text string) []string {
	text = textx.Normalize(text)
	if text == "" {
		return nil
	}
	parts := skillSeparators.Split(text, -1)
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if utf8.RuneCountInString(p) <= 1 {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// ExtractKeywords returns up to MaxKeywords distinct tokens of length > 3,
// in order of first appearance, skipping stop-words and pure numbers.
func ExtractKeywords(text string) []string {
	text = textx.Normalize(text)
	if text == "" {
		return nil
	}
	out := make([]string, 0, MaxKeywords)
	seen := make(map[string]struct{}, MaxKeywords)
	for _, w := range nonWord.Split(text, -1) {
		if len(out) == MaxKeywords {
			break
		}
		if len(w) <= 3 || digitsOnly.MatchString(w) {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// AliasTable maps a canonical skill to every spelling that means the same thing.
type AliasTable map[string][]string

// DefaultAliases is the built-in alias table.
func DefaultAliases() AliasTable {
	return AliasTable{
		"javascript": {"js", "javascript", "ecmascript", "node.js", "nodejs"},
		"python":     {"python", "py", "python3"},
		"java":       {"java", "jdk", "java ee", "jakarta ee"},
		"react":      {"react", "reactjs", "react.js"},
		"angular":    {"angular", "angularjs", "angular.js"},
		"spring":     {"spring", "spring boot", "springboot"},
		"sql":        {"sql", "mysql", "postgresql", "oracle", "mssql"},
	}
}

// Merge returns a copy of t with the groups of other added. A group in other
// replaces the group with the same canonical name.
func (t AliasTable) Merge(other AliasTable) AliasTable {
	out := make(AliasTable, len(t)+len(other))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range other {
		k = textx.Normalize(k)
		if k == "" {
			continue
		}
		group := make([]string, 0, len(v)+1)
		group = append(group, k)
		for _, a := range v {
			if a = textx.Normalize(a); a != "" && a != k {
				group = append(group, a)
			}
		}
		out[k] = group
	}
	return out
}

// AreRelated reports whether a and b belong to the same alias group.
func (t AliasTable) AreRelated(a, b string) bool {
	a, b = textx.Normalize(a), textx.Normalize(b)
	if a == "" || b == "" {
		return false
	}
	for _, group := range t {
		if contains(group, a) && contains(group, b) {
			return true
		}
	}
	return false
}

func contains(group []string, s string) bool {
	for _, g := range group {
		if g == s {
			return true
		}
	}
	return false
}

// ExperienceYears finds the first "N years"/"N+ yrs"/"N ans" mention in a
// job description. No match yields 0.
func ExperienceYears(description string) int {
	return firstYears(scorerYearsPattern, description)
}

// RequiredExperience extracts the required years reported to the ML service.
func RequiredExperience(description string) int {
	return firstYears(jobYearsPattern, description)
}

func firstYears(re *regexp.Regexp, s string) int {
	if s == "" {
		return 0
	}
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
