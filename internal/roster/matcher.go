package roster

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"peermark/internal/domain"
)

// DefaultMaxDistanceRatio is the largest edit distance, relative to the
// longer of the two names, still accepted as a fuzzy match.
const DefaultMaxDistanceRatio = 0.25

// Matcher reconciles names read off a score sheet against the roster.
// Handwriting transcription garbles names routinely, so matching is
// case-insensitive and tolerant of small edit distances.
type Matcher struct {
	students []domain.StudentRecord
	folded   []string
	caser    cases.Caser
	maxRatio float64
}

// NewMatcher builds a Matcher over the roster. maxRatio <= 0 selects
// DefaultMaxDistanceRatio.
func NewMatcher(students []domain.StudentRecord, maxRatio float64) *Matcher {
	if maxRatio <= 0 {
		maxRatio = DefaultMaxDistanceRatio
	}
	m := &Matcher{
		students: students,
		folded:   make([]string, len(students)),
		caser:    cases.Fold(),
		maxRatio: maxRatio,
	}
	for i, s := range students {
		m.folded[i] = m.normalize(s.Name)
	}
	return m
}

func (m *Matcher) normalize(s string) string {
	return strings.Join(strings.Fields(m.caser.String(s)), " ")
}

// Match returns the roster record whose name best matches the transcribed
// name. Exact folded equality wins first, then substring containment, then
// the smallest Levenshtein distance within the configured ratio. The second
// return value reports whether any acceptable match was found.
func (m *Matcher) Match(name string) (domain.StudentRecord, bool) {
	needle := m.normalize(name)
	if needle == "" {
		return domain.StudentRecord{}, false
	}

	for i, candidate := range m.folded {
		if candidate == needle {
			return m.students[i], true
		}
	}

	for i, candidate := range m.folded {
		if candidate == "" {
			continue
		}
		if strings.Contains(candidate, needle) || strings.Contains(needle, candidate) {
			return m.students[i], true
		}
	}

	bestIdx := -1
	bestRatio := m.maxRatio
	for i, candidate := range m.folded {
		if candidate == "" {
			continue
		}
		dist := levenshtein.ComputeDistance(needle, candidate)
		longer := len([]rune(candidate))
		if l := len([]rune(needle)); l > longer {
			longer = l
		}
		ratio := float64(dist) / float64(longer)
		if ratio <= bestRatio {
			bestRatio = ratio
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return domain.StudentRecord{}, false
	}
	return m.students[bestIdx], true
}
