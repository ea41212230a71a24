package match

import (
	"sort"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/helpbot/backend/internal/nlp"
	"github.com/helpbot/backend/internal/storage/models"
)

const (
	// DefaultThreshold is the minimum composite score a candidate needs
	// to survive filtering.
	DefaultThreshold = 40.0

	tokenSetWeight  = 0.4
	tokenSortWeight = 0.4
	partialWeight   = 0.2

	overlapBonusPerToken = 5.0
	overlapBonusCap      = 20.0
)

// Candidate pairs a composite score with the record that produced it.
// Scores live on a 0-100 scale before the overlap bonus and may exceed
// 100 afterwards; the overflow is intentional and callers must not clamp
// it (the confidence scale downstream depends on the raw value).
type Candidate struct {
	Score  float64
	Record models.KnowledgeRecord
}

type Matcher struct {
	threshold float64
}

func NewMatcher(threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Matcher{threshold: threshold}
}

// Rank scores every candidate record against the query, filters by the
// threshold and sorts descending by composite score, breaking ties by
// feedback mean and then view count. An empty candidate set yields an
// empty result, never an error.
func (m *Matcher) Rank(raw string, candidates []models.KnowledgeRecord) []Candidate {
	queryTokens := nlp.Normalize(raw)
	queryText := strings.Join(queryTokens, " ")
	rawQuery := strings.ToLower(raw)

	querySet := make(map[string]bool, len(queryTokens))
	for _, tok := range queryTokens {
		querySet[tok] = true
	}

	matches := make([]Candidate, 0, len(candidates))

	for _, record := range candidates {
		recordTokens := nlp.Normalize(record.Question + " " + record.Tags)
		recordText := strings.Join(recordTokens, " ")

		tokenSet := float64(fuzzy.TokenSetRatio(queryText, recordText))
		tokenSort := float64(fuzzy.TokenSortRatio(queryText, recordText))
		partial := float64(fuzzy.PartialRatio(rawQuery, strings.ToLower(record.Question)))

		score := tokenSet*tokenSetWeight + tokenSort*tokenSortWeight + partial*partialWeight

		if overlap := countOverlap(querySet, recordTokens); overlap > 0 {
			bonus := float64(overlap) * overlapBonusPerToken
			if bonus > overlapBonusCap {
				bonus = overlapBonusCap
			}
			score += bonus
		}

		if score >= m.threshold {
			matches = append(matches, Candidate{Score: score, Record: record})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].Record.Feedback != matches[j].Record.Feedback {
			return matches[i].Record.Feedback > matches[j].Record.Feedback
		}
		return matches[i].Record.ViewCount > matches[j].Record.ViewCount
	})

	return matches
}

func countOverlap(querySet map[string]bool, recordTokens []string) int {
	seen := make(map[string]bool, len(recordTokens))
	count := 0
	for _, tok := range recordTokens {
		if querySet[tok] && !seen[tok] {
			seen[tok] = true
			count++
		}
	}
	return count
}
