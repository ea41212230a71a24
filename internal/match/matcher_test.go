package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpbot/backend/internal/storage/models"
)

func record(id int64, question, tags string, feedback float64, views int64) models.KnowledgeRecord {
	return models.KnowledgeRecord{
		ID:        id,
		Question:  question,
		Tags:      tags,
		Feedback:  feedback,
		ViewCount: views,
	}
}

func TestRankEmptyCandidates(t *testing.T) {
	m := NewMatcher(0)
	assert.Empty(t, m.Rank("reset password", nil))
	assert.Empty(t, m.Rank("reset password", []models.KnowledgeRecord{}))
}

func TestRankShortAndEmptyQueries(t *testing.T) {
	m := NewMatcher(0)
	candidates := []models.KnowledgeRecord{
		record(1, "How do I reset my password", "password,reset", 0, 0),
	}

	assert.NotPanics(t, func() {
		m.Rank("", candidates)
		m.Rank("a", candidates)
		m.Rank("??", candidates)
	})
}

func TestRankIdenticalQueryScoresAboveThreshold(t *testing.T) {
	m := NewMatcher(0)
	candidates := []models.KnowledgeRecord{
		record(1, "reset password", "", 0, 0),
		record(2, "export billing invoices", "billing", 0, 0),
	}

	matches := m.Rank("reset password", candidates)
	require.NotEmpty(t, matches)

	assert.Equal(t, int64(1), matches[0].Record.ID)
	assert.GreaterOrEqual(t, matches[0].Score, 40.0)

	// All three ratios are 100 for an identical candidate and the
	// two-token overlap adds 10, so the composite overflows 100. The
	// overflow is contractual.
	assert.InDelta(t, 110.0, matches[0].Score, 0.01)
}

func TestRankFiltersBelowThreshold(t *testing.T) {
	m := NewMatcher(0)
	candidates := []models.KnowledgeRecord{
		record(1, "How do I configure webhook notifications", "webhooks", 0, 0),
	}

	matches := m.Rank("giraffe zeppelin", candidates)
	assert.Empty(t, matches)
}

func TestRankTieBreakByFeedbackThenViews(t *testing.T) {
	// Identical text gives identical composite scores, so ordering is
	// decided purely by the secondary keys.
	candidates := []models.KnowledgeRecord{
		record(1, "update billing address", "billing", 2.0, 10),
		record(2, "update billing address", "billing", 5.0, 1),
		record(3, "update billing address", "billing", 5.0, 7),
	}

	m := NewMatcher(0)
	matches := m.Rank("update billing address", candidates)
	require.Len(t, matches, 3)

	assert.Equal(t, int64(3), matches[0].Record.ID)
	assert.Equal(t, int64(2), matches[1].Record.ID)
	assert.Equal(t, int64(1), matches[2].Record.ID)

	assert.Equal(t, matches[0].Score, matches[1].Score)
	assert.Equal(t, matches[1].Score, matches[2].Score)
}

func TestRankSortsByScoreFirst(t *testing.T) {
	candidates := []models.KnowledgeRecord{
		record(1, "export data as csv", "export,csv", 5.0, 100),
		record(2, "reset account password", "password", 0, 0),
	}

	m := NewMatcher(0)
	matches := m.Rank("reset account password", candidates)
	require.NotEmpty(t, matches)
	assert.Equal(t, int64(2), matches[0].Record.ID)
}
