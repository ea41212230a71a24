package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpbot/backend/internal/storage/models"
)

type mockStorage struct {
	records []models.KnowledgeRecord
	popular []models.KnowledgeRecord
	history []models.CategoryFrequency
	unseen  map[string][]string

	fetchAllErr error
	popularErr  error
	historyErr  error
	feedbackErr error

	viewCounts   []int64
	queryLogs    []models.QueryLogEntry
	feedback     []models.FeedbackEntry
	escalations  []models.EscalationRecord
	sessionSaves int
}

func (m *mockStorage) FetchAllRecords(_ context.Context) ([]models.KnowledgeRecord, error) {
	return m.records, m.fetchAllErr
}

func (m *mockStorage) FetchPopular(_ context.Context, limit int) ([]models.KnowledgeRecord, error) {
	if m.popularErr != nil {
		return nil, m.popularErr
	}
	if limit < len(m.popular) {
		return m.popular[:limit], nil
	}
	return m.popular, nil
}

func (m *mockStorage) FetchRecord(_ context.Context, id int64) (*models.KnowledgeRecord, error) {
	for i := range m.records {
		if m.records[i].ID == id {
			return &m.records[i], nil
		}
	}
	return nil, errors.New("record not found")
}

func (m *mockStorage) IncrementViewCount(_ context.Context, id int64) error {
	m.viewCounts = append(m.viewCounts, id)
	return nil
}

func (m *mockStorage) AppendQueryLog(_ context.Context, e models.QueryLogEntry) error {
	m.queryLogs = append(m.queryLogs, e)
	return nil
}

func (m *mockStorage) AppendFeedback(_ context.Context, e models.FeedbackEntry) error {
	if m.feedbackErr != nil {
		return m.feedbackErr
	}
	m.feedback = append(m.feedback, e)
	return nil
}

func (m *mockStorage) FetchSessionHistory(_ context.Context, _ string, _ time.Time) ([]models.CategoryFrequency, error) {
	return m.history, m.historyErr
}

func (m *mockStorage) FetchUnseenByCategory(_ context.Context, category, _ string, limit int) ([]string, error) {
	questions := m.unseen[category]
	if limit < len(questions) {
		return questions[:limit], nil
	}
	return questions, nil
}

func (m *mockStorage) AppendEscalation(_ context.Context, rec models.EscalationRecord) (int64, error) {
	m.escalations = append(m.escalations, rec)
	return int64(len(m.escalations)), nil
}

func (m *mockStorage) UpsertSession(_ context.Context, _, _, _ string, _, _ int) error {
	m.sessionSaves++
	return nil
}

type mockCache struct {
	stored      map[int][]models.KnowledgeRecord
	hits        int
	misses      int
	invalidated int
}

func newMockCache() *mockCache {
	return &mockCache{stored: make(map[int][]models.KnowledgeRecord)}
}

func (c *mockCache) GetPopular(_ context.Context, limit int) ([]models.KnowledgeRecord, bool) {
	records, ok := c.stored[limit]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return records, ok
}

func (c *mockCache) SetPopular(_ context.Context, limit int, records []models.KnowledgeRecord) {
	c.stored[limit] = records
}

func (c *mockCache) Invalidate(_ context.Context) {
	c.invalidated++
	c.stored = make(map[int][]models.KnowledgeRecord)
}

func knowledgeFixture() []models.KnowledgeRecord {
	return []models.KnowledgeRecord{
		{ID: 1, Question: "How do I reset my password?", Answer: "Use the forgot password link.", Tags: "password,reset,login", Category: "account", Feedback: 4.5, ViewCount: 120},
		{ID: 2, Question: "How do I update my billing information?", Answer: "Open the billing page.", Tags: "billing,payment", Category: "billing", Feedback: 4.0, ViewCount: 80},
		{ID: 3, Question: "How do I invite teammates to my workspace?", Answer: "Use the invite dialog.", Tags: "teams,invite", Category: "teams", Feedback: 3.5, ViewCount: 40},
	}
}

func newTestEngine(store *mockStorage, cache PopularCache) *Engine {
	return New(store, cache, DefaultOptions(), nil)
}

func TestResolveGreeting(t *testing.T) {
	store := &mockStorage{popular: knowledgeFixture()}
	e := newTestEngine(store, nil)

	resp := e.Resolve(context.Background(), Request{Input: "hello there", UserName: "alice"})

	assert.Equal(t, StateGreeting, resp.State)
	assert.NotEmpty(t, resp.Message)
	assert.InDelta(t, 1.0, resp.Confidence, 0.001)
	assert.Len(t, resp.Results, 3)
	assert.Empty(t, resp.ErrorKind)
}

func TestResolveEscalation(t *testing.T) {
	store := &mockStorage{}
	e := newTestEngine(store, nil)

	resp := e.Resolve(context.Background(), Request{Input: "please connect me to a human agent", UserName: "alice"})

	assert.Equal(t, StateEscalation, resp.State)
	require.NotNil(t, resp.Escalation)
	assert.True(t, resp.Escalation.Persisted)
	assert.Equal(t, models.EscalationStatusPending, resp.Escalation.Status)
	assert.Len(t, resp.Escalation.Contacts, 4)
	require.Len(t, store.escalations, 1)
	assert.Equal(t, "please connect me to a human agent", store.escalations[0].Reason)
}

func TestResolveValidationFailure(t *testing.T) {
	e := newTestEngine(&mockStorage{}, nil)

	for _, input := range []string{"", "   "} {
		resp := e.Resolve(context.Background(), Request{Input: input, UserName: "alice", SessionID: "s-" + input})

		assert.Equal(t, StateError, resp.State)
		assert.Equal(t, "invalid_input", resp.ErrorKind)
		assert.Zero(t, resp.Confidence)
	}
}

func TestResolveRateLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.RateLimit = 2
	e := New(&mockStorage{popular: knowledgeFixture()}, nil, opts, nil)

	req := Request{Input: "hello", UserName: "bob", SessionID: "s1"}
	for i := 0; i < 2; i++ {
		resp := e.Resolve(context.Background(), req)
		assert.Equal(t, StateGreeting, resp.State)
	}

	resp := e.Resolve(context.Background(), req)
	assert.Equal(t, StateError, resp.State)
	assert.Equal(t, "rate_limit_exceeded", resp.ErrorKind)

	// A different identity still has its own budget.
	other := e.Resolve(context.Background(), Request{Input: "hello", UserName: "carol", SessionID: "s2"})
	assert.Equal(t, StateGreeting, other.State)
}

func TestResolveQuestionMatch(t *testing.T) {
	store := &mockStorage{records: knowledgeFixture()}
	e := newTestEngine(store, nil)

	resp := e.Resolve(context.Background(), Request{
		Input:     "how do I reset my password",
		UserName:  "alice",
		SessionID: "s1",
	})

	assert.Equal(t, StateMatch, resp.State)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, int64(1), resp.Results[0].ID)
	assert.Greater(t, resp.Confidence, 0.4)
	require.NotNil(t, resp.Pagination)
	assert.Equal(t, 1, resp.Pagination.CurrentPage)

	// Side effects: view count for the top match, a query log row, and a
	// persisted session snapshot.
	require.Len(t, store.viewCounts, 1)
	assert.Equal(t, int64(1), store.viewCounts[0])
	require.Len(t, store.queryLogs, 1)
	assert.Equal(t, "how do I reset my password", store.queryLogs[0].RawQuery)
	assert.Contains(t, store.queryLogs[0].ProcessedQuery, "password")
	assert.Equal(t, int64(1), store.queryLogs[0].MatchedID)
	assert.Equal(t, 1, store.sessionSaves)

	state, ok := e.Session("s1")
	require.True(t, ok)
	assert.Equal(t, "how do I reset my password", state.LastQuery)
	assert.Equal(t, int64(1), state.LastResultIDs[0])
}

func TestResolveQuestionNoMatch(t *testing.T) {
	store := &mockStorage{records: knowledgeFixture(), popular: knowledgeFixture()}
	e := newTestEngine(store, nil)

	resp := e.Resolve(context.Background(), Request{
		Input:     "giraffe zeppelin quantum flute",
		UserName:  "alice",
		SessionID: "s1",
	})

	assert.Equal(t, StateNoMatch, resp.State)
	assert.Zero(t, resp.Confidence)
	// Popular records stand in when nothing matches.
	assert.Len(t, resp.Results, 3)
	assert.Empty(t, store.viewCounts)
	assert.Empty(t, store.queryLogs)
}

func TestResolveStorageFailure(t *testing.T) {
	store := &mockStorage{fetchAllErr: errors.New("database locked")}
	e := newTestEngine(store, nil)

	resp := e.Resolve(context.Background(), Request{
		Input:     "how do I reset my password",
		UserName:  "alice",
		SessionID: "s1",
	})

	assert.Equal(t, StateError, resp.State)
	assert.Equal(t, "storage_error", resp.ErrorKind)
	assert.NotEmpty(t, resp.Message)
}

func TestGreetingSurvivesSuggestionFailures(t *testing.T) {
	store := &mockStorage{
		popular:    knowledgeFixture(),
		historyErr: errors.New("query_log unavailable"),
	}
	e := newTestEngine(store, nil)

	resp := e.Resolve(context.Background(), Request{Input: "hey", UserName: "alice", SessionID: "s1"})

	assert.Equal(t, StateGreeting, resp.State)
	assert.Empty(t, resp.Suggestions)
	assert.Len(t, resp.Results, 3)
}

func TestSuggestionsFromSessionHistory(t *testing.T) {
	store := &mockStorage{
		popular: knowledgeFixture(),
		history: []models.CategoryFrequency{
			{Category: "account", Count: 3},
			{Category: "billing", Count: 1},
		},
		unseen: map[string][]string{
			"account": {"How do I enable two-factor auth?", "How do I change my email?"},
			"billing": {"How do I download an invoice?"},
		},
	}
	e := newTestEngine(store, nil)

	resp := e.Resolve(context.Background(), Request{Input: "hello", UserName: "alice", SessionID: "s1"})

	assert.Equal(t, StateGreeting, resp.State)
	assert.Equal(t, []string{
		"How do I enable two-factor auth?",
		"How do I change my email?",
		"How do I download an invoice?",
	}, resp.Suggestions)
}

func TestPopularReadThroughCache(t *testing.T) {
	store := &mockStorage{popular: knowledgeFixture()}
	cache := newMockCache()
	e := newTestEngine(store, cache)

	first := e.TopRecords(context.Background(), 3)
	assert.Len(t, first, 3)
	assert.Equal(t, 1, cache.misses)

	second := e.TopRecords(context.Background(), 3)
	assert.Len(t, second, 3)
	assert.Equal(t, 1, cache.hits)
}

func TestSubmitFeedbackInvalidatesCache(t *testing.T) {
	store := &mockStorage{popular: knowledgeFixture()}
	cache := newMockCache()
	e := newTestEngine(store, cache)

	e.TopRecords(context.Background(), 3)

	err := e.SubmitFeedback(context.Background(), models.FeedbackEntry{RecordID: 1, Score: 5, UserName: "alice"})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.invalidated)
	require.Len(t, store.feedback, 1)
	assert.Equal(t, 5, store.feedback[0].Score)
}

func TestSubmitFeedbackStorageError(t *testing.T) {
	store := &mockStorage{feedbackErr: errors.New("constraint failed")}
	e := newTestEngine(store, nil)

	err := e.SubmitFeedback(context.Background(), models.FeedbackEntry{RecordID: 1, Score: 4})

	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "append_feedback", storageErr.Op)
}

func TestAnswerIncludesArticleLink(t *testing.T) {
	records := knowledgeFixture()
	records[0].ArticleLink = "https://docs.example.com/reset"
	store := &mockStorage{records: records}
	e := newTestEngine(store, nil)

	withLink, err := e.Answer(context.Background(), 1)
	require.NoError(t, err)
	assert.Contains(t, withLink, "Use the forgot password link.")
	assert.Contains(t, withLink, "https://docs.example.com/reset")

	plain, err := e.Answer(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Open the billing page.", plain)
}

func TestResolveAssignsSessionID(t *testing.T) {
	store := &mockStorage{popular: knowledgeFixture()}
	e := newTestEngine(store, nil)

	resp := e.Resolve(context.Background(), Request{Input: "hello", UserName: "alice"})

	assert.NotEqual(t, StateError, resp.State)
}
