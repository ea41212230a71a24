package models

import "time"

// KnowledgeRecord is one curated question/answer entry. Feedback holds
// the running mean of all feedback scores for the record; ViewCount only
// ever increases.
type KnowledgeRecord struct {
	ID          int64   `json:"id"`
	Question    string  `json:"question"`
	Answer      string  `json:"answer"`
	Tags        string  `json:"tags"`
	Category    string  `json:"category"`
	ArticleLink string  `json:"article_link,omitempty"`
	Feedback    float64 `json:"feedback"`
	ViewCount   int64   `json:"view_count"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

type QueryLogEntry struct {
	ID             int64
	UserName       string
	SessionID      string
	RawQuery       string
	ProcessedQuery string
	MatchedID      int64
	Confidence     float64
	ResponseType   string
	CreatedAt      time.Time
}

type FeedbackEntry struct {
	ID        int64
	UserName  string
	SessionID string
	RecordID  int64
	Score     int
	Comment   string
	CreatedAt time.Time
}

const EscalationStatusPending = "pending"

type EscalationRecord struct {
	ID        int64     `json:"escalation_id"`
	SessionID string    `json:"session_id"`
	UserName  string    `json:"user_name"`
	Reason    string    `json:"reason"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// CategoryFrequency is one row of a session's recent query history,
// grouped by the category of the matched record.
type CategoryFrequency struct {
	Category string
	Count    int
}

type AnalyticsReport struct {
	TotalQueries   int64            `json:"total_queries"`
	AvgConfidence  float64          `json:"avg_confidence"`
	UniqueSessions int64            `json:"unique_sessions"`
	TopQuestions   []QuestionCount  `json:"top_questions"`
	AvgFeedback    float64          `json:"avg_feedback"`
	TotalFeedback  int64            `json:"total_feedback"`
	PeriodDays     int              `json:"period_days"`
}

type QuestionCount struct {
	Question   string `json:"question"`
	QueryCount int64  `json:"query_count"`
}
