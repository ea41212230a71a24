package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/helpbot/backend/internal/storage/models"
)

// Analytics summarizes query and feedback activity over the trailing
// number of days.
func (c *Client) Analytics(ctx context.Context, days int) (*models.AnalyticsReport, error) {
	since := time.Now().AddDate(0, 0, -days).Unix()
	report := &models.AnalyticsReport{PeriodDays: days}

	var avgConfidence sql.NullFloat64
	err := c.db.QueryRowContext(ctx, `
		SELECT COUNT(*), AVG(confidence_score), COUNT(DISTINCT session_id)
		FROM query_log
		WHERE timestamp > ?`,
		since,
	).Scan(&report.TotalQueries, &avgConfidence, &report.UniqueSessions)
	if err != nil {
		return nil, fmt.Errorf("failed to read query statistics: %w", err)
	}
	report.AvgConfidence = avgConfidence.Float64

	rows, err := c.db.QueryContext(ctx, `
		SELECT q.question, COUNT(ql.id) AS query_count
		FROM questions q
		JOIN query_log ql ON q.id = ql.matched_question_id
		WHERE ql.timestamp > ?
		GROUP BY q.id
		ORDER BY query_count DESC
		LIMIT 10`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read top questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var qc models.QuestionCount
		if err := rows.Scan(&qc.Question, &qc.QueryCount); err != nil {
			return nil, fmt.Errorf("failed to scan top question: %w", err)
		}
		report.TopQuestions = append(report.TopQuestions, qc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate top questions: %w", err)
	}

	var avgFeedback sql.NullFloat64
	err = c.db.QueryRowContext(ctx, `
		SELECT AVG(feedback_score), COUNT(*)
		FROM feedback
		WHERE timestamp > ?`,
		since,
	).Scan(&avgFeedback, &report.TotalFeedback)
	if err != nil {
		return nil, fmt.Errorf("failed to read feedback statistics: %w", err)
	}
	report.AvgFeedback = avgFeedback.Float64

	return report, nil
}
