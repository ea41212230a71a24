package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/helpbot/backend/internal/storage/models"
	"github.com/helpbot/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		tags TEXT,
		category TEXT,
		article_link TEXT,
		feedback REAL DEFAULT 0.0,
		view_count INTEGER DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_questions_category ON questions(category);

	CREATE TABLE IF NOT EXISTS query_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_name TEXT,
		session_id TEXT,
		raw_query TEXT,
		processed_query TEXT,
		matched_question_id INTEGER,
		confidence_score REAL,
		response_type TEXT,
		timestamp INTEGER NOT NULL,
		FOREIGN KEY (matched_question_id) REFERENCES questions(id)
	);
	CREATE INDEX IF NOT EXISTS idx_query_log_session ON query_log(session_id);
	CREATE INDEX IF NOT EXISTS idx_query_log_timestamp ON query_log(timestamp);

	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_name TEXT,
		session_id TEXT,
		question_id INTEGER NOT NULL,
		feedback_score INTEGER NOT NULL,
		feedback_text TEXT,
		timestamp INTEGER NOT NULL,
		FOREIGN KEY (question_id) REFERENCES questions(id)
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_question ON feedback(question_id);

	CREATE TABLE IF NOT EXISTS user_sessions (
		session_id TEXT PRIMARY KEY,
		user_name TEXT,
		last_query TEXT,
		current_page INTEGER DEFAULT 1,
		total_pages INTEGER DEFAULT 1,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS escalations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT,
		user_name TEXT,
		reason TEXT,
		status TEXT DEFAULT 'pending',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_escalations_session ON escalations(session_id);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

const recordColumns = `id, question, answer, tags, category, COALESCE(article_link, ''), feedback, view_count, created_at, updated_at`

func scanRecord(scanner interface{ Scan(...interface{}) error }) (models.KnowledgeRecord, error) {
	var r models.KnowledgeRecord
	var createdAt, updatedAt int64

	err := scanner.Scan(
		&r.ID,
		&r.Question,
		&r.Answer,
		&r.Tags,
		&r.Category,
		&r.ArticleLink,
		&r.Feedback,
		&r.ViewCount,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return r, err
	}

	r.CreatedAt = time.Unix(createdAt, 0)
	r.UpdatedAt = time.Unix(updatedAt, 0)
	return r, nil
}

func (c *Client) FetchAllRecords(ctx context.Context) ([]models.KnowledgeRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM questions ORDER BY feedback DESC, view_count DESC`, recordColumns)

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}
	defer rows.Close()

	var records []models.KnowledgeRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

func (c *Client) FetchRecord(ctx context.Context, id int64) (*models.KnowledgeRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM questions WHERE id = ?`, recordColumns)

	r, err := scanRecord(c.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch record %d: %w", id, err)
	}
	return &r, nil
}

// FetchPopular returns the records most often matched by past queries,
// breaking ties by feedback mean and view count.
func (c *Client) FetchPopular(ctx context.Context, limit int) ([]models.KnowledgeRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM (
			SELECT q.*, COALESCE(COUNT(ql.id), 0) AS query_count
			FROM questions q
			LEFT JOIN query_log ql ON q.id = ql.matched_question_id
			GROUP BY q.id
			ORDER BY query_count DESC, q.feedback DESC, q.view_count DESC
			LIMIT ?
		)
		ORDER BY query_count DESC, feedback DESC, view_count DESC`, recordColumns)

	rows, err := c.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch popular records: %w", err)
	}
	defer rows.Close()

	var records []models.KnowledgeRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

func (c *Client) IncrementViewCount(ctx context.Context, id int64) error {
	_, err := c.db.ExecContext(ctx,
		`UPDATE questions SET view_count = view_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to increment view count for %d: %w", id, err)
	}
	return nil
}

func (c *Client) AppendQueryLog(ctx context.Context, e models.QueryLogEntry) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO query_log (user_name, session_id, raw_query, processed_query,
			matched_question_id, confidence_score, response_type, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserName,
		e.SessionID,
		e.RawQuery,
		e.ProcessedQuery,
		e.MatchedID,
		e.Confidence,
		e.ResponseType,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to append query log: %w", err)
	}

	logger.Debug("Query logged",
		zap.String("session_id", e.SessionID),
		zap.Int64("matched_id", e.MatchedID),
		zap.Float64("confidence", e.Confidence),
	)
	return nil
}

// AppendFeedback inserts a feedback row and recomputes the record's
// stored feedback value as the mean over all of its feedback rows, in
// one transaction. The mean is always recomputed from scratch so it can
// never drift incrementally.
func (c *Client) AppendFeedback(ctx context.Context, e models.FeedbackEntry) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin feedback transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO feedback (user_name, session_id, question_id, feedback_score, feedback_text, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.UserName,
		e.SessionID,
		e.RecordID,
		e.Score,
		e.Comment,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE questions
		SET feedback = (SELECT AVG(feedback_score) FROM feedback WHERE question_id = ?)
		WHERE id = ?`,
		e.RecordID, e.RecordID,
	)
	if err != nil {
		return fmt.Errorf("failed to recompute feedback mean: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit feedback: %w", err)
	}

	logger.Info("Feedback stored",
		zap.Int64("question_id", e.RecordID),
		zap.Int("score", e.Score),
	)
	return nil
}

// FetchSessionHistory returns the categories a session's matched queries
// fell into since the given time, most frequent first.
func (c *Client) FetchSessionHistory(ctx context.Context, sessionID string, since time.Time) ([]models.CategoryFrequency, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT q.category, COUNT(*) AS freq
		FROM query_log ql
		JOIN questions q ON ql.matched_question_id = q.id
		WHERE ql.session_id = ? AND ql.timestamp > ?
		GROUP BY q.category
		ORDER BY freq DESC
		LIMIT 3`,
		sessionID, since.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch session history: %w", err)
	}
	defer rows.Close()

	var freqs []models.CategoryFrequency
	for rows.Next() {
		var f models.CategoryFrequency
		if err := rows.Scan(&f.Category, &f.Count); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		freqs = append(freqs, f)
	}

	return freqs, rows.Err()
}

// FetchUnseenByCategory returns question texts from a category that the
// session has not already been matched against, best-rated first.
func (c *Client) FetchUnseenByCategory(ctx context.Context, category, sessionID string, limit int) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT question FROM questions
		WHERE category = ? AND id NOT IN (
			SELECT matched_question_id FROM query_log
			WHERE session_id = ? AND matched_question_id IS NOT NULL
		)
		ORDER BY feedback DESC, view_count DESC
		LIMIT ?`,
		category, sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unseen questions: %w", err)
	}
	defer rows.Close()

	var questions []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, q)
	}

	return questions, rows.Err()
}

func (c *Client) AppendEscalation(ctx context.Context, rec models.EscalationRecord) (int64, error) {
	res, err := c.db.ExecContext(ctx, `
		INSERT INTO escalations (session_id, user_name, reason, status, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.SessionID,
		rec.UserName,
		rec.Reason,
		rec.Status,
		rec.CreatedAt.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert escalation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read escalation id: %w", err)
	}

	logger.Info("Escalation recorded",
		zap.Int64("escalation_id", id),
		zap.String("session_id", rec.SessionID),
	)
	return id, nil
}

func (c *Client) UpsertSession(ctx context.Context, sessionID, userName, lastQuery string, currentPage, totalPages int) error {
	now := time.Now().Unix()
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO user_sessions (session_id, user_name, last_query, current_page, total_pages, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			last_query = excluded.last_query,
			current_page = excluded.current_page,
			total_pages = excluded.total_pages,
			updated_at = excluded.updated_at`,
		sessionID, userName, lastQuery, currentPage, totalPages, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

func (c *Client) CountRecords(ctx context.Context) (int64, error) {
	var count int64
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}
