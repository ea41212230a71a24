package sqlite

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/helpbot/backend/pkg/logger"
)

// ImportCSV bulk-loads knowledge records from a CSV file with the header
// id,question,answer,article_link,tags,category,feedback. Malformed rows
// are skipped with a warning instead of aborting the import. Returns the
// number of rows inserted.
func (c *Client) ImportCSV(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read csv header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"id", "question", "answer", "tags"} {
		if _, ok := col[required]; !ok {
			return 0, fmt.Errorf("csv missing required column %q", required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin import transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	inserted := 0

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn("Skipping unreadable csv row", zap.Error(err))
			continue
		}

		id, err := strconv.ParseInt(field(row, "id"), 10, 64)
		if err != nil {
			logger.Warn("Skipping csv row with bad id", zap.String("id", field(row, "id")))
			continue
		}

		feedback := 0.0
		if raw := field(row, "feedback"); raw != "" {
			if feedback, err = strconv.ParseFloat(raw, 64); err != nil {
				logger.Warn("Skipping csv row with bad feedback value",
					zap.Int64("id", id),
					zap.String("feedback", raw),
				)
				continue
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO questions (id, question, answer, tags, category, article_link, feedback, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id,
			field(row, "question"),
			field(row, "answer"),
			field(row, "tags"),
			field(row, "category"),
			field(row, "article_link"),
			feedback,
			now,
			now,
		)
		if err != nil {
			logger.Warn("Skipping csv row that failed to insert",
				zap.Int64("id", id),
				zap.Error(err),
			)
			continue
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}

	logger.Info("CSV import complete",
		zap.String("path", path),
		zap.Int("rows", inserted),
	)
	return inserted, nil
}
