package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/namelens/pitchscore/internal/metrics"
	"github.com/namelens/pitchscore/internal/scoring"
)

// DefaultRetention is the number of analyses kept per identity.
const DefaultRetention = 10

// Analysis is one stored scoring result.
type Analysis struct {
	ID                 string            `json:"id"`
	Identity           string            `json:"-"`
	ProjectName        string            `json:"projectName"`
	ProjectDescription string            `json:"projectDescription"`
	Scores             scoring.Scores    `json:"scores"`
	Feedback           *scoring.Feedback `json:"feedback,omitempty"`
	Timestamp          time.Time         `json:"timestamp"`
}

// NewAnalysis builds a record from a scored input.
func NewAnalysis(input scoring.ProjectInput, result *scoring.Result, at time.Time) Analysis {
	a := Analysis{
		ID:                 uuid.NewString(),
		ProjectName:        strings.TrimSpace(input.Name),
		ProjectDescription: strings.TrimSpace(input.Description),
		Timestamp:          at.UTC(),
	}
	if result != nil {
		a.Scores = result.Scores
		feedback := result.Feedback
		a.Feedback = &feedback
	}
	return a
}

// SaveAnalysis stores a record under an owner key and prunes that owner's
// history down to the retention limit, newest kept. HTTP callers own a
// server-issued history key; the CLI records under "cli".
func (s *Store) SaveAnalysis(ctx context.Context, identity string, a Analysis) (err error) {
	defer func() { metrics.RecordHistoryOperation("save", err == nil) }()

	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if strings.TrimSpace(a.ID) == "" {
		a.ID = uuid.NewString()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}

	scoresJSON, err := json.Marshal(a.Scores)
	if err != nil {
		return fmt.Errorf("encode scores: %w", err)
	}
	var feedbackJSON sql.NullString
	if a.Feedback != nil {
		payload, err := json.Marshal(a.Feedback)
		if err != nil {
			return fmt.Errorf("encode feedback: %w", err)
		}
		feedbackJSON = sql.NullString{String: string(payload), Valid: true}
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save analysis: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO analyses (id, identity, project_name, project_description, scores_json, feedback_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.ID, identity, a.ProjectName, a.ProjectDescription, string(scoresJSON), feedbackJSON, a.Timestamp.UnixMilli()); err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `
		DELETE FROM analyses
		WHERE identity = ?
		  AND seq NOT IN (
			SELECT seq FROM analyses
			WHERE identity = ?
			ORDER BY created_at DESC, seq DESC
			LIMIT ?
		  )
	`, identity, identity, s.retention()); err != nil {
		return fmt.Errorf("prune analyses: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit analysis: %w", err)
	}
	return nil
}

// ListAnalyses returns up to limit records for an owner key, newest first.
// An empty key lists across all owners. Rows whose scores cannot be
// decoded are skipped.
func (s *Store) ListAnalyses(ctx context.Context, identity string, limit int) (out []Analysis, err error) {
	defer func() { metrics.RecordHistoryOperation("list", err == nil) }()

	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if limit <= 0 {
		limit = s.retention()
	}

	query := `
		SELECT id, identity, project_name, project_description, scores_json, feedback_json, created_at
		FROM analyses`
	args := []any{}
	if identity != "" {
		query += ` WHERE identity = ?`
		args = append(args, identity)
	}
	query += ` ORDER BY created_at DESC, seq DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	out = make([]Analysis, 0, limit)
	for rows.Next() {
		var (
			a            Analysis
			scoresJSON   string
			feedbackJSON sql.NullString
			createdAt    int64
		)
		if err := rows.Scan(&a.ID, &a.Identity, &a.ProjectName, &a.ProjectDescription, &scoresJSON, &feedbackJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		if err := json.Unmarshal([]byte(scoresJSON), &a.Scores); err != nil {
			s.warn("Skipping analysis with unreadable scores", zap.String("id", a.ID), zap.Error(err))
			continue
		}
		if feedbackJSON.Valid && feedbackJSON.String != "" {
			var fb scoring.Feedback
			if err := json.Unmarshal([]byte(feedbackJSON.String), &fb); err != nil {
				s.warn("Dropping unreadable feedback", zap.String("id", a.ID), zap.Error(err))
			} else {
				a.Feedback = &fb
			}
		}
		a.Timestamp = time.UnixMilli(createdAt).UTC()
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analyses: %w", err)
	}
	return out, nil
}

func (s *Store) retention() int {
	if s.keep <= 0 {
		return DefaultRetention
	}
	return s.keep
}

func (s *Store) warn(msg string, fields ...zap.Field) {
	if s.logger == nil {
		return
	}
	s.logger.Warn(msg, fields...)
}
