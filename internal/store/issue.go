package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"civicpulse.app/sla/core/db"
	"civicpulse.app/sla/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const issueColumns = `id, title, category, priority, area_id, assigned_to, status,
	created_at, resolved_at, sla_deadline, escalated_at`

type issueStore struct {
	queries db.Querier
}

func newIssueStore(queries db.Querier) IssueStore {
	return &issueStore{queries: queries}
}

func (s *issueStore) Create(ctx context.Context, issue *model.IssueSLARecord) error {
	row := s.queries.QueryRow(ctx, `
		INSERT INTO issues (id, title, category, priority, area_id, assigned_to, status,
			created_at, resolved_at, sla_deadline, escalated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+issueColumns,
		issue.ID, issue.Title, string(issue.Category), string(issue.Priority), issue.AreaID,
		issue.AssignedTo, string(issue.Status), issue.CreatedAt, issue.ResolvedAt,
		issue.SLADeadline, issue.EscalatedAt,
	)
	created, err := scanIssue(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return err
	}
	*issue = created
	return nil
}

func (s *issueStore) GetByID(ctx context.Context, id string) (*model.IssueSLARecord, error) {
	row := s.queries.QueryRow(ctx, `SELECT `+issueColumns+` FROM issues WHERE id = $1`, id)
	issue, err := scanIssue(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &issue, nil
}

func (s *issueStore) ListOpenWithDeadlines(ctx context.Context) ([]model.IssueSLARecord, error) {
	rows, err := s.queries.Query(ctx, `
		SELECT `+issueColumns+`
		FROM issues
		WHERE status IN ('pending', 'in_progress', 'escalated')
		  AND sla_deadline IS NOT NULL
		ORDER BY sla_deadline`)
	if err != nil {
		return nil, err
	}
	return collectIssues(rows)
}

func (s *issueStore) ListForCompliance(ctx context.Context, filter IssueFilter) ([]model.IssueSLARecord, error) {
	var (
		where []string
		args  []any
	)
	if filter.AreaID != "" {
		args = append(args, filter.AreaID)
		where = append(where, fmt.Sprintf("area_id = $%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		where = append(where, fmt.Sprintf("created_at < $%d", len(args)))
	}

	query := `SELECT ` + issueColumns + ` FROM issues`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.queries.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectIssues(rows)
}

func (s *issueStore) MarkEscalated(ctx context.Context, id string, at time.Time) (model.UpdateResult, error) {
	tag, err := s.queries.Exec(ctx, `
		UPDATE issues
		SET status = 'escalated', escalated_at = $2, updated_at = now()
		WHERE id = $1
		  AND escalated_at IS NULL
		  AND status IN ('pending', 'in_progress')`,
		id, at)
	if err != nil {
		return "", err
	}
	if tag.RowsAffected() == 0 {
		return model.UpdateConditionFailed, nil
	}
	return model.UpdateApplied, nil
}

func (s *issueStore) UpdateStatus(ctx context.Context, id string, from, to model.Status, at time.Time) (model.UpdateResult, error) {
	tag, err := s.queries.Exec(ctx, `
		UPDATE issues
		SET status = $3,
		    resolved_at = CASE WHEN $3 = 'resolved' THEN COALESCE(resolved_at, $4) ELSE resolved_at END,
		    updated_at = now()
		WHERE id = $1 AND status = $2`,
		id, string(from), string(to), at)
	if err != nil {
		return "", err
	}
	if tag.RowsAffected() == 0 {
		return model.UpdateConditionFailed, nil
	}
	return model.UpdateApplied, nil
}

func collectIssues(rows pgx.Rows) ([]model.IssueSLARecord, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.IssueSLARecord, error) {
		return scanIssue(row)
	})
}

func scanIssue(row pgx.Row) (model.IssueSLARecord, error) {
	var (
		issue                      model.IssueSLARecord
		category, priority, status string
	)
	err := row.Scan(
		&issue.ID,
		&issue.Title,
		&category,
		&priority,
		&issue.AreaID,
		&issue.AssignedTo,
		&status,
		&issue.CreatedAt,
		&issue.ResolvedAt,
		&issue.SLADeadline,
		&issue.EscalatedAt,
	)
	if err != nil {
		return model.IssueSLARecord{}, err
	}
	issue.Category = model.Category(category)
	issue.Priority = model.Priority(priority)
	issue.Status = model.Status(status)
	return issue, nil
}
