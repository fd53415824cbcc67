package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"civicpulse.app/sla/internal/model"
	"github.com/mattn/go-sqlite3"
)

// sqliteIssueStore backs local runs and tests. Times are stored in UTC so
// that the driver's text encoding compares chronologically.
type sqliteIssueStore struct {
	conn *sql.DB
}

func newSQLiteIssueStore(conn *sql.DB) IssueStore {
	return &sqliteIssueStore{conn: conn}
}

func (s *sqliteIssueStore) Create(ctx context.Context, issue *model.IssueSLARecord) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO issues (id, title, category, priority, area_id, assigned_to, status,
			created_at, resolved_at, sla_deadline, escalated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		issue.ID, issue.Title, string(issue.Category), string(issue.Priority), issue.AreaID,
		issue.AssignedTo, string(issue.Status), issue.CreatedAt.UTC(), utcOrNil(issue.ResolvedAt),
		utcOrNil(issue.SLADeadline), utcOrNil(issue.EscalatedAt),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return ErrConflict
		}
		return err
	}

	created, err := s.GetByID(ctx, issue.ID)
	if err != nil {
		return err
	}
	*issue = *created
	return nil
}

func (s *sqliteIssueStore) GetByID(ctx context.Context, id string) (*model.IssueSLARecord, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+issueColumns+` FROM issues WHERE id = ?`, id)
	issue, err := scanSQLiteIssue(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &issue, nil
}

func (s *sqliteIssueStore) ListOpenWithDeadlines(ctx context.Context) ([]model.IssueSLARecord, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT `+issueColumns+`
		FROM issues
		WHERE status IN ('pending', 'in_progress', 'escalated')
		  AND sla_deadline IS NOT NULL
		ORDER BY sla_deadline`)
	if err != nil {
		return nil, err
	}
	return collectSQLiteIssues(rows)
}

func (s *sqliteIssueStore) ListForCompliance(ctx context.Context, filter IssueFilter) ([]model.IssueSLARecord, error) {
	var (
		where []string
		args  []any
	)
	if filter.AreaID != "" {
		where = append(where, "area_id = ?")
		args = append(args, filter.AreaID)
	}
	if filter.CreatedFrom != nil {
		where = append(where, "created_at >= ?")
		args = append(args, filter.CreatedFrom.UTC())
	}
	if filter.CreatedTo != nil {
		where = append(where, "created_at < ?")
		args = append(args, filter.CreatedTo.UTC())
	}

	query := `SELECT ` + issueColumns + ` FROM issues`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectSQLiteIssues(rows)
}

func (s *sqliteIssueStore) MarkEscalated(ctx context.Context, id string, at time.Time) (model.UpdateResult, error) {
	res, err := s.conn.ExecContext(ctx, `
		UPDATE issues
		SET status = 'escalated', escalated_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		  AND escalated_at IS NULL
		  AND status IN ('pending', 'in_progress')`,
		at.UTC(), id)
	if err != nil {
		return "", err
	}
	return updateResult(res)
}

func (s *sqliteIssueStore) UpdateStatus(ctx context.Context, id string, from, to model.Status, at time.Time) (model.UpdateResult, error) {
	res, err := s.conn.ExecContext(ctx, `
		UPDATE issues
		SET status = ?,
		    resolved_at = CASE WHEN ? = 'resolved' THEN COALESCE(resolved_at, ?) ELSE resolved_at END,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?`,
		string(to), string(to), at.UTC(), id, string(from))
	if err != nil {
		return "", err
	}
	return updateResult(res)
}

func updateResult(res sql.Result) (model.UpdateResult, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return model.UpdateConditionFailed, nil
	}
	return model.UpdateApplied, nil
}

func collectSQLiteIssues(rows *sql.Rows) ([]model.IssueSLARecord, error) {
	defer rows.Close()

	var issues []model.IssueSLARecord
	for rows.Next() {
		issue, err := scanSQLiteIssue(rows)
		if err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteIssue(row rowScanner) (model.IssueSLARecord, error) {
	var (
		issue                                model.IssueSLARecord
		category, priority, status           string
		resolvedAt, slaDeadline, escalatedAt sql.NullTime
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
		&resolvedAt,
		&slaDeadline,
		&escalatedAt,
	)
	if err != nil {
		return model.IssueSLARecord{}, err
	}
	issue.Category = model.Category(category)
	issue.Priority = model.Priority(priority)
	issue.Status = model.Status(status)
	issue.ResolvedAt = nullTimePtr(resolvedAt)
	issue.SLADeadline = nullTimePtr(slaDeadline)
	issue.EscalatedAt = nullTimePtr(escalatedAt)
	return issue, nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func utcOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
