package store

import (
	"database/sql"

	"civicpulse.app/sla/core/db"
)

type Stores struct {
	issues IssueStore
}

// NewStores builds Postgres-backed stores over q (the pool or a transaction).
func NewStores(q db.Querier) *Stores {
	return &Stores{issues: newIssueStore(q)}
}

// NewSQLiteStores builds stores over an embedded SQLite database.
func NewSQLiteStores(conn *sql.DB) *Stores {
	return &Stores{issues: newSQLiteIssueStore(conn)}
}

func (s *Stores) Issues() IssueStore {
	return s.issues
}
