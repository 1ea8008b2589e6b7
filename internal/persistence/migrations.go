package persistence

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/remotedb"
)

// Executor mirrors the statement runner the schema bootstrap needs.
type Executor interface {
	Execute(ctx context.Context, statement string, params []any) (*remotedb.Result, error)
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS tickets (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        timestamp TEXT,
        name TEXT,
        email TEXT,
        issue TEXT,
        notes TEXT DEFAULT '',
        status TEXT DEFAULT 'Open',
        priority TEXT DEFAULT 'Medium',
        assigned_agent TEXT DEFAULT '',
        category TEXT DEFAULT 'General'
    )`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_timestamp ON tickets (timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets (status)`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_category ON tickets (category)`,
}

// EnsureSchema creates the tickets table and its indexes when missing.
func EnsureSchema(ctx context.Context, exec Executor, logger *zap.Logger) error {
	for _, statement := range schemaStatements {
		if _, err := exec.Execute(ctx, statement, nil); err != nil {
			return err
		}
	}
	logger.Info("ticket schema verified")
	return nil
}
