// Package service adapts infrastructure components to the application
// layer's port interfaces.
package service

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/mihrab-hub/mihrab-progress-hub/internal/application/command"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/infrastructure/persistence/postgres"
)

// PgUnitOfWork implements command.UnitOfWork over a postgres connection.
// Each WithinTx call opens one transaction and hands the callback a set
// of repositories bound to it, so every write inside the callback
// commits or rolls back together.
type PgUnitOfWork struct {
	conn *postgres.Connection
}

// NewPgUnitOfWork creates a new PgUnitOfWork.
func NewPgUnitOfWork(conn *postgres.Connection) *PgUnitOfWork {
	return &PgUnitOfWork{conn: conn}
}

// WithinTx runs fn inside a read-committed transaction. Per-learner
// serialization comes from the FOR UPDATE lock taken inside fn, not
// from the isolation level.
func (u *PgUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, s command.Stores) error) error {
	return u.conn.WithTx(ctx, postgres.DefaultTxOptions(), func(tx pgx.Tx) error {
		return fn(ctx, command.Stores{
			Learners: postgres.NewLearnerRepository(tx),
			Attempts: postgres.NewAttemptRepository(tx),
			Skills:   postgres.NewSkillRepository(tx),
			Weekly:   postgres.NewWeeklyRepository(tx),
		})
	})
}
