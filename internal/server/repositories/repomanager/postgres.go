package repomanager

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/Ursa1337/account-service/internal/dbx"
	"github.com/Ursa1337/account-service/internal/server/migrations"
	"github.com/Ursa1337/account-service/internal/server/repositories/accounts"
	"github.com/Ursa1337/account-service/internal/server/repositories/avatars"
	"github.com/Ursa1337/account-service/internal/server/repositories/sessions"
)

// PostgresRepositoryManager hands out the PostgreSQL repository
// implementations.
type PostgresRepositoryManager struct{}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Accounts(db dbx.DBTX) accounts.Repository {
	return accounts.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Sessions(db dbx.DBTX) sessions.Repository {
	return sessions.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Avatars(db dbx.DBTX) avatars.Repository {
	return avatars.NewPostgresRepository(db)
}

// RunMigrations applies the embedded goose migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}
