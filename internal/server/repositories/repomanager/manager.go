// Package repomanager bundles the per-entity repositories behind a single
// factory so that services can obtain repositories bound either to the shared
// *sql.DB or to a transaction handle.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/Ursa1337/account-service/internal/dbx"
	"github.com/Ursa1337/account-service/internal/server/repositories/accounts"
	"github.com/Ursa1337/account-service/internal/server/repositories/avatars"
	"github.com/Ursa1337/account-service/internal/server/repositories/sessions"
)

// RepositoryManager constructs entity repositories over a DBTX and owns schema
// migration.
type RepositoryManager interface {
	Accounts(db dbx.DBTX) accounts.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Avatars(db dbx.DBTX) avatars.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
