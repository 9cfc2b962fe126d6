package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/vidtube/internal/dbx"
	"github.com/dmitrijs2005/vidtube/internal/server/repositories/channels"
	"github.com/dmitrijs2005/vidtube/internal/server/repositories/users"
)

// InMemoryRepositoryManager hands out the same repositories regardless of the
// DBTX it is given; transactions are not isolated.
type InMemoryRepositoryManager struct {
	users    users.Repository
	channels channels.Repository
}

func (m InMemoryRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return nil
}

func (m InMemoryRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return m.users
}

func (m InMemoryRepositoryManager) Channels(db dbx.DBTX) channels.Repository {
	return m.channels
}

func NewInMemoryRepositoryManager(u users.Repository, c channels.Repository) RepositoryManager {
	return InMemoryRepositoryManager{users: u, channels: c}
}
