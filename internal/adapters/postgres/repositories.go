package postgres

import (
	"gorm.io/gorm"

	"github.com/sweetcrumb/backoffice-auth/internal/ports"
)

// Repositories bundles the Postgres-backed store implementations.
type Repositories struct {
	Users    ports.UserStore
	Sessions ports.SessionStore
	Outbox   ports.NotificationOutbox
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:    &userRepository{db: db},
		Sessions: &sessionRepository{db: db},
		Outbox:   &outboxRepository{db: db},
	}
}
