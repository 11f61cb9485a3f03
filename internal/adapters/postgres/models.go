package postgres

import (
	"time"

	"github.com/google/uuid"
)

type accountModel struct {
	AccountID         uuid.UUID  `gorm:"column:account_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email             string     `gorm:"column:email"`
	PasswordHash      *string    `gorm:"column:password_hash"`
	FirstName         string     `gorm:"column:first_name"`
	LastName          string     `gorm:"column:last_name"`
	Role              string     `gorm:"column:role"`
	Status            string     `gorm:"column:status"`
	Provider          string     `gorm:"column:provider"`
	ProviderID        *string    `gorm:"column:provider_id"`
	EmailVerifiedAt   *time.Time `gorm:"column:email_verified_at"`
	LastLoginAt       *time.Time `gorm:"column:last_login_at"`
	FailedAttempts    int        `gorm:"column:failed_attempts"`
	LockUntil         *time.Time `gorm:"column:lock_until"`
	LastFailedLoginAt *time.Time `gorm:"column:last_failed_login_at"`
	CreatedAt         time.Time  `gorm:"column:created_at"`
	UpdatedAt         time.Time  `gorm:"column:updated_at"`
	DeletedAt         *time.Time `gorm:"column:deleted_at"`
}

func (accountModel) TableName() string { return "accounts" }

type sessionModel struct {
	SessionID    uuid.UUID  `gorm:"column:session_id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID    uuid.UUID  `gorm:"column:account_id"`
	RefreshToken string     `gorm:"column:refresh_token"`
	TokenClass   string     `gorm:"column:token_class"`
	DeviceName   string     `gorm:"column:device_name"`
	DeviceOS     string     `gorm:"column:device_os"`
	IPAddress    *string    `gorm:"column:ip_address"`
	UserAgent    string     `gorm:"column:user_agent"`
	ExpiresAt    time.Time  `gorm:"column:expires_at"`
	RevokedAt    *time.Time `gorm:"column:revoked_at"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
}

func (sessionModel) TableName() string { return "sessions" }

type notificationOutboxModel struct {
	MessageID   uuid.UUID  `gorm:"column:message_id;type:uuid;primaryKey"`
	Kind        string     `gorm:"column:kind"`
	Recipient   string     `gorm:"column:recipient"`
	Payload     string     `gorm:"column:payload;type:jsonb"`
	RetryCount  int        `gorm:"column:retry_count"`
	LastError   *string    `gorm:"column:last_error"`
	LastErrorAt *time.Time `gorm:"column:last_error_at"`
	SentAt      *time.Time `gorm:"column:sent_at"`
	ClaimToken  *string    `gorm:"column:claim_token"`
	ClaimUntil  *time.Time `gorm:"column:claim_until"`
	DroppedAt   *time.Time `gorm:"column:dropped_at"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
}

func (notificationOutboxModel) TableName() string { return "notification_outbox" }
