package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/verifly/verifly-go/internal/adapter"
	"github.com/verifly/verifly-go/internal/store/schema"
)

// ErrDuplicateEvent is returned when a webhook with the same signature and timestamp was already recorded
var ErrDuplicateEvent = errors.New("webhook event already recorded")

type pgStore struct {
	db    *gorm.DB
	clock adapter.Clock
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB, clock adapter.Clock) Store {
	return &pgStore{db: db, clock: clock}
}

// Migrate creates or updates the tables used by the store
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&schema.WebhookEvent{}, &schema.VerificationSession{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// Zero settings are replaced by the defaults of NormalizeConnectionPoolSettings.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 10
//   - MaxIdleConns: 2
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
//
// MaxIdleConns never exceeds MaxOpenConns.
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns <= 0 {
		maxOpenConns = 10
	}
	if maxIdleConns <= 0 {
		maxIdleConns = 2
	}
	if connMaxLifetime <= 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime <= 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// CreateWebhookEvent records a verified webhook
func (s *pgStore) CreateWebhookEvent(ctx context.Context, input CreateWebhookEventInput) (*schema.WebhookEvent, error) {
	now := s.clock.Now().UTC()
	event := schema.WebhookEvent{
		ID:         ulid.MustNewDefault(now).String(),
		EventType:  input.EventType,
		SessionID:  input.SessionID,
		Signature:  input.Signature,
		Timestamp:  input.Timestamp,
		Payload:    datatypes.JSON(input.Payload),
		Status:     schema.WebhookEventStatusReceived,
		ReceivedAt: now,
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "signature"}, {Name: "timestamp"}},
			DoNothing: true,
		}).
		Create(&event)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to create webhook event: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return s.reclaimFailedWebhookEvent(ctx, input)
	}

	return &event, nil
}

// reclaimFailedWebhookEvent resets a recorded webhook whose dispatch failed so a
// redelivery runs the handlers again. Only one concurrent redelivery wins the update.
func (s *pgStore) reclaimFailedWebhookEvent(ctx context.Context, input CreateWebhookEventInput) (*schema.WebhookEvent, error) {
	var event schema.WebhookEvent
	result := s.db.WithContext(ctx).
		Model(&event).
		Clauses(clause.Returning{}).
		Where("signature = ? AND timestamp = ? AND status = ?",
			input.Signature, input.Timestamp, schema.WebhookEventStatusFailed).
		Updates(map[string]any{
			"status":        schema.WebhookEventStatusReceived,
			"error_message": "",
			"processed_at":  nil,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to reclaim webhook event: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrDuplicateEvent
	}
	return &event, nil
}

// UpdateWebhookEventStatus sets the processing status of a recorded webhook
func (s *pgStore) UpdateWebhookEventStatus(ctx context.Context, id string, status schema.WebhookEventStatus, errorMessage string) error {
	now := s.clock.Now().UTC()
	err := s.db.WithContext(ctx).
		Model(&schema.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        status,
			"error_message": errorMessage,
			"processed_at":  now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update webhook event status: %w", err)
	}
	return nil
}

// GetWebhookEventsBySessionID returns the webhooks of a session, oldest first
func (s *pgStore) GetWebhookEventsBySessionID(ctx context.Context, sessionID string) ([]schema.WebhookEvent, error) {
	var events []schema.WebhookEvent
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get webhook events: %w", err)
	}
	return events, nil
}

// UpsertVerificationSession records or refreshes a session
func (s *pgStore) UpsertVerificationSession(ctx context.Context, input UpsertVerificationSessionInput) error {
	now := s.clock.Now().UTC()
	session := schema.VerificationSession{
		SessionID: input.SessionID,
		Phone:     input.Phone,
		Email:     input.Email,
		Methods:   datatypes.NewJSONSlice(input.Methods),
		IframeURL: input.IframeURL,
		Status:    input.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(input.Data) > 0 {
		session.Data = datatypes.JSON(input.Data)
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"phone", "email", "methods", "iframe_url", "status", "data", "updated_at"}),
		}).
		Create(&session).Error
	if err != nil {
		return fmt.Errorf("failed to upsert verification session: %w", err)
	}
	return nil
}

// UpdateVerificationSessionStatus sets the status of a recorded session
func (s *pgStore) UpdateVerificationSessionStatus(ctx context.Context, sessionID string, status string) error {
	err := s.db.WithContext(ctx).
		Model(&schema.VerificationSession{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]any{
			"status":     status,
			"updated_at": s.clock.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update verification session status: %w", err)
	}
	return nil
}

// GetVerificationSession returns a recorded session, or nil if it does not exist
func (s *pgStore) GetVerificationSession(ctx context.Context, sessionID string) (*schema.VerificationSession, error) {
	var session schema.VerificationSession
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get verification session: %w", err)
	}
	return &session, nil
}

// Ping checks the database connection
func (s *pgStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
