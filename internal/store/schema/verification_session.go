package schema

import (
	"time"

	"gorm.io/datatypes"
)

// VerificationSession represents the verification_sessions table - sessions created through the receiver
type VerificationSession struct {
	// SessionID is the Verifly session ID
	SessionID string `gorm:"column:session_id;primaryKey;type:varchar(255)"`
	// Phone is the recipient phone number, if any
	Phone string `gorm:"column:phone;type:varchar(32)"`
	// Email is the recipient email, if any
	Email string `gorm:"column:email;type:varchar(255)"`
	// Methods are the allowed verification channels
	Methods datatypes.JSONSlice[string] `gorm:"column:methods;type:jsonb"`
	// IframeURL is the URL of the hosted verification page
	IframeURL string `gorm:"column:iframe_url;type:text"`
	// Status is the last known session status
	Status string `gorm:"column:status;not null;type:varchar(50)"`
	// Data is the custom data attached to the session
	Data datatypes.JSON `gorm:"column:data;type:jsonb"`
	// CreatedAt is the timestamp when this session was recorded
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when this session was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the VerificationSession model
func (VerificationSession) TableName() string {
	return "verification_sessions"
}
