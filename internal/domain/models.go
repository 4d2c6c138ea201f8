package domain

import "time"

// Blob is one entry of the audit key-value store. Values are opaque JSON
// documents; the key namespace is owned by the repo package:
//
//   - "<auditId>"        the AuditRecord
//   - "email-<auditId>"  a NotifyRequest
//   - "idem-<key>"       the audit id produced for an Idempotency-Key
//
// Fields:
//   - Key: primary key, the full namespaced key.
//   - Value: JSON document, returned verbatim to pollers.
//   - Notified: set once by the single caller that wins the right to send
//     the result emails for a notify request. Only meaningful on notify rows.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - ExpiresAt: retention horizon; expired rows are invisible to reads and
//     removed by the periodic purge.
type Blob struct {
	Key       string    `json:"key"        gorm:"type:varchar(191);primaryKey"`
	Value     string    `json:"value"      gorm:"type:text;not null"`
	Notified  bool      `json:"notified"   gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
}

// TableName returns the database table name for Blob.
func (Blob) TableName() string { return "audit_blobs" }
