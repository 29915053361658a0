package models

import "time"

// RecoveryCode is a single-use backup code. Only the bcrypt hash is stored.
type RecoveryCode struct {
	ID            string
	UserID        string
	CodeHash      string
	UsedAt        *time.Time // nil = unused
	UsedIP        string
	UsedUserAgent string
	CreatedAt     time.Time
}

// IsUsed checks if the code has already been consumed
func (c *RecoveryCode) IsUsed() bool {
	return c.UsedAt != nil
}
