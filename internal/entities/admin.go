package entities

import (
	"time"
)

// AdminKey is the well-known key of the administrator singleton.
const AdminKey = "primary"

// AdminCredential is the single administrator account. The password
// is stored as a scrypt hash with a per-account random salt.
type AdminCredential struct {
	Key          string    `gorm:"primaryKey;size:32" json:"-"`
	Username     string    `gorm:"uniqueIndex;size:100" json:"username"`
	PasswordSalt string    `json:"passwordSalt"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (AdminCredential) TableName() string {
	return "admins"
}
