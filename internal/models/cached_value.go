package models

import "time"

// CachedValue is one persisted cache payload. Rows are scoped by namespace so
// coordinators of different value types can share a table.
type CachedValue struct {
	Namespace string    `json:"namespace" gorm:"primaryKey;size:128"`
	Tag       string    `json:"tag" gorm:"primaryKey;size:512"`
	Payload   []byte    `json:"-" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for CachedValue Model
func (CachedValue) TableName() string {
	return "cached_values"
}
