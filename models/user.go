package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	WalletAddress string         `json:"wallet_address" gorm:"uniqueIndex;not null"` // stored lowercase
	Name          string         `json:"name"`
	Avatar        string         `json:"avatar"`
	Reputation    int            `json:"reputation" gorm:"not null;default:0"`
	Nonce         string         `json:"-" gorm:"not null"` // login challenge, rotated on every verify
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}
