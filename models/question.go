package models

import (
	"time"

	"gorm.io/gorm"
)

// Question statuses derived from the answer set.
const (
	StatusOpen     = "open"
	StatusAnswered = "answered"
)

type Question struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	ChainID     string         `json:"chain_id" gorm:"uniqueIndex;not null"` // identifier registered on the reward ledger
	Title       string         `json:"title" gorm:"not null"`
	Description string         `json:"description" gorm:"type:text;not null"`
	Tokens      int64          `json:"tokens" gorm:"not null"` // staked reward pool, fixed at creation
	Tags        []string       `json:"tags" gorm:"serializer:json"`
	Votes       int            `json:"votes" gorm:"not null;default:0"`
	Views       int            `json:"views" gorm:"not null;default:0"`
	TxHash      string         `json:"tx_hash" gorm:"not null"` // creation transaction, set once

	// Denormalized author info for fast rendering
	AuthorWallet string `json:"author_wallet" gorm:"index;not null"`
	AuthorName   string `json:"author_name" gorm:"not null"`
	AuthorAvatar string `json:"author_avatar"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Answers []Answer `json:"answers" gorm:"foreignKey:QuestionID"`
}

// Status reports the lifecycle state: open until one answer is accepted.
func (q *Question) Status() string {
	for _, a := range q.Answers {
		if a.Accepted {
			return StatusAnswered
		}
	}
	return StatusOpen
}
