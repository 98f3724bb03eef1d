package models

import (
	"time"

	"gorm.io/gorm"
)

type Answer struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"index;not null"`
	ChainID    string `json:"chain_id" gorm:"uniqueIndex;not null"` // identifier registered on the reward ledger
	Content    string `json:"content" gorm:"type:text;not null"`
	Votes      int    `json:"votes" gorm:"not null;default:0"`
	Accepted   bool   `json:"accepted" gorm:"not null;default:false"`

	// Denormalized author info for fast rendering
	AuthorWallet string `json:"author_wallet" gorm:"index;not null"`
	AuthorName   string `json:"author_name" gorm:"not null"`
	AuthorAvatar string `json:"author_avatar"`

	// Reward ledger transaction references
	SubmitTxHash string `json:"submit_tx_hash" gorm:"not null"`
	VoteTxHash   string `json:"vote_tx_hash"` // unused in the current flow, votes stay off-chain
	AcceptTxHash string `json:"accept_tx_hash"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
