package ledger

import (
	"context"
	"math/big"
)

// Client is the reward-ledger boundary. The deployed contract owns all
// reward accounting, including the payout split on acceptance; this side
// only triggers the four fixed operations and records transaction hashes.
// Ledger error strings ("Question already answered", "Cannot accept own
// answer", ...) are returned verbatim, never reinterpreted.
type Client interface {
	// RegisterQuestion stakes amount tokens under questionID.
	RegisterQuestion(ctx context.Context, cred *Credential, questionID string, amount *big.Int) (string, error)

	// SubmitAnswer records answerID against questionID.
	SubmitAnswer(ctx context.Context, cred *Credential, questionID, answerID string) (string, error)

	// AcceptAnswer pays out the stake for questionID to the beneficiary
	// address. The contract performs the split and rejects repeats.
	AcceptAnswer(ctx context.Context, cred *Credential, questionID, beneficiary string) (string, error)

	// VoteAnswer records an on-chain vote. Present for completeness; the
	// lifecycle service keeps votes off-chain and does not call it.
	VoteAnswer(ctx context.Context, cred *Credential, questionID, answerID string, value int64) (string, error)
}
