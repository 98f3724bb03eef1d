package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"stakeqa/ledger"
	"stakeqa/models"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Question{}, &models.Answer{}))
	return db
}

func testCredential(t *testing.T) *ledger.Credential {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	cred, err := ledger.NewCredential(hex.EncodeToString(crypto.FromECDSA(key)))
	require.NoError(t, err)
	return cred
}

// fakeLedger stands in for the on-chain contract. It mirrors the contract's
// arbitration of acceptance: the first accept per question wins, repeats
// fail with the ledger's own error string.
type fakeLedger struct {
	mu       sync.Mutex
	failWith error
	accepted map[string]string // question chain id -> beneficiary

	registerCalls int
	submitCalls   int
	acceptCalls   int
	voteCalls     int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{accepted: make(map[string]string)}
}

func (f *fakeLedger) RegisterQuestion(ctx context.Context, cred *ledger.Credential, questionID string, amount *big.Int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registerCalls++
	if f.failWith != nil {
		return "", f.failWith
	}
	return "0xcreate" + questionID, nil
}

func (f *fakeLedger) SubmitAnswer(ctx context.Context, cred *ledger.Credential, questionID, answerID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++
	if f.failWith != nil {
		return "", f.failWith
	}
	return "0xsubmit" + answerID, nil
}

func (f *fakeLedger) AcceptAnswer(ctx context.Context, cred *ledger.Credential, questionID, beneficiary string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acceptCalls++
	if f.failWith != nil {
		return "", f.failWith
	}
	if _, done := f.accepted[questionID]; done {
		return "", errors.New("Question already answered")
	}
	f.accepted[questionID] = beneficiary
	return "0xaccept" + questionID, nil
}

func (f *fakeLedger) VoteAnswer(ctx context.Context, cred *ledger.Credential, questionID, answerID string, value int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voteCalls++
	if f.failWith != nil {
		return "", f.failWith
	}
	return "0xvote" + answerID, nil
}

func (f *fakeLedger) calls() (register, submit, accept, vote int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registerCalls, f.submitCalls, f.acceptCalls, f.voteCalls
}
