package ledger

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Credential is the signing capability for ledger calls. It is created once
// from configuration and passed explicitly into every operation; nothing in
// this package holds a key as global state.
type Credential struct {
	key *ecdsa.PrivateKey
}

func NewCredential(hexKey string) (*Credential, error) {
	if hexKey == "" {
		return nil, fmt.Errorf("operator private key is not configured")
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid operator private key: %w", err)
	}
	return &Credential{key: key}, nil
}

// Address returns the account derived from the credential's key.
func (c *Credential) Address() common.Address {
	return crypto.PubkeyToAddress(c.key.PublicKey)
}
