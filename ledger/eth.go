package ledger

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

// questionRewardABI covers the four contract methods this service calls.
const questionRewardABI = `[
	{"type":"function","name":"createQuestion","stateMutability":"nonpayable","inputs":[{"name":"questionId","type":"string"},{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"submitAnswer","stateMutability":"nonpayable","inputs":[{"name":"questionId","type":"string"},{"name":"answerId","type":"string"}],"outputs":[]},
	{"type":"function","name":"acceptAnswer","stateMutability":"nonpayable","inputs":[{"name":"questionId","type":"string"},{"name":"beneficiary","type":"address"}],"outputs":[]},
	{"type":"function","name":"voteAnswer","stateMutability":"nonpayable","inputs":[{"name":"questionId","type":"string"},{"name":"answerId","type":"string"},{"name":"value","type":"int256"}],"outputs":[]}
]`

// EthLedger talks to the deployed QuestionReward contract over JSON-RPC.
type EthLedger struct {
	client   *ethclient.Client
	abi      abi.ABI
	contract common.Address
	chainID  *big.Int
}

func NewEthLedger(rpcURL, contractAddress string, chainID int64) (*EthLedger, error) {
	if !common.IsHexAddress(contractAddress) {
		return nil, fmt.Errorf("invalid reward contract address: %q", contractAddress)
	}

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain RPC: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(questionRewardABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse reward contract ABI: %w", err)
	}

	return &EthLedger{
		client:   client,
		abi:      parsed,
		contract: common.HexToAddress(contractAddress),
		chainID:  big.NewInt(chainID),
	}, nil
}

func (l *EthLedger) RegisterQuestion(ctx context.Context, cred *Credential, questionID string, amount *big.Int) (string, error) {
	return l.invoke(ctx, cred, "createQuestion", questionID, amount)
}

func (l *EthLedger) SubmitAnswer(ctx context.Context, cred *Credential, questionID, answerID string) (string, error) {
	return l.invoke(ctx, cred, "submitAnswer", questionID, answerID)
}

func (l *EthLedger) AcceptAnswer(ctx context.Context, cred *Credential, questionID, beneficiary string) (string, error) {
	if !common.IsHexAddress(beneficiary) {
		return "", fmt.Errorf("invalid beneficiary address: %q", beneficiary)
	}
	return l.invoke(ctx, cred, "acceptAnswer", questionID, common.HexToAddress(beneficiary))
}

func (l *EthLedger) VoteAnswer(ctx context.Context, cred *Credential, questionID, answerID string, value int64) (string, error) {
	return l.invoke(ctx, cred, "voteAnswer", questionID, answerID, big.NewInt(value))
}

// invoke packs, signs, sends and waits for one contract call. Contract
// reverts surface during gas estimation with the ledger's error string and
// are returned as-is.
func (l *EthLedger) invoke(ctx context.Context, cred *Credential, method string, args ...interface{}) (string, error) {
	data, err := l.abi.Pack(method, args...)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s call: %w", method, err)
	}

	from := cred.Address()

	nonce, err := l.client.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("failed to fetch account nonce: %w", err)
	}

	gasPrice, err := l.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch gas price: %w", err)
	}

	gasLimit, err := l.client.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &l.contract,
		Data: data,
	})
	if err != nil {
		// Reverts show up here; keep the contract's message verbatim.
		return "", err
	}

	tx := types.NewTransaction(nonce, l.contract, big.NewInt(0), gasLimit, gasPrice, data)

	signed, err := types.SignTx(tx, types.NewEIP155Signer(l.chainID), cred.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s transaction: %w", method, err)
	}

	if err := l.client.SendTransaction(ctx, signed); err != nil {
		return "", err
	}

	logrus.Infof("Sent %s transaction %s, waiting for confirmation", method, signed.Hash().Hex())

	receipt, err := bind.WaitMined(ctx, l.client, signed)
	if err != nil {
		return "", fmt.Errorf("failed waiting for %s transaction %s: %w", method, signed.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", fmt.Errorf("%s transaction %s reverted", method, signed.Hash().Hex())
	}

	return signed.Hash().Hex(), nil
}
