// Package ledger is the client side of the election smart contract: the
// eligibility reads, the vote transaction, finality tracking and the tally
// reads.
package ledger

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/crypto-power/cryptovote/libvote/utils"
	"github.com/ethereum/go-ethereum/params"
)

const (
	// DefaultGasLimit is the fixed gas limit attached to vote transactions.
	DefaultGasLimit uint64 = 200000

	DefaultFinalityTimeout = 2 * time.Minute
	DefaultPollInterval    = 2 * time.Second
	DefaultConfirmations   = 1
)

// DefaultMinContractBalance is the contract balance below which votes are
// not attempted: 0.01 ether.
var DefaultMinContractBalance = new(big.Int).Div(big.NewInt(params.Ether), big.NewInt(100))

// Ledger is the contract surface of an election. Every method is keyed by
// the election's contract address.
type Ledger interface {
	IsVoter(ctx context.Context, contractAddress, voterID string) (bool, error)
	HasVoted(ctx context.Context, contractAddress, voterID string) (bool, error)
	Votes(ctx context.Context, contractAddress, candidateID string) (*big.Int, error)
	AllVotes(ctx context.Context, contractAddress string) ([]*big.Int, error)
	ContractBalance(ctx context.Context, contractAddress string) (*big.Int, error)

	// Vote broadcasts one vote transaction and returns its hash without
	// waiting for it to be mined.
	Vote(ctx context.Context, contractAddress, voterID, candidateID string) (string, error)

	// WaitFinality blocks until the transaction is final, reverted or the
	// ledger's finality timeout elapses. It returns nil only for a
	// successful, final transaction.
	WaitFinality(ctx context.Context, txHash string) error
}

// classifySendError maps a failed vote broadcast onto an error code.
func classifySendError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return utils.NewError(utils.ErrLedgerTimeout, err)
	case strings.Contains(msg, "insufficient funds"):
		return utils.NewErrorReason(utils.ErrInsufficientFunds, "Relayer balance too low to vote", err)
	case strings.Contains(msg, "execution reverted"),
		strings.Contains(msg, "nonce too low"),
		strings.Contains(msg, "already known"),
		strings.Contains(msg, "replacement transaction underpriced"):
		return utils.NewError(utils.ErrLedgerRejected, err)
	}
	return utils.NewError(utils.ErrNetwork, err)
}

// classifyReadError maps a failed contract read onto an error code.
func classifyReadError(err error) error {
	if err == nil {
		return nil
	}
	if utils.ErrorCode(err) != "" {
		return err
	}
	if strings.Contains(strings.ToLower(err.Error()), "execution reverted") {
		return utils.NewErrorReason(utils.ErrLedgerRejected, "The election contract rejected the read", err)
	}
	translated := utils.TranslateError(err)
	if utils.ErrorCode(translated) != "" {
		return translated
	}
	return utils.NewError(utils.ErrNetwork, err)
}
