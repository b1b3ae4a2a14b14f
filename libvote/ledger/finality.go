package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/crypto-power/cryptovote/libvote/utils"
	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// WaitFinality polls for the transaction receipt until the transaction is
// mined with the configured number of confirmations. A reverted receipt is
// reported as ledger_rejected and an expired wait as ledger_timeout.
func (l *EthLedger) WaitFinality(ctx context.Context, txHash string) error {
	ctx, cancel := context.WithTimeout(ctx, l.finalityTimeout)
	defer cancel()

	hash := common.HexToHash(txHash)
	receipt, err := l.waitMined(ctx, hash)
	if err != nil {
		return err
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		log.Warnf("Vote transaction %s reverted in block %v", txHash, receipt.BlockNumber)
		return utils.NewErrorReason(utils.ErrLedgerRejected, "The vote transaction was reverted", nil)
	}

	if err = l.waitConfirmations(ctx, receipt); err != nil {
		return err
	}
	log.Infof("Vote transaction %s is final in block %v", txHash, receipt.BlockNumber)
	return nil
}

func (l *EthLedger) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	for {
		receipt, err := l.backend.TransactionReceipt(ctx, hash)
		if receipt != nil {
			return receipt, nil
		}
		if err == nil || errors.Is(err, ethereum.NotFound) {
			log.Tracef("Transaction %s not yet mined", hash.Hex())
		} else if ctx.Err() == nil {
			// Receipt lookups are retried until the wait expires.
			log.Debugf("Receipt lookup for %s failed: %v", hash.Hex(), err)
		}

		if err := l.sleep(ctx); err != nil {
			return nil, err
		}
	}
}

func (l *EthLedger) waitConfirmations(ctx context.Context, receipt *types.Receipt) error {
	if l.confirmations <= 1 || receipt.BlockNumber == nil {
		return nil
	}
	target := receipt.BlockNumber.Uint64() + l.confirmations - 1
	for {
		height, err := l.backend.BlockNumber(ctx)
		if err == nil && height >= target {
			return nil
		}
		if err := l.sleep(ctx); err != nil {
			return err
		}
	}
}

func (l *EthLedger) sleep(ctx context.Context) error {
	t := time.NewTimer(l.pollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return utils.NewError(utils.ErrLedgerTimeout, ctx.Err())
		}
		return utils.NewErrorReason(utils.ErrLedgerTimeout, "Stopped waiting for the vote to be confirmed", ctx.Err())
	case <-t.C:
		return nil
	}
}
