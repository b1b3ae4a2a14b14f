// Package eligibility decides whether a voter may cast a ballot in an
// election right now.
package eligibility

import (
	"context"
	"time"

	"github.com/crypto-power/cryptovote/libvote/election"
	"github.com/crypto-power/cryptovote/libvote/utils"
	"golang.org/x/sync/errgroup"
)

// Reader is the part of the ledger the checker reads.
type Reader interface {
	IsVoter(ctx context.Context, contractAddress, voterID string) (bool, error)
	HasVoted(ctx context.Context, contractAddress, voterID string) (bool, error)
}

type Checker struct {
	ledger Reader
	now    func() time.Time
}

func NewChecker(ledger Reader) *Checker {
	return &Checker{ledger: ledger, now: time.Now}
}

// CheckEligibility reads registration and voting status concurrently and
// combines them: not registered dominates already voted, and both must pass
// for Eligible. Any read failure yields EligibilityError. Results are never
// cached.
func (c *Checker) CheckEligibility(ctx context.Context, voterID string, desc *election.Descriptor) election.EligibilityResult {
	result := election.EligibilityResult{
		VoterID:         voterID,
		ContractAddress: desc.ContractAddress,
		CheckedAt:       c.now(),
	}

	if voterID == "" {
		result.Status = election.EligibilityError
		result.Reason = "Voter ID not provided"
		return result
	}

	var isVoter, hasVoted bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		isVoter, err = c.ledger.IsVoter(gctx, desc.ContractAddress, voterID)
		return err
	})
	g.Go(func() (err error) {
		hasVoted, err = c.ledger.HasVoted(gctx, desc.ContractAddress, voterID)
		return err
	})

	if err := g.Wait(); err != nil {
		log.Errorf("Eligibility check of %s on %s failed: %v", voterID, desc.ContractAddress, err)
		result.Status = election.EligibilityError
		result.Reason = utils.ErrorReason(err)
		return result
	}

	switch {
	case !isVoter:
		result.Status = election.NotRegistered
		result.Reason = utils.ErrorReason(utils.NewError(utils.ErrNotRegistered, nil))
	case hasVoted:
		result.Status = election.AlreadyVoted
		result.Reason = utils.ErrorReason(utils.NewError(utils.ErrAlreadyVoted, nil))
	default:
		result.Status = election.Eligible
	}

	log.Debugf("Eligibility of %s on %s: %v", voterID, desc.ContractAddress, result.Status)
	return result
}

// Err returns the error code form of a non-eligible result, or nil.
func Err(result election.EligibilityResult) error {
	switch result.Status {
	case election.Eligible:
		return nil
	case election.NotRegistered:
		return utils.NewError(utils.ErrNotRegistered, nil)
	case election.AlreadyVoted:
		return utils.NewError(utils.ErrAlreadyVoted, nil)
	default:
		return utils.NewErrorReason(utils.ErrEligibilityCheck, result.Reason, nil)
	}
}
