// Package ballot submits vote transactions and tracks them to finality.
package ballot

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/crypto-power/cryptovote/libvote/election"
	"github.com/crypto-power/cryptovote/libvote/utils"
)

// Ledger is the part of the ledger the submitter writes through.
type Ledger interface {
	ContractBalance(ctx context.Context, contractAddress string) (*big.Int, error)
	Vote(ctx context.Context, contractAddress, voterID, candidateID string) (string, error)
	WaitFinality(ctx context.Context, txHash string) error
}

// Journal persists submission states. votedata.DB satisfies it.
type Journal interface {
	SaveSubmission(sub *election.BallotSubmission) error
	Submissions(voterID string) ([]election.BallotSubmission, error)
	PendingSubmissions() ([]election.BallotSubmission, error)
}

// Submitter casts ballots. At most one submission per (voter, contract)
// pair is in flight at any time.
type Submitter struct {
	ledger     Ledger
	journal    Journal
	minBalance *big.Int

	// ctx outlives individual callers: broadcasts and finality waits run on
	// it so that a caller going away does not abandon a broadcast vote.
	ctx context.Context
	now func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}
	wg       sync.WaitGroup
}

// NewSubmitter returns a submitter whose broadcasts and finality waits run
// on ctx. journal may be nil. A nil or zero minBalance disables the contract
// balance check.
func NewSubmitter(ctx context.Context, ledger Ledger, journal Journal, minBalance *big.Int) *Submitter {
	return &Submitter{
		ledger:     ledger,
		journal:    journal,
		minBalance: minBalance,
		ctx:        ctx,
		now:        time.Now,
		inFlight:   make(map[string]struct{}),
	}
}

// Submit casts one ballot for candidateID. eligibility must be an Eligible
// result computed for this exact voter and contract. The returned error is
// nil only when the submission is Confirmed; a submission that reached the
// ledger is returned alongside its failure.
func (s *Submitter) Submit(ctx context.Context, voterID string, desc *election.Descriptor, candidateID string,
	eligibility election.EligibilityResult) (*election.BallotSubmission, error) {
	if _, ok := desc.Candidate(candidateID); !ok {
		return nil, utils.NewError(utils.ErrInvalidCandidate, nil)
	}
	if !eligibility.IsEligible() || !eligibility.AppliesTo(voterID, desc.ContractAddress) {
		return nil, utils.NewError(utils.ErrNotEligible, nil)
	}

	key := election.PairKey(voterID, desc.ContractAddress)
	if !s.reserve(key) {
		return nil, utils.NewError(utils.ErrSubmissionPending, nil)
	}
	s.wg.Add(1)
	defer s.wg.Done()
	defer s.release(key)

	if err := s.checkBalance(ctx, desc.ContractAddress); err != nil {
		return nil, err
	}

	now := s.now()
	sub := &election.BallotSubmission{
		Key:                     key,
		VoterID:                 voterID,
		ElectionContractAddress: desc.ContractAddress,
		CandidateID:             candidateID,
		Status:                  election.Pending,
		SubmittedAt:             now,
		UpdatedAt:               now,
	}
	s.record(sub)

	txHash, err := s.ledger.Vote(s.ctx, desc.ContractAddress, voterID, candidateID)
	if err != nil {
		return s.fail(sub, err)
	}
	sub.TxHash = txHash
	sub.UpdatedAt = s.now()
	s.record(sub)

	if err = s.ledger.WaitFinality(s.ctx, txHash); err != nil {
		if s.ctx.Err() != nil {
			return s.interrupted(sub, err)
		}
		return s.fail(sub, err)
	}

	sub.Status = election.Confirmed
	sub.Reason = ""
	sub.UpdatedAt = s.now()
	s.record(sub)
	log.Infof("Vote of %s on %s confirmed in %s", voterID, desc.ContractAddress, txHash)
	return sub, nil
}

// Pending reports whether a submission for the pair is in flight.
func (s *Submitter) Pending(voterID, contractAddress string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFlight[election.PairKey(voterID, contractAddress)]
	return ok
}

// Submissions lists the journaled submissions of a voter, newest first.
func (s *Submitter) Submissions(voterID string) ([]election.BallotSubmission, error) {
	if s.journal == nil {
		return nil, nil
	}
	subs, err := s.journal.Submissions(voterID)
	if err != nil {
		return nil, utils.TranslateError(err)
	}
	return subs, nil
}

// Wait blocks until every in-flight submission and resumed finality wait
// has finished.
func (s *Submitter) Wait() {
	s.wg.Wait()
}

func (s *Submitter) reserve(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inFlight[key]; ok {
		return false
	}
	s.inFlight[key] = struct{}{}
	return true
}

func (s *Submitter) release(key string) {
	s.mu.Lock()
	delete(s.inFlight, key)
	s.mu.Unlock()
}

func (s *Submitter) checkBalance(ctx context.Context, contractAddress string) error {
	if s.minBalance == nil || s.minBalance.Sign() <= 0 {
		return nil
	}
	balance, err := s.ledger.ContractBalance(ctx, contractAddress)
	if err != nil {
		return err
	}
	if balance == nil || balance.Cmp(s.minBalance) < 0 {
		log.Warnf("Contract %s balance %v is below %v", contractAddress, balance, s.minBalance)
		return utils.NewError(utils.ErrInsufficientFunds, nil)
	}
	return nil
}

func (s *Submitter) fail(sub *election.BallotSubmission, err error) (*election.BallotSubmission, error) {
	if utils.ErrorCode(err) == "" {
		err = utils.NewError(utils.ErrNetwork, err)
	}
	sub.Status = election.Failed
	sub.Reason = utils.ErrorReason(err)
	sub.UpdatedAt = s.now()
	s.record(sub)
	log.Errorf("Vote of %s on %s failed: %v", sub.VoterID, sub.ElectionContractAddress, err)
	return sub, err
}

// interrupted leaves a broadcast submission Pending in the journal when the
// submitter is stopped mid wait, so ResumePending tracks it on the next
// start. The caller still gets the wait's error.
func (s *Submitter) interrupted(sub *election.BallotSubmission, err error) (*election.BallotSubmission, error) {
	if utils.ErrorCode(err) == "" {
		err = utils.NewError(utils.ErrLedgerTimeout, err)
	}
	log.Infof("Stopped waiting for %s on %s, it stays pending", sub.TxHash, sub.ElectionContractAddress)
	return sub, err
}

func (s *Submitter) record(sub *election.BallotSubmission) {
	if s.journal == nil {
		return
	}
	if err := s.journal.SaveSubmission(sub); err != nil {
		log.Errorf("error journaling submission of %s: %v", sub.VoterID, err)
	}
}
