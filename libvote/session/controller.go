// Package session implements the voting session state machine: load an
// election, check eligibility, confirm a candidate, submit and report the
// outcome.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/crypto-power/cryptovote/libvote/election"
	"github.com/crypto-power/cryptovote/libvote/eligibility"
	"github.com/crypto-power/cryptovote/libvote/utils"
)

// Controller drives one voting screen for one voter. Its mutex only makes
// the compare-and-set transitions atomic; no lock is held across directory
// or ledger calls.
type Controller struct {
	directory Directory
	checker   EligibilityChecker
	submitter BallotSubmitter
	voter     election.VoterIdentity
	now       func() time.Time

	mu sync.Mutex
	// gen changes on every new election selection, retry and Leave. Results
	// that come back for an older generation are dropped.
	gen             uint64
	snap            Snapshot
	confirmInFlight bool

	notificationListenersMu *sync.RWMutex
	notificationListeners   map[string]NotificationListener
}

func NewController(voter election.VoterIdentity, directory Directory, checker EligibilityChecker,
	submitter BallotSubmitter) *Controller {
	return &Controller{
		directory: directory,
		checker:   checker,
		submitter: submitter,
		voter:     voter,
		now:       time.Now,
		snap:      Snapshot{State: Idle},

		notificationListenersMu: &sync.RWMutex{},
		notificationListeners:   make(map[string]NotificationListener),
	}
}

// SetClock overrides the time source used for election window checks.
func (c *Controller) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Voter returns the identity the session votes as.
func (c *Controller) Voter() election.VoterIdentity {
	return c.voter
}

// Snapshot returns a copy of the current session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// SelectElection starts a new selection: the session restarts at Idle,
// loads the election and runs an initial eligibility check. It returns the
// error that moved the session to Failed, if any.
func (c *Controller) SelectElection(ctx context.Context, electionID string) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.resetLocked(electionID)
	idle := c.snapshotLocked()
	c.snap.State = Loading
	loading := c.snapshotLocked()
	c.mu.Unlock()

	c.publishStateChanged(idle)
	c.publishStateChanged(loading)
	return c.load(ctx, gen, electionID)
}

// Retry re-enters Loading after a retryable failure, so the voter's
// eligibility is checked again before any further submission.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	if c.snap.State != Failed || !c.snap.Retryable {
		c.mu.Unlock()
		return utils.NewErrorReason(utils.ErrInvalidState, "Only retryable failures can be retried", nil)
	}
	electionID := c.snap.ElectionID
	c.gen++
	gen := c.gen
	c.resetLocked(electionID)
	c.snap.State = Loading
	loading := c.snapshotLocked()
	c.mu.Unlock()

	log.Infof("Retrying election %s for %s", electionID, c.voter)
	c.publishStateChanged(loading)
	return c.load(ctx, gen, electionID)
}

func (c *Controller) load(ctx context.Context, gen uint64, electionID string) error {
	desc, err := c.directory.FetchElection(ctx, electionID, c.voter.Credential)
	if err == nil {
		err = desc.Validate()
	}
	if err != nil {
		return c.fail(gen, err)
	}

	result := c.checker.CheckEligibility(ctx, c.voter.VoterID, desc)
	if result.Status == election.EligibilityError {
		return c.fail(gen, eligibility.Err(result))
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return errLeft()
	}
	c.snap.Election = desc
	c.snap.Eligibility = result
	c.snap.State = Ready
	c.updateConfirmLocked()
	ready := c.snapshotLocked()
	c.mu.Unlock()

	c.publishStateChanged(ready)
	return nil
}

// SelectCandidate picks a candidate: Ready → Confirming, or a different
// pick while Confirming. It is refused while the confirm action is
// disabled.
func (c *Controller) SelectCandidate(candidateID string) error {
	c.mu.Lock()
	switch {
	case c.confirmInFlight || (c.snap.State != Ready && c.snap.State != Confirming):
		c.mu.Unlock()
		return utils.NewError(utils.ErrInvalidState, nil)
	case !c.snap.CanConfirm:
		err := utils.NewErrorReason(c.snap.ErrorCode, c.snap.Reason, nil)
		c.mu.Unlock()
		return err
	}
	if _, ok := c.snap.Election.Candidate(candidateID); !ok {
		c.mu.Unlock()
		return utils.NewError(utils.ErrInvalidCandidate, nil)
	}
	c.snap.SelectedCandidate = candidateID
	c.snap.State = Confirming
	confirming := c.snapshotLocked()
	c.mu.Unlock()

	c.publishStateChanged(confirming)
	return nil
}

// CancelSelection closes the confirmation step: Confirming → Ready.
func (c *Controller) CancelSelection() error {
	c.mu.Lock()
	if c.snap.State != Confirming || c.confirmInFlight {
		c.mu.Unlock()
		return utils.NewError(utils.ErrInvalidState, nil)
	}
	c.snap.SelectedCandidate = ""
	c.snap.State = Ready
	ready := c.snapshotLocked()
	c.mu.Unlock()

	c.publishStateChanged(ready)
	return nil
}

// Confirm submits the selected candidate. Only the first confirm of a
// Confirming session proceeds; later ones return submission_pending without
// touching the ledger. Eligibility is checked again right before the
// submission, and a downgrade fails the session instead of submitting.
func (c *Controller) Confirm(ctx context.Context) (*election.BallotSubmission, error) {
	c.mu.Lock()
	if c.confirmInFlight || c.snap.State == Submitting {
		c.mu.Unlock()
		return nil, utils.NewError(utils.ErrSubmissionPending, nil)
	}
	if c.snap.State != Confirming {
		c.mu.Unlock()
		return nil, utils.NewError(utils.ErrInvalidState, nil)
	}
	c.confirmInFlight = true
	gen := c.gen
	desc := c.snap.Election
	candidateID := c.snap.SelectedCandidate
	c.mu.Unlock()

	result := c.checker.CheckEligibility(ctx, c.voter.VoterID, desc)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return nil, errLeft()
	}
	c.confirmInFlight = false
	c.snap.Eligibility = result

	var denied error
	switch {
	case !result.IsEligible():
		denied = eligibility.Err(result)
	case !desc.IsOpen(c.now()):
		denied = utils.NewError(utils.ErrElectionClosed, nil)
	}
	if denied != nil {
		c.failLocked(denied)
		failed := c.snapshotLocked()
		c.mu.Unlock()
		log.Infof("Vote of %s on %s refused: %v", c.voter, desc.ContractAddress, denied)
		c.publishStateChanged(failed)
		return nil, denied
	}

	c.snap.State = Submitting
	c.snap.CanConfirm = false
	submitting := c.snapshotLocked()
	c.mu.Unlock()
	c.publishStateChanged(submitting)

	sub, err := c.submitter.Submit(ctx, c.voter.VoterID, desc, candidateID, result)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		log.Debugf("Dropping submission result of %s on %s: session left", c.voter, desc.ContractAddress)
		return sub, err
	}
	if sub != nil {
		s := *sub
		c.snap.Submission = &s
	}
	if err != nil {
		c.failLocked(err)
	} else {
		c.snap.State = Succeeded
		c.snap.ErrorCode, c.snap.Reason = "", ""
	}
	final := c.snapshotLocked()
	c.mu.Unlock()

	c.publishStateChanged(final)
	if err == nil && sub != nil {
		c.publishBallotConfirmed(*sub)
	}
	return sub, err
}

// Leave abandons the current selection. An in-flight ledger transaction is
// not cancelled, but its result no longer affects the session.
func (c *Controller) Leave() {
	c.mu.Lock()
	c.gen++
	c.resetLocked("")
	idle := c.snapshotLocked()
	c.mu.Unlock()

	c.publishStateChanged(idle)
}

func (c *Controller) fail(gen uint64, err error) error {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return errLeft()
	}
	c.failLocked(err)
	failed := c.snapshotLocked()
	c.mu.Unlock()

	log.Errorf("Voting session for election %s failed: %v", failed.ElectionID, err)
	c.publishStateChanged(failed)
	return err
}

func (c *Controller) failLocked(err error) {
	err = utils.TranslateError(err)
	code := utils.ErrorCode(err)
	if code == "" {
		code = utils.ErrNetwork
	}
	c.snap.State = Failed
	c.snap.CanConfirm = false
	c.snap.ErrorCode = code
	c.snap.Reason = utils.ErrorReason(err)
	c.snap.Retryable = utils.IsRetryable(utils.NewError(code, nil))
}

// updateConfirmLocked enables the confirm action only for an eligible voter
// inside the voting window.
func (c *Controller) updateConfirmLocked() {
	result := c.snap.Eligibility
	switch {
	case !result.IsEligible():
		err := eligibility.Err(result)
		c.snap.CanConfirm = false
		c.snap.ErrorCode = utils.ErrorCode(err)
		c.snap.Reason = result.Reason
	case !c.snap.Election.IsOpen(c.now()):
		err := utils.NewError(utils.ErrElectionClosed, nil)
		c.snap.CanConfirm = false
		c.snap.ErrorCode = err.Code
		c.snap.Reason = err.Reason
	default:
		c.snap.CanConfirm = true
		c.snap.ErrorCode, c.snap.Reason = "", ""
	}
}

func (c *Controller) resetLocked(electionID string) {
	c.snap = Snapshot{State: Idle, ElectionID: electionID}
	c.confirmInFlight = false
}

func (c *Controller) snapshotLocked() Snapshot {
	s := c.snap
	if s.Election != nil {
		s.Election = s.Election.Copy()
	}
	if s.Submission != nil {
		sub := *s.Submission
		s.Submission = &sub
	}
	return s
}

func errLeft() error {
	return utils.NewErrorReason(utils.ErrInvalidState, "The voting session was left", nil)
}
