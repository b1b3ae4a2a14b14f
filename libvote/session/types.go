package session

import (
	"context"

	"github.com/crypto-power/cryptovote/libvote/election"
)

// State is a voting session state.
type State int

const (
	Idle State = iota
	Loading
	Ready
	Confirming
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Confirming:
		return "confirming"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether s ends the current election selection.
func (s State) IsTerminal() bool {
	return s == Succeeded || s == Failed
}

// Snapshot is a copy of a session's state at one point in time.
type Snapshot struct {
	State      State
	ElectionID string
	Election   *election.Descriptor

	Eligibility       election.EligibilityResult
	SelectedCandidate string

	// CanConfirm is false in Ready when the voter is not eligible or the
	// election is not open; Reason then says why.
	CanConfirm bool

	Submission *election.BallotSubmission

	// ErrorCode and Reason describe the last failure or denial. Retryable
	// is set on Failed snapshots that Retry accepts.
	ErrorCode string
	Reason    string
	Retryable bool
}

// Directory resolves an election id to a descriptor.
type Directory interface {
	FetchElection(ctx context.Context, electionID, credential string) (*election.Descriptor, error)
}

// EligibilityChecker computes a fresh eligibility result.
type EligibilityChecker interface {
	CheckEligibility(ctx context.Context, voterID string, desc *election.Descriptor) election.EligibilityResult
}

// BallotSubmitter casts a ballot.
type BallotSubmitter interface {
	Submit(ctx context.Context, voterID string, desc *election.Descriptor, candidateID string,
		eligibility election.EligibilityResult) (*election.BallotSubmission, error)
}

// NotificationListener receives session transitions.
type NotificationListener interface {
	OnSessionStateChanged(snapshot Snapshot)
	OnBallotConfirmed(submission election.BallotSubmission)
}
