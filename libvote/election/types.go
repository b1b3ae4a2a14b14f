// Package election holds the data model shared by the voting core: election
// descriptors, voter identities, eligibility results, ballot submissions and
// tally rows.
package election

import (
	"fmt"
	"strings"
	"time"

	"github.com/crypto-power/cryptovote/libvote/utils"
	"github.com/ethereum/go-ethereum/common"
)

// CandidateRef identifies a candidate on an election's roster. ID is the key
// the election contract counts votes under (the backend username).
// RecordID is the backend database id and is never sent to the ledger.
type CandidateRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	RecordID    string `json:"recordId,omitempty"`
}

// Descriptor identifies an election and its candidate roster. A descriptor
// is immutable once fetched and is handed around by value.
type Descriptor struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	ContractAddress string         `json:"contractAddress"`
	CommunityKey    string         `json:"communityKey,omitempty"`
	StartTime       time.Time      `json:"startTime"`
	EndTime         time.Time      `json:"endTime"`
	Candidates      []CandidateRef `json:"candidates"`
}

// Validate reports a malformed descriptor. No ledger operation may be
// attempted with a descriptor that fails validation.
func (d *Descriptor) Validate() error {
	switch {
	case d.ID == "":
		return utils.NewErrorReason(utils.ErrMalformed, "Election record has no id", nil)
	case d.ContractAddress == "":
		return utils.NewErrorReason(utils.ErrMalformed, "Election has no contract address", nil)
	case !common.IsHexAddress(d.ContractAddress):
		return utils.NewErrorReason(utils.ErrMalformed,
			fmt.Sprintf("Election contract address %q is invalid", d.ContractAddress), nil)
	case len(d.Candidates) == 0:
		return utils.NewErrorReason(utils.ErrMalformed, "Election has no candidates", nil)
	case d.StartTime.IsZero() || d.EndTime.IsZero():
		return utils.NewErrorReason(utils.ErrMalformed, "Election has no voting window", nil)
	case !d.StartTime.Before(d.EndTime):
		return utils.NewErrorReason(utils.ErrMalformed, "Election ends before it starts", nil)
	}

	seen := make(map[string]struct{}, len(d.Candidates))
	for _, c := range d.Candidates {
		if strings.TrimSpace(c.ID) == "" {
			return utils.NewErrorReason(utils.ErrMalformed, "Election has a candidate without an id", nil)
		}
		if _, ok := seen[c.ID]; ok {
			return utils.NewErrorReason(utils.ErrMalformed,
				fmt.Sprintf("Candidate %q appears twice", c.ID), nil)
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}

// IsOpen reports whether now falls inside [StartTime, EndTime).
func (d *Descriptor) IsOpen(now time.Time) bool {
	return !now.Before(d.StartTime) && now.Before(d.EndTime)
}

// HasEnded reports whether the voting window is over.
func (d *Descriptor) HasEnded(now time.Time) bool {
	return !now.Before(d.EndTime)
}

// Candidate returns the roster entry with the given id.
func (d *Descriptor) Candidate(id string) (CandidateRef, bool) {
	for _, c := range d.Candidates {
		if c.ID == id {
			return c, true
		}
	}
	return CandidateRef{}, false
}

// Copy returns a deep copy of the descriptor.
func (d *Descriptor) Copy() *Descriptor {
	c := *d
	c.Candidates = append([]CandidateRef(nil), d.Candidates...)
	return &c
}

// VoterIdentity is the voter's ledger-level id and the opaque bearer
// credential used for backend calls only.
type VoterIdentity struct {
	VoterID    string
	Credential string
}

// String never includes the credential.
func (v VoterIdentity) String() string {
	return fmt.Sprintf("voter(%s)", v.VoterID)
}

// EligibilityStatus is the outcome of an eligibility check.
type EligibilityStatus int

const (
	Eligible EligibilityStatus = iota
	NotRegistered
	AlreadyVoted
	EligibilityError
)

func (s EligibilityStatus) String() string {
	switch s {
	case Eligible:
		return "eligible"
	case NotRegistered:
		return "not registered"
	case AlreadyVoted:
		return "already voted"
	case EligibilityError:
		return "error"
	default:
		return "unknown"
	}
}

// EligibilityResult is computed fresh for every voting attempt. It records
// the (voter, contract) pair it applies to.
type EligibilityResult struct {
	Status          EligibilityStatus
	Reason          string
	VoterID         string
	ContractAddress string
	CheckedAt       time.Time
}

// IsEligible reports whether the voter may submit a ballot.
func (r EligibilityResult) IsEligible() bool {
	return r.Status == Eligible
}

// AppliesTo reports whether the result was computed for the given pair.
func (r EligibilityResult) AppliesTo(voterID, contractAddress string) bool {
	return r.VoterID == voterID && SameAddress(r.ContractAddress, contractAddress)
}

// SubmissionStatus tracks a ballot submission through the ledger.
type SubmissionStatus int

const (
	Pending SubmissionStatus = iota
	Confirmed
	Failed
)

func (s SubmissionStatus) String() string {
	switch s {
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// BallotSubmission is a single vote transaction for a (voter, election)
// pair.
type BallotSubmission struct {
	ID                      int              `storm:"id,increment" json:"-"`
	Key                     string           `storm:"index" json:"-"`
	VoterID                 string           `storm:"index" json:"voterId"`
	ElectionContractAddress string           `json:"electionContractAddress"`
	CandidateID             string           `json:"candidateId"`
	TxHash                  string           `json:"txHash,omitempty"`
	Status                  SubmissionStatus `json:"status"`
	Reason                  string           `json:"reason,omitempty"`
	SubmittedAt             time.Time        `json:"submittedAt"`
	UpdatedAt               time.Time        `json:"updatedAt"`
}

// TallyRow is one candidate's share of an election's votes.
type TallyRow struct {
	CandidateID string  `json:"candidateId"`
	DisplayName string  `json:"displayName"`
	VoteCount   int64   `json:"voteCount"`
	Percentage  float64 `json:"percentage"`
}

// Result is the tally of one election.
type Result struct {
	ElectionID      string     `json:"electionId"`
	Name            string     `json:"name"`
	ContractAddress string     `json:"contractAddress"`
	TotalVotes      int64      `json:"totalVotes"`
	Rows            []TallyRow `json:"rows"`
}

// PairKey identifies a (voter, election contract) pair.
func PairKey(voterID, contractAddress string) string {
	return voterID + "@" + strings.ToLower(contractAddress)
}

// SameAddress compares two contract addresses ignoring hex case.
func SameAddress(a, b string) bool {
	return strings.EqualFold(a, b)
}
