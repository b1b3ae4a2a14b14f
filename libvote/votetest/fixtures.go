package votetest

import (
	"time"

	"github.com/crypto-power/cryptovote/libvote/election"
)

const (
	ContractA = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	ContractB = "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"
)

// Candidates returns the roster c1 (Alice), c2 (Bob).
func Candidates() []election.CandidateRef {
	return []election.CandidateRef{
		{ID: "c1", DisplayName: "Alice", RecordID: "r1"},
		{ID: "c2", DisplayName: "Bob", RecordID: "r2"},
	}
}

// Election returns a descriptor whose window runs from start to end.
// Times are truncated to the second, as the backend stores them.
func Election(id, contract string, start, end time.Time, candidates ...election.CandidateRef) *election.Descriptor {
	if len(candidates) == 0 {
		candidates = Candidates()
	}
	return &election.Descriptor{
		ID:              id,
		Name:            "Election " + id,
		ContractAddress: contract,
		CommunityKey:    "community",
		StartTime:       start.UTC().Truncate(time.Second),
		EndTime:         end.UTC().Truncate(time.Second),
		Candidates:      candidates,
	}
}

// OpenElection returns a descriptor that is open at now.
func OpenElection(id, contract string, now time.Time, candidates ...election.CandidateRef) *election.Descriptor {
	return Election(id, contract, now.Add(-time.Hour), now.Add(24*time.Hour), candidates...)
}

// EndedElection returns a descriptor that ended before now.
func EndedElection(id, contract string, now time.Time, candidates ...election.CandidateRef) *election.Descriptor {
	return Election(id, contract, now.Add(-48*time.Hour), now.Add(-time.Hour), candidates...)
}
