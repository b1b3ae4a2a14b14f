package votedata

import (
	"fmt"
	"sort"

	"github.com/asdine/storm"
	"github.com/asdine/storm/q"
	"github.com/crypto-power/cryptovote/libvote/election"
)

// SaveSubmission inserts a new journal entry or overwrites an existing one.
// New entries are assigned an id.
func (d *DB) SaveSubmission(sub *election.BallotSubmission) error {
	if sub.Key == "" {
		sub.Key = election.PairKey(sub.VoterID, sub.ElectionContractAddress)
	}
	if err := d.db.Save(sub); err != nil {
		return fmt.Errorf("error saving ballot submission: %s", err.Error())
	}
	return nil
}

// Submissions returns the journal entries of a voter, newest first.
func (d *DB) Submissions(voterID string) ([]election.BallotSubmission, error) {
	var subs []election.BallotSubmission
	err := d.db.Select(q.Eq("VoterID", voterID)).OrderBy("SubmittedAt").Reverse().Find(&subs)
	if err != nil && err != storm.ErrNotFound {
		return nil, fmt.Errorf("error reading ballot submissions: %s", err.Error())
	}
	return subs, nil
}

// LatestSubmission returns the most recent journal entry for a (voter,
// contract) pair. storm.ErrNotFound is returned when there is none.
func (d *DB) LatestSubmission(voterID, contractAddress string) (*election.BallotSubmission, error) {
	var sub election.BallotSubmission
	err := d.db.Select(q.Eq("Key", election.PairKey(voterID, contractAddress))).
		OrderBy("ID").Reverse().First(&sub)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// PendingSubmissions returns every journal entry still awaiting finality.
func (d *DB) PendingSubmissions() ([]election.BallotSubmission, error) {
	var subs []election.BallotSubmission
	err := d.db.Select(q.Eq("Status", election.Pending)).Find(&subs)
	if err != nil && err != storm.ErrNotFound {
		return nil, fmt.Errorf("error reading pending submissions: %s", err.Error())
	}
	return subs, nil
}

func sortByEndTime(descriptors []*election.Descriptor) {
	sort.SliceStable(descriptors, func(i, j int) bool {
		return descriptors[i].EndTime.Before(descriptors[j].EndTime)
	})
}
