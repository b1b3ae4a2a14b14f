package ballot

import (
	"github.com/crypto-power/cryptovote/libvote/election"
	"github.com/crypto-power/cryptovote/libvote/utils"
)

// ResumePending picks up submissions the journal still lists as Pending
// from an earlier run. Entries that were never broadcast are marked Failed;
// broadcast entries get a background finality wait, during which their pair
// counts as in flight. It returns the number of waits started.
func (s *Submitter) ResumePending() (int, error) {
	if s.journal == nil {
		return 0, nil
	}
	pending, err := s.journal.PendingSubmissions()
	if err != nil {
		return 0, utils.TranslateError(err)
	}

	var resumed int
	for i := range pending {
		sub := pending[i]
		if sub.TxHash == "" {
			s.fail(&sub, utils.NewErrorReason(utils.ErrLedgerRejected,
				"The vote transaction was never broadcast", nil))
			continue
		}

		key := election.PairKey(sub.VoterID, sub.ElectionContractAddress)
		if !s.reserve(key) {
			continue
		}
		resumed++
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.release(key)
			s.finish(&sub)
		}()
	}

	if resumed > 0 {
		log.Infof("Resumed finality tracking of %d vote transactions", resumed)
	}
	return resumed, nil
}

func (s *Submitter) finish(sub *election.BallotSubmission) {
	if err := s.ledger.WaitFinality(s.ctx, sub.TxHash); err != nil {
		if s.ctx.Err() != nil {
			s.interrupted(sub, err)
			return
		}
		s.fail(sub, err)
		return
	}
	sub.Status = election.Confirmed
	sub.Reason = ""
	sub.UpdatedAt = s.now()
	s.record(sub)
	log.Infof("Vote of %s on %s confirmed in %s", sub.VoterID, sub.ElectionContractAddress, sub.TxHash)
}
