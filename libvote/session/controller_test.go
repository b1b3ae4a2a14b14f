package session_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crypto-power/cryptovote/libvote/ballot"
	"github.com/crypto-power/cryptovote/libvote/directory"
	"github.com/crypto-power/cryptovote/libvote/election"
	"github.com/crypto-power/cryptovote/libvote/eligibility"
	. "github.com/crypto-power/cryptovote/libvote/session"
	"github.com/crypto-power/cryptovote/libvote/utils"
	"github.com/crypto-power/cryptovote/libvote/votetest"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

const token = "token-1"

// countingChecker counts eligibility checks.
type countingChecker struct {
	*eligibility.Checker
	calls int32
}

func (c *countingChecker) CheckEligibility(ctx context.Context, voterID string, desc *election.Descriptor) election.EligibilityResult {
	atomic.AddInt32(&c.calls, 1)
	return c.Checker.CheckEligibility(ctx, voterID, desc)
}

func (c *countingChecker) Calls() int32 {
	return atomic.LoadInt32(&c.calls)
}

// recorder keeps every notification it receives.
type recorder struct {
	mu        sync.Mutex
	states    []State
	confirmed []election.BallotSubmission
}

func (r *recorder) OnSessionStateChanged(snapshot Snapshot) {
	r.mu.Lock()
	r.states = append(r.states, snapshot.State)
	r.mu.Unlock()
}

func (r *recorder) OnBallotConfirmed(submission election.BallotSubmission) {
	r.mu.Lock()
	r.confirmed = append(r.confirmed, submission)
	r.mu.Unlock()
}

func (r *recorder) States() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

type confirmResult struct {
	sub *election.BallotSubmission
	err error
}

var _ = Describe("Controller", func() {
	var (
		ctx     context.Context
		cancel  context.CancelFunc
		now     time.Time
		be      *votetest.Backend
		ledger  *votetest.Ledger
		checker *countingChecker
		sub     *ballot.Submitter
		ctrl    *Controller
		voter   election.VoterIdentity
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		now = time.Now().UTC().Truncate(time.Second)

		be = votetest.NewBackend()
		be.AddVoter(token, "v1")
		be.AddElection(votetest.OpenElection("e1", votetest.ContractA, now))
		be.AddElection(votetest.EndedElection("old", votetest.ContractB, now))

		ledger = votetest.NewLedger()
		ledger.Register(votetest.ContractA, "v1")
		ledger.Register(votetest.ContractB, "v1")

		checker = &countingChecker{Checker: eligibility.NewChecker(ledger)}
		sub = ballot.NewSubmitter(ctx, ledger, nil, nil)
		voter = election.VoterIdentity{VoterID: "v1", Credential: token}
		ctrl = NewController(voter, directory.New(be, nil), checker, sub)
	})

	AfterEach(func() {
		cancel()
		sub.Wait()
	})

	confirmAsync := func() chan confirmResult {
		done := make(chan confirmResult, 1)
		go func() {
			defer GinkgoRecover()
			s, err := ctrl.Confirm(ctx)
			done <- confirmResult{s, err}
		}()
		return done
	}

	Describe("SelectElection", func() {
		It("loads an open election for an eligible voter", func() {
			Expect(ctrl.SelectElection(ctx, "e1")).To(Succeed())
			snap := ctrl.Snapshot()
			Expect(snap.State).To(Equal(Ready))
			Expect(snap.ElectionID).To(Equal("e1"))
			Expect(snap.Election.Candidates).To(HaveLen(2))
			Expect(snap.Eligibility.Status).To(Equal(election.Eligible))
			Expect(snap.CanConfirm).To(BeTrue())
		})

		It("disables confirm for a voter who already voted", func() {
			ledger.MarkVoted(votetest.ContractA, "v1")

			Expect(ctrl.SelectElection(ctx, "e1")).To(Succeed())
			snap := ctrl.Snapshot()
			Expect(snap.State).To(Equal(Ready))
			Expect(snap.CanConfirm).To(BeFalse())
			Expect(snap.ErrorCode).To(Equal(utils.ErrAlreadyVoted))
			Expect(snap.Reason).To(Equal("You have already voted"))

			err := ctrl.SelectCandidate("c1")
			Expect(utils.ErrorCode(err)).To(Equal(utils.ErrAlreadyVoted))
			_, err = ctrl.Confirm(ctx)
			Expect(utils.ErrorCode(err)).To(Equal(utils.ErrInvalidState))
			Expect(ledger.VoteCalls()).To(BeZero())
		})

		It("disables confirm outside the voting window", func() {
			Expect(ctrl.SelectElection(ctx, "old")).To(Succeed())
			snap := ctrl.Snapshot()
			Expect(snap.CanConfirm).To(BeFalse())
			Expect(snap.ErrorCode).To(Equal(utils.ErrElectionClosed))
		})

		It("fails on unknown elections", func() {
			err := ctrl.SelectElection(ctx, "missing")
			Expect(utils.ErrorCode(err)).To(Equal(utils.ErrNotFound))
			snap := ctrl.Snapshot()
			Expect(snap.State).To(Equal(Failed))
			Expect(snap.Retryable).To(BeFalse())
		})

		It("fails without retry when eligibility cannot be checked", func() {
			ledger.FailReads(utils.NewError(utils.ErrNetwork, nil))

			err := ctrl.SelectElection(ctx, "e1")
			Expect(utils.ErrorCode(err)).To(Equal(utils.ErrEligibilityCheck))
			snap := ctrl.Snapshot()
			Expect(snap.State).To(Equal(Failed))
			Expect(snap.Retryable).To(BeFalse())
			Expect(ctrl.Retry(ctx)).ToNot(Succeed())
		})

		It("allows retrying network failures", func() {
			be.Fail(utils.NewError(utils.ErrNetwork, nil))
			Expect(ctrl.SelectElection(ctx, "e1")).ToNot(Succeed())
			Expect(ctrl.Snapshot().Retryable).To(BeTrue())

			be.Fail(nil)
			Expect(ctrl.Retry(ctx)).To(Succeed())
			Expect(ctrl.Snapshot().State).To(Equal(Ready))
		})
	})

	Describe("Voting", func() {
		BeforeEach(func() {
			Expect(ctrl.SelectElection(ctx, "e1")).To(Succeed())
		})

		It("casts exactly one vote for the selected candidate", func() {
			Expect(ctrl.SelectCandidate("c1")).To(Succeed())
			Expect(ctrl.Snapshot().State).To(Equal(Confirming))

			s, err := ctrl.Confirm(ctx)
			Expect(err).To(BeNil())
			Expect(s.Status).To(Equal(election.Confirmed))
			Expect(ledger.VotesOf(votetest.ContractA, "c1")).To(Equal(int64(1)))

			snap := ctrl.Snapshot()
			Expect(snap.State).To(Equal(Succeeded))
			Expect(snap.Submission.TxHash).To(Equal(s.TxHash))
		})

		It("refuses unknown candidates", func() {
			err := ctrl.SelectCandidate("c9")
			Expect(utils.ErrorCode(err)).To(Equal(utils.ErrInvalidCandidate))
			Expect(ctrl.Snapshot().State).To(Equal(Ready))
		})

		It("lets the voter change their pick or cancel", func() {
			Expect(ctrl.SelectCandidate("c1")).To(Succeed())
			Expect(ctrl.SelectCandidate("c2")).To(Succeed())
			Expect(ctrl.Snapshot().SelectedCandidate).To(Equal("c2"))

			Expect(ctrl.CancelSelection()).To(Succeed())
			snap := ctrl.Snapshot()
			Expect(snap.State).To(Equal(Ready))
			Expect(snap.SelectedCandidate).To(BeEmpty())
			Expect(ctrl.CancelSelection()).ToNot(Succeed())
		})

		It("requires a selection before confirming", func() {
			_, err := ctrl.Confirm(ctx)
			Expect(utils.ErrorCode(err)).To(Equal(utils.ErrInvalidState))
		})

		It("submits once when confirm is pressed twice", func() {
			release := ledger.HoldFinality()
			defer release()
			Expect(ctrl.SelectCandidate("c1")).To(Succeed())

			first := confirmAsync()
			Eventually(ledger.VoteCalls).Should(Equal(1))
			Expect(ctrl.Snapshot().State).To(Equal(Submitting))

			_, err := ctrl.Confirm(ctx)
			Expect(utils.ErrorCode(err)).To(Equal(utils.ErrSubmissionPending))
			Expect(ctrl.SelectCandidate("c2")).ToNot(Succeed())

			release()
			var res confirmResult
			Eventually(first).Should(Receive(&res))
			Expect(res.err).To(BeNil())
			Expect(ledger.VoteCalls()).To(Equal(1))
		})

		It("submits once when two confirms race", func() {
			release := ledger.HoldFinality()
			defer release()
			Expect(ctrl.SelectCandidate("c1")).To(Succeed())

			results := make(chan confirmResult, 2)
			for i := 0; i < 2; i++ {
				go func() {
					defer GinkgoRecover()
					s, err := ctrl.Confirm(ctx)
					results <- confirmResult{s, err}
				}()
			}

			var first, second confirmResult
			Eventually(results).Should(Receive(&first))
			Expect(utils.ErrorCode(first.err)).To(Equal(utils.ErrSubmissionPending))
			Eventually(ledger.VoteCalls).Should(Equal(1))

			release()
			Eventually(results).Should(Receive(&second))
			Expect(second.err).To(BeNil())
			Expect(ledger.VoteCalls()).To(Equal(1))
			Expect(ledger.VotesOf(votetest.ContractA, "c1")).To(Equal(int64(1)))
		})

		It("fails instead of submitting when eligibility changed", func() {
			Expect(ctrl.SelectCandidate("c1")).To(Succeed())
			ledger.MarkVoted(votetest.ContractA, "v1")

			_, err := ctrl.Confirm(ctx)
			Expect(utils.ErrorCode(err)).To(Equal(utils.ErrAlreadyVoted))
			snap := ctrl.Snapshot()
			Expect(snap.State).To(Equal(Failed))
			Expect(snap.Retryable).To(BeFalse())
			Expect(ledger.VoteCalls()).To(BeZero())
		})

		It("fails instead of submitting once the election closed", func() {
			Expect(ctrl.SelectCandidate("c1")).To(Succeed())
			ctrl.SetClock(func() time.Time { return now.Add(48 * time.Hour) })

			_, err := ctrl.Confirm(ctx)
			Expect(utils.ErrorCode(err)).To(Equal(utils.ErrElectionClosed))
			Expect(ledger.VoteCalls()).To(BeZero())
		})

		It("checks eligibility again before retrying a reverted vote", func() {
			ledger.RevertVotes(true)
			Expect(ctrl.SelectCandidate("c1")).To(Succeed())

			_, err := ctrl.Confirm(ctx)
			Expect(utils.ErrorCode(err)).To(Equal(utils.ErrLedgerRejected))
			snap := ctrl.Snapshot()
			Expect(snap.State).To(Equal(Failed))
			Expect(snap.ErrorCode).To(Equal(utils.ErrLedgerRejected))
			Expect(snap.Retryable).To(BeTrue())
			Expect(snap.Submission.Status).To(Equal(election.Failed))

			_, err = ctrl.Confirm(ctx)
			Expect(utils.ErrorCode(err)).To(Equal(utils.ErrInvalidState))

			checks := checker.Calls()
			ledger.RevertVotes(false)
			Expect(ctrl.Retry(ctx)).To(Succeed())
			Expect(checker.Calls()).To(Equal(checks + 1))
			Expect(ctrl.Snapshot().State).To(Equal(Ready))

			Expect(ctrl.SelectCandidate("c1")).To(Succeed())
			_, err = ctrl.Confirm(ctx)
			Expect(err).To(BeNil())
			Expect(ledger.VoteCalls()).To(Equal(2))
			Expect(ledger.VotesOf(votetest.ContractA, "c1")).To(Equal(int64(1)))
		})

		It("drops the result of a submission after Leave", func() {
			release := ledger.HoldFinality()
			Expect(ctrl.SelectCandidate("c1")).To(Succeed())

			done := confirmAsync()
			Eventually(ledger.VoteCalls).Should(Equal(1))
			ctrl.Leave()
			Expect(ctrl.Snapshot().State).To(Equal(Idle))

			release()
			var res confirmResult
			Eventually(done).Should(Receive(&res))
			Expect(res.err).To(BeNil())
			Expect(ctrl.Snapshot().State).To(Equal(Idle))
			Expect(ctrl.Snapshot().Submission).To(BeNil())
		})
	})

	Describe("Notifications", func() {
		It("publishes every transition and the confirmed ballot", func() {
			rec := &recorder{}
			Expect(ctrl.AddNotificationListener(rec, "test")).To(Succeed())
			Expect(utils.ErrorCode(ctrl.AddNotificationListener(rec, "test"))).To(Equal(utils.ErrListenerExist))

			Expect(ctrl.SelectElection(ctx, "e1")).To(Succeed())
			Expect(ctrl.SelectCandidate("c2")).To(Succeed())
			_, err := ctrl.Confirm(ctx)
			Expect(err).To(BeNil())

			Expect(rec.States()).To(Equal([]State{Idle, Loading, Ready, Confirming, Submitting, Succeeded}))
			rec.mu.Lock()
			Expect(rec.confirmed).To(HaveLen(1))
			Expect(rec.confirmed[0].CandidateID).To(Equal("c2"))
			rec.mu.Unlock()

			ctrl.RemoveNotificationListener("test")
			ctrl.Leave()
			Expect(rec.States()).To(HaveLen(6))
		})

		It("hands out copies", func() {
			Expect(ctrl.SelectElection(ctx, "e1")).To(Succeed())
			snap := ctrl.Snapshot()
			snap.Election.Candidates[0].ID = "changed"
			Expect(ctrl.SelectCandidate("c1")).To(Succeed())
		})
	})
})
