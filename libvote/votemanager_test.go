package libvote

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"decred.org/dcrwallet/v2/errors"
	"github.com/crypto-power/cryptovote/libvote/election"
	"github.com/crypto-power/cryptovote/libvote/utils"
	"github.com/crypto-power/cryptovote/libvote/votedata"
	"github.com/crypto-power/cryptovote/libvote/votetest"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

const token = "token-1"

var _ = Describe("VoteManager", func() {
	var (
		ctx     context.Context
		rootDir string
		now     time.Time
		be      *votetest.Backend
		ledger  *votetest.Ledger
		vm      *VoteManager
	)

	open := func() *VoteManager {
		m, err := newVoteManager(&Config{RootDir: rootDir}, ledger, be)
		Expect(err).To(BeNil())
		return m
	}

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Now().UTC().Truncate(time.Second)

		var err error
		rootDir, err = os.MkdirTemp("", "libvote")
		Expect(err).To(BeNil())

		be = votetest.NewBackend()
		be.AddVoter(token, "v1")
		be.AddElection(votetest.OpenElection("e1", votetest.ContractA, now))
		be.AddElection(votetest.EndedElection("old", votetest.ContractB, now))

		ledger = votetest.NewLedger()
		ledger.Register(votetest.ContractA, "v1")
		ledger.Register(votetest.ContractB, "v1")
	})

	AfterEach(func() {
		if vm != nil {
			vm.Shutdown()
			vm = nil
		}
		os.RemoveAll(rootDir)
	})

	It("creates the data directory and database", func() {
		rootDir = filepath.Join(rootDir, "nested", "localnet")
		vm = open()
		Expect(filepath.Join(rootDir, votedata.DbName)).To(BeARegularFile())
	})

	It("runs a voting session end to end", func() {
		vm = open()
		voter, err := vm.ResolveVoter(ctx, token)
		Expect(err).To(BeNil())
		Expect(voter.VoterID).To(Equal("v1"))

		ctrl := vm.NewSession(voter)
		Expect(ctrl.SelectElection(ctx, "e1")).To(Succeed())
		Expect(ctrl.SelectCandidate("c2")).To(Succeed())
		sub, err := ctrl.Confirm(ctx)
		Expect(err).To(BeNil())
		Expect(sub.Status).To(Equal(election.Confirmed))
		Expect(ledger.VotesOf(votetest.ContractA, "c2")).To(Equal(int64(1)))

		subs, err := vm.Submissions("v1")
		Expect(err).To(BeNil())
		Expect(subs).To(HaveLen(1))
		Expect(subs[0].TxHash).To(Equal(sub.TxHash))

		desc, err := vm.Election(ctx, "e1", token)
		Expect(err).To(BeNil())
		result := vm.Eligibility(ctx, "v1", desc)
		Expect(result.Status).To(Equal(election.AlreadyVoted))
	})

	Describe("CommunityElections", func() {
		It("splits elections into ongoing and past ones", func() {
			vm = open()
			ongoing, past, err := vm.CommunityElections(ctx, "community", token)
			Expect(err).To(BeNil())
			Expect(ongoing).To(HaveLen(1))
			Expect(ongoing[0].ID).To(Equal("e1"))
			Expect(past).To(HaveLen(1))
			Expect(past[0].ID).To(Equal("old"))
		})

		It("falls back to the cache when the backend is unreachable", func() {
			vm = open()
			_, _, err := vm.CommunityElections(ctx, "community", token)
			Expect(err).To(BeNil())

			be.Fail(errors.E(errors.IO, "connection refused"))
			ongoing, past, err := vm.CommunityElections(ctx, "community", token)
			Expect(utils.ErrorCode(err)).To(Equal(utils.ErrNetwork))
			Expect(ongoing).To(HaveLen(1))
			Expect(past).To(HaveLen(1))
		})

		It("returns the network error when nothing is cached", func() {
			vm = open()
			be.Fail(errors.E(errors.IO, "connection refused"))
			ongoing, past, err := vm.CommunityElections(ctx, "community", token)
			Expect(utils.ErrorCode(err)).To(Equal(utils.ErrNetwork))
			Expect(ongoing).To(BeEmpty())
			Expect(past).To(BeEmpty())
		})

		It("does not hide other failures behind the cache", func() {
			vm = open()
			_, _, err := vm.CommunityElections(ctx, "community", token)
			Expect(err).To(BeNil())

			_, _, err = vm.CommunityElections(ctx, "community", "bad-token")
			Expect(utils.ErrorCode(err)).To(Equal(utils.ErrUnauthorized))
		})
	})

	Describe("Results", func() {
		It("tallies the requested elections", func() {
			ledger.SetVotes(votetest.ContractB, "c1", 3)
			ledger.SetVotes(votetest.ContractB, "c2", 7)
			vm = open()

			desc, err := vm.Election(ctx, "old", token)
			Expect(err).To(BeNil())
			results, err := vm.Results(ctx, []*election.Descriptor{desc})
			Expect(err).To(BeNil())
			Expect(results["old"].TotalVotes).To(Equal(int64(10)))
			Expect(results["old"].Rows[1].Percentage).To(Equal(70.0))
		})

		It("refuses to publish an open election", func() {
			vm = open()
			_, err := vm.PublishResults(ctx, "e1", token)
			Expect(utils.ErrorCode(err)).To(Equal(utils.ErrElectionOpen))
			Expect(be.Published("e1")).To(BeEmpty())
		})

		It("publishes the tally of an ended election", func() {
			ledger.SetVotes(votetest.ContractB, "c1", 1)
			ledger.SetVotes(votetest.ContractB, "c2", 3)
			vm = open()

			result, err := vm.PublishResults(ctx, "old", token)
			Expect(err).To(BeNil())
			Expect(result.TotalVotes).To(Equal(int64(4)))

			rows := be.Published("old")
			Expect(rows).To(HaveLen(2))
			Expect(rows[0].CandidateID).To(Equal("c1"))
			Expect(rows[0].Username).To(Equal("Alice"))
			Expect(rows[0].Percentage).To(Equal(25.0))
			Expect(rows[1].VoteCount).To(Equal(int64(3)))
		})
	})

	It("resumes vote transactions left pending by an earlier run", func() {
		txHash, err := ledger.Vote(ctx, votetest.ContractA, "v1", "c1")
		Expect(err).To(BeNil())

		db, err := votedata.Initialize(filepath.Join(rootDir, votedata.DbName))
		Expect(err).To(BeNil())
		Expect(db.SaveSubmission(&election.BallotSubmission{
			VoterID:                 "v1",
			ElectionContractAddress: votetest.ContractA,
			CandidateID:             "c1",
			TxHash:                  txHash,
			Status:                  election.Pending,
			SubmittedAt:             now,
			UpdatedAt:               now,
		})).To(Succeed())
		Expect(db.Close()).To(Succeed())

		vm = open()
		Eventually(func() election.SubmissionStatus {
			subs, err := vm.Submissions("v1")
			if err != nil || len(subs) == 0 {
				return election.Pending
			}
			return subs[0].Status
		}).Should(Equal(election.Confirmed))
		Expect(ledger.VotesOf(votetest.ContractA, "c1")).To(Equal(int64(1)))
	})

	It("resumes a vote interrupted by shutdown on the next start", func() {
		release := ledger.HoldFinality()
		defer release()
		vm = open()

		voter := election.VoterIdentity{VoterID: "v1", Credential: token}
		ctrl := vm.NewSession(voter)
		Expect(ctrl.SelectElection(ctx, "e1")).To(Succeed())
		Expect(ctrl.SelectCandidate("c1")).To(Succeed())

		done := make(chan error, 1)
		go func() {
			defer GinkgoRecover()
			_, err := ctrl.Confirm(ctx)
			done <- err
		}()
		Eventually(ledger.VoteCalls).Should(Equal(1))

		vm.Shutdown()
		vm = nil
		var err error
		Eventually(done).Should(Receive(&err))
		Expect(utils.ErrorCode(err)).To(Equal(utils.ErrLedgerTimeout))

		release()
		vm = open()
		Eventually(func() election.SubmissionStatus {
			subs, err := vm.Submissions("v1")
			if err != nil || len(subs) == 0 {
				return election.Failed
			}
			return subs[0].Status
		}).Should(Equal(election.Confirmed))
		Expect(ledger.VotesOf(votetest.ContractA, "c1")).To(Equal(int64(1)))
		Expect(ledger.VoteCalls()).To(Equal(1))
	})
})
