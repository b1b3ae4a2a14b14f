package eligibility_test

import (
	"context"
	"time"

	"github.com/crypto-power/cryptovote/libvote/election"
	. "github.com/crypto-power/cryptovote/libvote/eligibility"
	"github.com/crypto-power/cryptovote/libvote/utils"
	"github.com/crypto-power/cryptovote/libvote/votetest"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Eligibility", func() {
	var (
		ctx     context.Context
		ledger  *votetest.Ledger
		checker *Checker
		desc    *election.Descriptor
	)

	BeforeEach(func() {
		ctx = context.Background()
		ledger = votetest.NewLedger()
		checker = NewChecker(ledger)
		desc = votetest.OpenElection("e1", votetest.ContractA, time.Now())
	})

	It("accepts a registered voter who has not voted", func() {
		ledger.Register(votetest.ContractA, "v1")

		result := checker.CheckEligibility(ctx, "v1", desc)
		Expect(result.Status).To(Equal(election.Eligible))
		Expect(result.IsEligible()).To(BeTrue())
		Expect(result.AppliesTo("v1", votetest.ContractA)).To(BeTrue())
		Expect(result.AppliesTo("v2", votetest.ContractA)).To(BeFalse())
		Expect(Err(result)).To(BeNil())
	})

	It("denies voters who already voted", func() {
		ledger.Register(votetest.ContractA, "v1")
		ledger.MarkVoted(votetest.ContractA, "v1")

		result := checker.CheckEligibility(ctx, "v1", desc)
		Expect(result.Status).To(Equal(election.AlreadyVoted))
		Expect(result.Reason).To(Equal("You have already voted"))
		Expect(utils.ErrorCode(Err(result))).To(Equal(utils.ErrAlreadyVoted))
	})

	It("reports unregistered before already voted", func() {
		ledger.MarkVoted(votetest.ContractA, "v1")

		result := checker.CheckEligibility(ctx, "v1", desc)
		Expect(result.Status).To(Equal(election.NotRegistered))
		Expect(result.Reason).To(Equal("You are not an eligible voter"))
		Expect(utils.ErrorCode(Err(result))).To(Equal(utils.ErrNotRegistered))
	})

	It("scopes registration to the election contract", func() {
		ledger.Register(votetest.ContractB, "v1")

		result := checker.CheckEligibility(ctx, "v1", desc)
		Expect(result.Status).To(Equal(election.NotRegistered))
	})

	It("returns an error result when the ledger cannot be read", func() {
		ledger.Register(votetest.ContractA, "v1")
		ledger.FailReads(utils.NewError(utils.ErrNetwork, nil))

		result := checker.CheckEligibility(ctx, "v1", desc)
		Expect(result.Status).To(Equal(election.EligibilityError))
		Expect(result.IsEligible()).To(BeFalse())

		err := Err(result)
		Expect(utils.ErrorCode(err)).To(Equal(utils.ErrEligibilityCheck))
		Expect(utils.IsRetryable(err)).To(BeFalse())
	})

	It("requires a voter id", func() {
		result := checker.CheckEligibility(ctx, "", desc)
		Expect(result.Status).To(Equal(election.EligibilityError))
		Expect(result.Reason).To(Equal("Voter ID not provided"))
	})

	It("reads the ledger on every check", func() {
		ledger.Register(votetest.ContractA, "v1")
		Expect(checker.CheckEligibility(ctx, "v1", desc).Status).To(Equal(election.Eligible))

		ledger.MarkVoted(votetest.ContractA, "v1")
		Expect(checker.CheckEligibility(ctx, "v1", desc).Status).To(Equal(election.AlreadyVoted))
	})
})
