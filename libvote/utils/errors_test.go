package utils_test

import (
	"context"
	"fmt"

	"decred.org/dcrwallet/v2/errors"
	"github.com/asdine/storm"
	. "github.com/crypto-power/cryptovote/libvote/utils"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Errors", func() {
	Describe("NewError", func() {
		It("uses the default reason of the code", func() {
			err := NewError(ErrAlreadyVoted, nil)
			Expect(err.Code).To(Equal(ErrAlreadyVoted))
			Expect(err.Error()).To(Equal("You have already voted"))
		})

		It("falls back to the code when no reason is known", func() {
			err := NewErrorReason("custom_code", "", nil)
			Expect(err.Reason).To(Equal("custom_code"))
		})

		It("keeps the wrapped error in the chain", func() {
			cause := fmt.Errorf("boom")
			err := NewError(ErrNetwork, cause)
			Expect(err.Unwrap()).To(Equal(cause))
			Expect(err.Error()).To(ContainSubstring("boom"))
		})
	})

	Describe("ErrorCode and ErrorReason", func() {
		It("finds the code through wrapping", func() {
			err := fmt.Errorf("outer: %w", NewError(ErrLedgerTimeout, nil))
			Expect(ErrorCode(err)).To(Equal(ErrLedgerTimeout))
			Expect(IsCode(err, ErrLedgerTimeout)).To(BeTrue())
			Expect(ErrorReason(err)).To(Equal("Timed out waiting for the vote to be confirmed"))
		})

		It("reports uncoded errors as they are", func() {
			err := fmt.Errorf("plain")
			Expect(ErrorCode(err)).To(BeEmpty())
			Expect(ErrorReason(err)).To(Equal("plain"))
			Expect(IsCode(nil, ErrNetwork)).To(BeFalse())
			Expect(ErrorReason(nil)).To(BeEmpty())
		})
	})

	Describe("IsRetryable", func() {
		It("accepts transient ledger and network failures", func() {
			for _, code := range []string{ErrInsufficientFunds, ErrLedgerRejected, ErrLedgerTimeout, ErrNetwork} {
				Expect(IsRetryable(NewError(code, nil))).To(BeTrue(), code)
			}
		})

		It("refuses denials and eligibility failures", func() {
			for _, code := range []string{ErrNotRegistered, ErrAlreadyVoted, ErrEligibilityCheck,
				ErrInvalidCandidate, ErrUnauthorized, ErrNotFound, ErrMalformed} {
				Expect(IsRetryable(NewError(code, nil))).To(BeFalse(), code)
			}
			Expect(IsRetryable(fmt.Errorf("plain"))).To(BeFalse())
		})
	})

	Describe("TranslateError", func() {
		It("maps wallet error kinds", func() {
			const op errors.Op = "test"
			Expect(ErrorCode(TranslateError(errors.E(op, errors.NotExist)))).To(Equal(ErrNotFound))
			Expect(ErrorCode(TranslateError(errors.E(op, errors.Permission)))).To(Equal(ErrUnauthorized))
			Expect(ErrorCode(TranslateError(errors.E(op, errors.Encoding)))).To(Equal(ErrMalformed))
			Expect(ErrorCode(TranslateError(errors.E(op, errors.IO)))).To(Equal(ErrNetwork))
		})

		It("maps storage and context errors", func() {
			Expect(ErrorCode(TranslateError(storm.ErrNotFound))).To(Equal(ErrNotFound))
			Expect(ErrorCode(TranslateError(context.DeadlineExceeded))).To(Equal(ErrNetwork))
			Expect(ErrorCode(TranslateError(fmt.Errorf("wrapped: %w", context.Canceled)))).To(Equal(ErrNetwork))
		})

		It("leaves coded and unknown errors unchanged", func() {
			coded := NewError(ErrAlreadyVoted, nil)
			Expect(TranslateError(coded)).To(BeIdenticalTo(coded))

			plain := fmt.Errorf("plain")
			Expect(TranslateError(plain)).To(BeIdenticalTo(plain))
			Expect(TranslateError(nil)).To(BeNil())
		})
	})
})
