package utils_test

import (
	"time"

	. "github.com/crypto-power/cryptovote/libvote/utils"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	Describe("ParseBackendTime", func() {
		want := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

		It("accepts the layouts the backend returns", func() {
			for _, value := range []string{
				"2024-03-01T09:30:00Z",
				"2024-03-01T09:30:00.000Z",
				"2024-03-01T11:30:00+02:00",
				"2024-03-01T09:30:00",
				"2024-03-01T09:30",
				"2024-03-01 09:30:00",
			} {
				got, err := ParseBackendTime(value)
				Expect(err).To(BeNil(), value)
				Expect(got.Equal(want)).To(BeTrue(), value)
				Expect(got.Location()).To(Equal(time.UTC))
			}
		})

		It("reads a bare date as midnight UTC", func() {
			got, err := ParseBackendTime(" 2024-03-01 ")
			Expect(err).To(BeNil())
			Expect(got).To(Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
		})

		It("rejects empty and unknown values", func() {
			_, err := ParseBackendTime("")
			Expect(err).ToNot(BeNil())
			_, err = ParseBackendTime("next tuesday")
			Expect(err).ToNot(BeNil())
		})
	})

	Describe("FormatDateOrTime", func() {
		now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

		It("shows the date when over a day away", func() {
			Expect(FormatDateOrTime(now.Add(-72*time.Hour), now)).To(Equal("2024-03-07"))
			Expect(FormatDateOrTime(now.Add(72*time.Hour), now)).To(Equal("2024-03-13"))
		})

		It("describes recent times in words", func() {
			Expect(FormatDateOrTime(now.Add(-2*time.Hour), now)).ToNot(ContainSubstring("2024"))
		})
	})

	Describe("NetworkType", func() {
		It("maps identifiers and aliases", func() {
			Expect(ToNetworkType("MAINNET")).To(Equal(Mainnet))
			Expect(ToNetworkType("dev")).To(Equal(Localnet))
			Expect(ToNetworkType("sepolia")).To(Equal(Sepolia))
			Expect(ToNetworkType("ropsten")).To(Equal(Unknown))
		})

		It("knows the chain ids", func() {
			Expect(Mainnet.ChainID().Int64()).To(Equal(int64(1)))
			Expect(Sepolia.ChainID().Int64()).To(Equal(int64(11155111)))
			Expect(Localnet.ChainID().Int64()).To(Equal(int64(1337)))
			Expect(Unknown.ChainID()).To(BeNil())
		})

		It("returns a copy of the chain id", func() {
			id := Mainnet.ChainID()
			id.SetInt64(99)
			Expect(Mainnet.ChainID().Int64()).To(Equal(int64(1)))
		})

		It("displays in title case", func() {
			Expect(Sepolia.Display()).To(Equal("Sepolia"))
		})
	})
})
