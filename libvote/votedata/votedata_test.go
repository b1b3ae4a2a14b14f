package votedata_test

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/asdine/storm"
	"github.com/crypto-power/cryptovote/libvote/election"
	. "github.com/crypto-power/cryptovote/libvote/votedata"
	"github.com/crypto-power/cryptovote/libvote/votetest"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	bolt "go.etcd.io/bbolt"
)

var _ = Describe("Votedata", func() {
	var (
		dir    string
		dbPath string
		db     *DB
		now    time.Time
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "votedata")
		Expect(err).To(BeNil())
		dbPath = filepath.Join(dir, DbName)
		db, err = Initialize(dbPath)
		Expect(err).To(BeNil())
		now = time.Now().UTC().Truncate(time.Second)
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
		os.RemoveAll(dir)
	})

	Describe("Election cache", func() {
		It("returns what was saved", func() {
			desc := votetest.OpenElection("e1", votetest.ContractA, now)
			Expect(db.SaveElection(desc, now)).To(Succeed())

			cached, err := db.Election("e1")
			Expect(err).To(BeNil())
			Expect(cached).To(Equal(desc))
		})

		It("replaces earlier copies", func() {
			desc := votetest.OpenElection("e1", votetest.ContractA, now)
			Expect(db.SaveElection(desc, now)).To(Succeed())
			desc.Name = "Renamed"
			Expect(db.SaveElection(desc, now)).To(Succeed())

			cached, err := db.Election("e1")
			Expect(err).To(BeNil())
			Expect(cached.Name).To(Equal("Renamed"))
		})

		It("reports unknown elections", func() {
			_, err := db.Election("missing")
			Expect(err).To(Equal(storm.ErrNotFound))
		})

		It("lists a community's elections by end time", func() {
			late := votetest.Election("late", votetest.ContractA, now, now.Add(72*time.Hour))
			early := votetest.Election("early", votetest.ContractB, now, now.Add(time.Hour))
			other := votetest.Election("other", votetest.ContractB, now, now.Add(2*time.Hour))
			other.CommunityKey = "elsewhere"
			for _, d := range []*election.Descriptor{late, early, other} {
				Expect(db.SaveElection(d, now)).To(Succeed())
			}

			descs, err := db.CommunityElections("community")
			Expect(err).To(BeNil())
			Expect(descs).To(HaveLen(2))
			Expect(descs[0].ID).To(Equal("early"))
			Expect(descs[1].ID).To(Equal("late"))

			descs, err = db.CommunityElections("nobody")
			Expect(err).To(BeNil())
			Expect(descs).To(BeEmpty())
		})

		It("remembers when a community was synced", func() {
			synced, err := db.LastSynced("community")
			Expect(err).To(BeNil())
			Expect(synced.IsZero()).To(BeTrue())

			Expect(db.SetLastSynced("community", now)).To(Succeed())
			synced, err = db.LastSynced("community")
			Expect(err).To(BeNil())
			Expect(synced.Equal(now)).To(BeTrue())
		})
	})

	Describe("Submission journal", func() {
		newSubmission := func(voterID, contract string, status election.SubmissionStatus, at time.Time) *election.BallotSubmission {
			return &election.BallotSubmission{
				VoterID:                 voterID,
				ElectionContractAddress: contract,
				CandidateID:             "c1",
				Status:                  status,
				SubmittedAt:             at,
				UpdatedAt:               at,
			}
		}

		It("assigns ids and pair keys", func() {
			sub := newSubmission("v1", votetest.ContractA, election.Pending, now)
			Expect(db.SaveSubmission(sub)).To(Succeed())
			Expect(sub.ID).ToNot(BeZero())
			Expect(sub.Key).To(Equal(election.PairKey("v1", votetest.ContractA)))
		})

		It("updates entries in place", func() {
			sub := newSubmission("v1", votetest.ContractA, election.Pending, now)
			Expect(db.SaveSubmission(sub)).To(Succeed())
			id := sub.ID

			sub.TxHash = "0xabc"
			sub.Status = election.Confirmed
			Expect(db.SaveSubmission(sub)).To(Succeed())
			Expect(sub.ID).To(Equal(id))

			subs, err := db.Submissions("v1")
			Expect(err).To(BeNil())
			Expect(subs).To(HaveLen(1))
			Expect(subs[0].Status).To(Equal(election.Confirmed))
			Expect(subs[0].TxHash).To(Equal("0xabc"))
		})

		It("lists a voter's entries newest first", func() {
			Expect(db.SaveSubmission(newSubmission("v1", votetest.ContractA, election.Failed, now.Add(-time.Hour)))).To(Succeed())
			Expect(db.SaveSubmission(newSubmission("v1", votetest.ContractB, election.Confirmed, now))).To(Succeed())
			Expect(db.SaveSubmission(newSubmission("v2", votetest.ContractA, election.Confirmed, now))).To(Succeed())

			subs, err := db.Submissions("v1")
			Expect(err).To(BeNil())
			Expect(subs).To(HaveLen(2))
			Expect(subs[0].ElectionContractAddress).To(Equal(votetest.ContractB))
			Expect(subs[1].ElectionContractAddress).To(Equal(votetest.ContractA))

			subs, err = db.Submissions("nobody")
			Expect(err).To(BeNil())
			Expect(subs).To(BeEmpty())
		})

		It("finds the latest entry of a pair regardless of address case", func() {
			Expect(db.SaveSubmission(newSubmission("v1", votetest.ContractA, election.Failed, now))).To(Succeed())
			Expect(db.SaveSubmission(newSubmission("v1", votetest.ContractA, election.Confirmed, now))).To(Succeed())

			sub, err := db.LatestSubmission("v1", strings.ToLower(votetest.ContractA))
			Expect(err).To(BeNil())
			Expect(sub.Status).To(Equal(election.Confirmed))

			_, err = db.LatestSubmission("v1", votetest.ContractB)
			Expect(err).To(Equal(storm.ErrNotFound))
		})

		It("lists pending entries", func() {
			Expect(db.SaveSubmission(newSubmission("v1", votetest.ContractA, election.Pending, now))).To(Succeed())
			Expect(db.SaveSubmission(newSubmission("v2", votetest.ContractA, election.Confirmed, now))).To(Succeed())

			subs, err := db.PendingSubmissions()
			Expect(err).To(BeNil())
			Expect(subs).To(HaveLen(1))
			Expect(subs[0].VoterID).To(Equal("v1"))
		})
	})

	Describe("Database version", func() {
		It("survives a reopen", func() {
			desc := votetest.OpenElection("e1", votetest.ContractA, now)
			Expect(db.SaveElection(desc, now)).To(Succeed())
			Expect(db.Close()).To(Succeed())

			var err error
			db, err = Initialize(dbPath)
			Expect(err).To(BeNil())
			_, err = db.Election("e1")
			Expect(err).To(BeNil())
		})

		It("drops cached data written by another version", func() {
			desc := votetest.OpenElection("e1", votetest.ContractA, now)
			Expect(db.SaveElection(desc, now)).To(Succeed())
			Expect(db.Close()).To(Succeed())
			db = nil

			raw, err := storm.Open(dbPath, storm.BoltOptions(0600, &bolt.Options{Timeout: time.Second}))
			Expect(err).To(BeNil())
			Expect(raw.Set("VoteDataConfig", KeyDbVersion, DbVersion+1)).To(Succeed())
			Expect(raw.Close()).To(Succeed())

			db, err = Initialize(dbPath)
			Expect(err).To(BeNil())
			_, err = db.Election("e1")
			Expect(err).To(Equal(storm.ErrNotFound))
		})
	})
})
