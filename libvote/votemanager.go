// Package libvote wires the voting core together: election directory,
// eligibility checker, ballot submitter, tally aggregator and voting
// sessions, over a shared local database and ledger connection.
package libvote

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/crypto-power/cryptovote/libvote/ballot"
	"github.com/crypto-power/cryptovote/libvote/directory"
	"github.com/crypto-power/cryptovote/libvote/election"
	"github.com/crypto-power/cryptovote/libvote/eligibility"
	"github.com/crypto-power/cryptovote/libvote/internal/backend"
	"github.com/crypto-power/cryptovote/libvote/ledger"
	"github.com/crypto-power/cryptovote/libvote/session"
	"github.com/crypto-power/cryptovote/libvote/tally"
	"github.com/crypto-power/cryptovote/libvote/utils"
	"github.com/crypto-power/cryptovote/libvote/votedata"
)

// DefaultBackendHost is the metadata backend used when Config.BackendHost is
// empty.
const DefaultBackendHost = backend.DefaultHost

// Config configures a VoteManager.
type Config struct {
	RootDir     string
	BackendHost string
	HTTPTimeout time.Duration

	Ledger ledger.Config

	// MinContractBalance is the election contract balance below which votes
	// are not attempted. Nil uses ledger.DefaultMinContractBalance; zero
	// disables the check.
	MinContractBalance *big.Int
	TallyConcurrency   int
}

type VoteManager struct {
	rootDir string
	db      *votedata.DB

	ledger      ledger.Ledger
	closeLedger func()

	directory *directory.Directory
	checker   *eligibility.Checker
	submitter *ballot.Submitter
	tally     *tally.Aggregator

	// ctx is cancelled by Shutdown. Vote broadcasts and finality waits run
	// on it rather than on their callers' contexts.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewVoteManager opens the local database under cfg.RootDir, connects to
// the ledger and resumes tracking of vote transactions left pending by an
// earlier run.
func NewVoteManager(ctx context.Context, cfg *Config) (*VoteManager, error) {
	l, err := ledger.Dial(ctx, &cfg.Ledger)
	if err != nil {
		return nil, err
	}

	vm, err := newVoteManager(cfg, l, backend.NewClient(cfg.BackendHost, cfg.HTTPTimeout))
	if err != nil {
		l.Close()
		return nil, err
	}
	vm.closeLedger = l.Close
	return vm, nil
}

func newVoteManager(cfg *Config, l ledger.Ledger, b directory.Backend) (*VoteManager, error) {
	if err := os.MkdirAll(cfg.RootDir, utils.UserFilePerm); err != nil {
		return nil, utils.NewErrorReason(utils.ErrInvalidConfig, "Failed to create the data directory", err)
	}

	db, err := votedata.Initialize(filepath.Join(cfg.RootDir, votedata.DbName))
	if err != nil {
		log.Errorf("Error opening vote database: %v", err)
		return nil, err
	}

	minBalance := cfg.MinContractBalance
	if minBalance == nil {
		minBalance = ledger.DefaultMinContractBalance
	}

	ctx, cancel := context.WithCancel(context.Background())
	vm := &VoteManager{
		rootDir:   cfg.RootDir,
		db:        db,
		ledger:    l,
		directory: directory.New(b, db),
		checker:   eligibility.NewChecker(l),
		submitter: ballot.NewSubmitter(ctx, l, db, minBalance),
		tally:     tally.NewAggregator(l, cfg.TallyConcurrency),
		ctx:       ctx,
		cancel:    cancel,
	}

	if _, err := vm.submitter.ResumePending(); err != nil {
		log.Errorf("Error resuming pending votes: %v", err)
	}
	return vm, nil
}

// Shutdown stops pending finality waits and closes the database and ledger
// connection.
func (vm *VoteManager) Shutdown() {
	log.Info("Shutting down libvote")

	vm.cancel()
	vm.submitter.Wait()

	if vm.db != nil {
		if err := vm.db.Close(); err != nil {
			log.Errorf("db closed with error: %v", err)
		} else {
			log.Info("db closed successfully")
		}
	}
	if vm.closeLedger != nil {
		vm.closeLedger()
	}
}

// NewSession returns a voting session controller for voter.
func (vm *VoteManager) NewSession(voter election.VoterIdentity) *session.Controller {
	return session.NewController(voter, vm.directory, vm.checker, vm.submitter)
}

// ResolveVoter exchanges a credential for the voter's identity.
func (vm *VoteManager) ResolveVoter(ctx context.Context, credential string) (election.VoterIdentity, error) {
	return vm.directory.ResolveVoter(ctx, credential)
}

// Election fetches and validates one election.
func (vm *VoteManager) Election(ctx context.Context, electionID, credential string) (*election.Descriptor, error) {
	return vm.directory.FetchElection(ctx, electionID, credential)
}

// CommunityElections returns a community's elections split into ongoing
// and past ones. When the backend cannot be reached the last cached list is
// returned along with the network error.
func (vm *VoteManager) CommunityElections(ctx context.Context, communityKey, credential string) (ongoing, past []*election.Descriptor, err error) {
	descriptors, err := vm.directory.FetchCommunityElections(ctx, communityKey, credential)
	if err != nil {
		if !utils.IsCode(err, utils.ErrNetwork) {
			return nil, nil, err
		}
		cached, lastSynced, cerr := vm.directory.CachedCommunityElections(communityKey)
		if cerr != nil || len(cached) == 0 {
			return nil, nil, err
		}
		log.Warnf("Backend unreachable, using elections of %q cached at %s", communityKey,
			utils.FormatFullDate(lastSynced))
		descriptors = cached
	}

	ongoing, past = directory.Partition(descriptors, time.Now())
	return ongoing, past, err
}

// Eligibility runs a fresh eligibility check of voter on an election.
func (vm *VoteManager) Eligibility(ctx context.Context, voterID string, desc *election.Descriptor) election.EligibilityResult {
	return vm.checker.CheckEligibility(ctx, voterID, desc)
}

// Results tallies the given elections.
func (vm *VoteManager) Results(ctx context.Context, descriptors []*election.Descriptor) (map[string]*election.Result, error) {
	return vm.tally.ComputeTally(ctx, descriptors)
}

// PublishResults tallies an ended election and stores the result on the
// backend.
func (vm *VoteManager) PublishResults(ctx context.Context, electionID, credential string) (*election.Result, error) {
	desc, err := vm.directory.FetchElection(ctx, electionID, credential)
	if err != nil {
		return nil, err
	}
	if !desc.HasEnded(time.Now()) {
		return nil, utils.NewError(utils.ErrElectionOpen, nil)
	}

	results, err := vm.tally.ComputeTally(ctx, []*election.Descriptor{desc})
	if err != nil {
		return nil, err
	}
	result := results[desc.ID]
	if err = vm.directory.PublishResults(ctx, desc, result, credential); err != nil {
		return nil, err
	}
	return result, nil
}

// Submissions lists the journaled vote submissions of a voter.
func (vm *VoteManager) Submissions(voterID string) ([]election.BallotSubmission, error) {
	return vm.submitter.Submissions(voterID)
}
