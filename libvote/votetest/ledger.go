// Package votetest provides in-memory fakes of the ledger and the metadata
// backend for tests.
package votetest

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/crypto-power/cryptovote/libvote/utils"
)

type contractState struct {
	voters     map[string]bool
	voted      map[string]bool
	candidates []string
	votes      map[string]*big.Int
	balance    *big.Int
}

type pendingVote struct {
	contract, voterID, candidateID string
}

// Ledger is an in-memory election contract. A vote is applied when its
// finality wait succeeds.
type Ledger struct {
	mu        sync.Mutex
	contracts map[string]*contractState
	pending   map[string]pendingVote
	voteCalls int
	nonce     int

	readErr     error
	voteErr     error
	finalityErr error
	revert      bool

	// finalityGate, when set, blocks WaitFinality until it is closed.
	finalityGate chan struct{}
}

func NewLedger() *Ledger {
	return &Ledger{
		contracts: make(map[string]*contractState),
		pending:   make(map[string]pendingVote),
	}
}

func (l *Ledger) contract(address string) *contractState {
	key := strings.ToLower(address)
	c, ok := l.contracts[key]
	if !ok {
		c = &contractState{
			voters:  make(map[string]bool),
			voted:   make(map[string]bool),
			votes:   make(map[string]*big.Int),
			balance: big.NewInt(1e18), // 1 ether
		}
		l.contracts[key] = c
	}
	return c
}

// Register adds voters to the contract's registry.
func (l *Ledger) Register(contract string, voterIDs ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := l.contract(contract)
	for _, id := range voterIDs {
		c.voters[id] = true
	}
}

// MarkVoted records that voterID already voted on contract.
func (l *Ledger) MarkVoted(contract, voterID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.contract(contract).voted[voterID] = true
}

// SetVotes sets a candidate's count. Candidates are reported by AllVotes in
// the order they were first set.
func (l *Ledger) SetVotes(contract, candidateID string, count int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := l.contract(contract)
	if _, ok := c.votes[candidateID]; !ok {
		c.candidates = append(c.candidates, candidateID)
	}
	c.votes[candidateID] = big.NewInt(count)
}

// SetBalance sets the contract balance in wei.
func (l *Ledger) SetBalance(contract string, wei *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.contract(contract).balance = wei
}

// FailReads makes every read return err until called again with nil.
func (l *Ledger) FailReads(err error) {
	l.mu.Lock()
	l.readErr = err
	l.mu.Unlock()
}

// FailVotes makes Vote return err.
func (l *Ledger) FailVotes(err error) {
	l.mu.Lock()
	l.voteErr = err
	l.mu.Unlock()
}

// RevertVotes makes mined vote transactions revert.
func (l *Ledger) RevertVotes(revert bool) {
	l.mu.Lock()
	l.revert = revert
	l.mu.Unlock()
}

// FailFinality makes WaitFinality return err.
func (l *Ledger) FailFinality(err error) {
	l.mu.Lock()
	l.finalityErr = err
	l.mu.Unlock()
}

// HoldFinality blocks finality waits until the returned function is called.
func (l *Ledger) HoldFinality() (release func()) {
	gate := make(chan struct{})
	l.mu.Lock()
	l.finalityGate = gate
	l.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// VoteCalls returns how many times Vote was called.
func (l *Ledger) VoteCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.voteCalls
}

// VotesOf returns a candidate's current count.
func (l *Ledger) VotesOf(contract, candidateID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.contract(contract).votes[candidateID]; ok {
		return v.Int64()
	}
	return 0
}

func (l *Ledger) IsVoter(ctx context.Context, contract, voterID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.readErr != nil {
		return false, l.readErr
	}
	return l.contract(contract).voters[voterID], nil
}

func (l *Ledger) HasVoted(ctx context.Context, contract, voterID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.readErr != nil {
		return false, l.readErr
	}
	return l.contract(contract).voted[voterID], nil
}

func (l *Ledger) Votes(ctx context.Context, contract, candidateID string) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.readErr != nil {
		return nil, l.readErr
	}
	if v, ok := l.contract(contract).votes[candidateID]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

func (l *Ledger) AllVotes(ctx context.Context, contract string) ([]*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.readErr != nil {
		return nil, l.readErr
	}
	c := l.contract(contract)
	all := make([]*big.Int, 0, len(c.candidates))
	for _, id := range c.candidates {
		all = append(all, new(big.Int).Set(c.votes[id]))
	}
	return all, nil
}

func (l *Ledger) ContractBalance(ctx context.Context, contract string) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.readErr != nil {
		return nil, l.readErr
	}
	return new(big.Int).Set(l.contract(contract).balance), nil
}

func (l *Ledger) Vote(ctx context.Context, contract, voterID, candidateID string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.voteCalls++
	if l.voteErr != nil {
		return "", l.voteErr
	}
	l.nonce++
	hash := fmt.Sprintf("0x%064x", l.nonce)
	l.pending[hash] = pendingVote{contract: contract, voterID: voterID, candidateID: candidateID}
	return hash, nil
}

func (l *Ledger) WaitFinality(ctx context.Context, txHash string) error {
	l.mu.Lock()
	gate := l.finalityGate
	l.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return utils.NewError(utils.ErrLedgerTimeout, ctx.Err())
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.finalityErr != nil {
		return l.finalityErr
	}
	vote, ok := l.pending[txHash]
	if !ok {
		return utils.NewErrorReason(utils.ErrLedgerRejected, "unknown transaction", nil)
	}
	delete(l.pending, txHash)
	if l.revert {
		return utils.NewErrorReason(utils.ErrLedgerRejected, "The vote transaction was reverted", nil)
	}

	c := l.contract(vote.contract)
	if !c.voters[vote.voterID] || c.voted[vote.voterID] {
		return utils.NewErrorReason(utils.ErrLedgerRejected, "The vote transaction was reverted", nil)
	}
	c.voted[vote.voterID] = true
	if _, ok := c.votes[vote.candidateID]; !ok {
		c.candidates = append(c.candidates, vote.candidateID)
		c.votes[vote.candidateID] = new(big.Int)
	}
	c.votes[vote.candidateID] = new(big.Int).Add(c.votes[vote.candidateID], big.NewInt(1))
	return nil
}
