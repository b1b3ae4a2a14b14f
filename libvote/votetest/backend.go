package votetest

import (
	"context"
	"sync"
	"time"

	"decred.org/dcrwallet/v2/errors"
	"github.com/crypto-power/cryptovote/libvote/election"
	"github.com/crypto-power/cryptovote/libvote/internal/backend"
)

// Backend is an in-memory metadata backend. It accepts any credential
// listed in Voters.
type Backend struct {
	mu          sync.Mutex
	elections   map[string]*backend.ElectionRecord
	communities map[string][]string
	voters      map[string]string
	published   map[string][]backend.ResultRow
	err         error
	calls       int
}

func NewBackend() *Backend {
	return &Backend{
		elections:   make(map[string]*backend.ElectionRecord),
		communities: make(map[string][]string),
		voters:      make(map[string]string),
		published:   make(map[string][]backend.ResultRow),
	}
}

// AddVoter makes credential resolve to voterID.
func (b *Backend) AddVoter(credential, voterID string) {
	b.mu.Lock()
	b.voters[credential] = voterID
	b.mu.Unlock()
}

// AddElection stores desc as the backend would return it.
func (b *Backend) AddElection(desc *election.Descriptor) {
	b.AddRecord(desc.CommunityKey, Record(desc))
}

// AddRecord stores a raw record under a community key.
func (b *Backend) AddRecord(communityKey string, record *backend.ElectionRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.elections[record.ID]; !ok && communityKey != "" {
		b.communities[communityKey] = append(b.communities[communityKey], record.ID)
	}
	b.elections[record.ID] = record
}

// Fail makes every call return err until called again with nil.
func (b *Backend) Fail(err error) {
	b.mu.Lock()
	b.err = err
	b.mu.Unlock()
}

// Published returns the rows published for an election.
func (b *Backend) Published(electionID string) []backend.ResultRow {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.published[electionID]
}

// Calls returns the number of backend calls made.
func (b *Backend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func (b *Backend) authorize(op errors.Op, credential string) error {
	b.calls++
	if b.err != nil {
		return b.err
	}
	if _, ok := b.voters[credential]; !ok {
		return errors.E(op, errors.Permission, "invalid credential")
	}
	return nil
}

func (b *Backend) SelectedCandidates(ctx context.Context, credential, electionID string) (*backend.ElectionRecord, error) {
	const op errors.Op = "votetest.SelectedCandidates"
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.authorize(op, credential); err != nil {
		return nil, err
	}
	record, ok := b.elections[electionID]
	if !ok {
		return nil, errors.E(op, errors.NotExist, "no such election")
	}
	r := *record
	return &r, nil
}

func (b *Backend) Elections(ctx context.Context, credential, communityKey string) ([]*backend.ElectionRecord, error) {
	const op errors.Op = "votetest.Elections"
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.authorize(op, credential); err != nil {
		return nil, err
	}
	ids, ok := b.communities[communityKey]
	if !ok {
		return nil, errors.E(op, errors.NotExist, "no such community")
	}
	records := make([]*backend.ElectionRecord, 0, len(ids))
	for _, id := range ids {
		r := *b.elections[id]
		records = append(records, &r)
	}
	return records, nil
}

func (b *Backend) Verify(ctx context.Context, credential string) (string, error) {
	const op errors.Op = "votetest.Verify"
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.authorize(op, credential); err != nil {
		return "", err
	}
	return b.voters[credential], nil
}

func (b *Backend) PublishResults(ctx context.Context, credential, electionID string, rows []backend.ResultRow) error {
	const op errors.Op = "votetest.PublishResults"
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.authorize(op, credential); err != nil {
		return err
	}
	if _, ok := b.elections[electionID]; !ok {
		return errors.E(op, errors.NotExist, "no such election")
	}
	b.published[electionID] = append([]backend.ResultRow(nil), rows...)
	return nil
}

// Record converts a descriptor to the record the backend would serve for
// it.
func Record(desc *election.Descriptor) *backend.ElectionRecord {
	record := &backend.ElectionRecord{
		ElectionData: backend.ElectionData{
			ID:              desc.ID,
			ElectionName:    desc.Name,
			ElectionAddress: desc.ContractAddress,
			StartDate:       desc.StartTime.UTC().Format(time.RFC3339),
			EndDate:         desc.EndTime.UTC().Format(time.RFC3339),
			CommunityKey:    desc.CommunityKey,
		},
	}
	for _, c := range desc.Candidates {
		record.Candidates = append(record.Candidates, backend.Candidate{
			ID:       c.RecordID,
			Username: c.ID,
			FullName: c.DisplayName,
		})
	}
	return record
}
