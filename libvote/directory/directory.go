// Package directory resolves election and community selections to election
// descriptors fetched from the metadata backend.
package directory

import (
	"context"
	"strings"
	"time"

	"github.com/crypto-power/cryptovote/libvote/election"
	"github.com/crypto-power/cryptovote/libvote/internal/backend"
	"github.com/crypto-power/cryptovote/libvote/utils"
)

// Backend is the metadata backend surface used by the directory.
type Backend interface {
	SelectedCandidates(ctx context.Context, credential, electionID string) (*backend.ElectionRecord, error)
	Elections(ctx context.Context, credential, communityKey string) ([]*backend.ElectionRecord, error)
	Verify(ctx context.Context, credential string) (string, error)
	PublishResults(ctx context.Context, credential, electionID string, rows []backend.ResultRow) error
}

// Directory fetches, validates and caches election descriptors.
type Directory struct {
	backend Backend
	cache   Cache
	now     func() time.Time
}

// New returns a directory over b. cache may be nil, in which case nothing
// is cached.
func New(b Backend, cache Cache) *Directory {
	return &Directory{
		backend: b,
		cache:   cache,
		now:     time.Now,
	}
}

// SetClock overrides the time source used for cache timestamps and the
// election window checks.
func (d *Directory) SetClock(now func() time.Time) {
	d.now = now
}

// FetchElection resolves an election id to a validated descriptor.
func (d *Directory) FetchElection(ctx context.Context, electionID, credential string) (*election.Descriptor, error) {
	if strings.TrimSpace(electionID) == "" {
		return nil, utils.NewErrorReason(utils.ErrNotFound, "No election selected", nil)
	}
	if credential == "" {
		return nil, utils.NewError(utils.ErrUnauthorized, nil)
	}

	record, err := d.backend.SelectedCandidates(ctx, credential, electionID)
	if err != nil {
		return nil, utils.TranslateError(err)
	}
	if isEmptyRecord(record) {
		return nil, utils.NewError(utils.ErrNotFound, nil)
	}

	desc, err := toDescriptor(record, "")
	if err != nil {
		log.Warnf("Election %s is malformed: %v", electionID, err)
		return nil, err
	}

	d.cacheElection(desc)
	return desc, nil
}

// FetchCommunityElections returns the elections of a community ordered by
// end time. Records that fail validation are skipped; a community with no
// elections yields an empty list.
func (d *Directory) FetchCommunityElections(ctx context.Context, communityKey, credential string) ([]*election.Descriptor, error) {
	if strings.TrimSpace(communityKey) == "" {
		return nil, utils.NewErrorReason(utils.ErrNotFound, "No community selected", nil)
	}
	if credential == "" {
		return nil, utils.NewError(utils.ErrUnauthorized, nil)
	}

	records, err := d.backend.Elections(ctx, credential, communityKey)
	if err != nil {
		return nil, utils.TranslateError(err)
	}

	descriptors := make([]*election.Descriptor, 0, len(records))
	for _, record := range records {
		if isEmptyRecord(record) {
			continue
		}
		desc, err := toDescriptor(record, communityKey)
		if err != nil {
			log.Warnf("Skipping malformed election %q of community %q: %v", record.ID, communityKey, err)
			continue
		}
		descriptors = append(descriptors, desc)
		d.cacheElection(desc)
	}
	sortByEndTime(descriptors)

	if d.cache != nil {
		if err := d.cache.SetLastSynced(communityKey, d.now()); err != nil {
			log.Errorf("error saving last synced time of community %q: %v", communityKey, err)
		}
	}
	return descriptors, nil
}

// ResolveVoter returns the identity a credential was issued for.
func (d *Directory) ResolveVoter(ctx context.Context, credential string) (election.VoterIdentity, error) {
	if credential == "" {
		return election.VoterIdentity{}, utils.NewError(utils.ErrUnauthorized, nil)
	}
	voterID, err := d.backend.Verify(ctx, credential)
	if err != nil {
		return election.VoterIdentity{}, utils.TranslateError(err)
	}
	return election.VoterIdentity{VoterID: voterID, Credential: credential}, nil
}

// PublishResults stores an ended election's tally on the backend.
func (d *Directory) PublishResults(ctx context.Context, desc *election.Descriptor, result *election.Result,
	credential string) error {
	if credential == "" {
		return utils.NewError(utils.ErrUnauthorized, nil)
	}
	if !desc.HasEnded(d.now()) {
		return utils.NewError(utils.ErrElectionOpen, nil)
	}

	rows := make([]backend.ResultRow, 0, len(result.Rows))
	for _, row := range result.Rows {
		rows = append(rows, backend.ResultRow{
			CandidateID: row.CandidateID,
			Username:    row.DisplayName,
			VoteCount:   row.VoteCount,
			Percentage:  row.Percentage,
		})
	}

	if err := d.backend.PublishResults(ctx, credential, desc.ID, rows); err != nil {
		return utils.TranslateError(err)
	}
	log.Infof("Published results of election %s (%d votes)", desc.ID, result.TotalVotes)
	return nil
}

// Partition splits descriptors into ongoing elections (end time in the
// future) and past ones, keeping their relative order.
func Partition(descriptors []*election.Descriptor, now time.Time) (ongoing, past []*election.Descriptor) {
	for _, desc := range descriptors {
		if desc.HasEnded(now) {
			past = append(past, desc)
		} else {
			ongoing = append(ongoing, desc)
		}
	}
	return ongoing, past
}

func isEmptyRecord(record *backend.ElectionRecord) bool {
	return record == nil || (record.ID == "" && record.ElectionAddress == "" &&
		record.ElectionName == "" && len(record.Candidates) == 0)
}

// toDescriptor converts and validates a backend record. Candidates are keyed
// by username, which is what the election contract counts votes under.
func toDescriptor(record *backend.ElectionRecord, communityKey string) (*election.Descriptor, error) {
	start, err := utils.ParseBackendTime(record.StartDate)
	if err != nil {
		return nil, utils.NewErrorReason(utils.ErrMalformed, "Election start date is invalid", err)
	}
	end, err := utils.ParseBackendTime(record.EndDate)
	if err != nil {
		return nil, utils.NewErrorReason(utils.ErrMalformed, "Election end date is invalid", err)
	}

	if record.CommunityKey != "" {
		communityKey = record.CommunityKey
	}

	desc := &election.Descriptor{
		ID:              record.ID,
		Name:            record.ElectionName,
		ContractAddress: strings.TrimSpace(record.ElectionAddress),
		CommunityKey:    communityKey,
		StartTime:       start,
		EndTime:         end,
		Candidates:      make([]election.CandidateRef, 0, len(record.Candidates)),
	}
	for _, c := range record.Candidates {
		displayName := c.FullName
		if displayName == "" {
			displayName = c.Username
		}
		desc.Candidates = append(desc.Candidates, election.CandidateRef{
			ID:          c.Username,
			DisplayName: displayName,
			RecordID:    c.ID,
		})
	}

	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return desc, nil
}
