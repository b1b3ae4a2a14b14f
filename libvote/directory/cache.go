package directory

import (
	"sort"
	"time"

	"github.com/asdine/storm"
	"github.com/crypto-power/cryptovote/libvote/election"
	"github.com/crypto-power/cryptovote/libvote/utils"
)

// Cache stores validated descriptors between runs. votedata.DB satisfies
// it.
type Cache interface {
	SaveElection(desc *election.Descriptor, cachedAt time.Time) error
	Election(id string) (*election.Descriptor, error)
	CommunityElections(communityKey string) ([]*election.Descriptor, error)
	SetLastSynced(communityKey string, t time.Time) error
	LastSynced(communityKey string) (time.Time, error)
}

func (d *Directory) cacheElection(desc *election.Descriptor) {
	if d.cache == nil {
		return
	}
	if err := d.cache.SaveElection(desc, d.now()); err != nil {
		log.Errorf("error caching election %s: %v", desc.ID, err)
	}
}

// CachedElection returns the last fetched copy of an election without
// contacting the backend.
func (d *Directory) CachedElection(electionID string) (*election.Descriptor, error) {
	if d.cache == nil {
		return nil, utils.NewError(utils.ErrNotFound, storm.ErrNotFound)
	}
	desc, err := d.cache.Election(electionID)
	if err != nil {
		return nil, utils.TranslateError(err)
	}
	return desc, nil
}

// CachedCommunityElections returns the cached elections of a community and
// when they were last fetched. The zero time means never.
func (d *Directory) CachedCommunityElections(communityKey string) ([]*election.Descriptor, time.Time, error) {
	if d.cache == nil {
		return nil, time.Time{}, nil
	}
	descriptors, err := d.cache.CommunityElections(communityKey)
	if err != nil {
		return nil, time.Time{}, utils.TranslateError(err)
	}
	lastSynced, err := d.cache.LastSynced(communityKey)
	if err != nil {
		log.Errorf("error reading last synced time of community %q: %v", communityKey, err)
	}
	return descriptors, lastSynced, nil
}

func sortByEndTime(descriptors []*election.Descriptor) {
	sort.SliceStable(descriptors, func(i, j int) bool {
		return descriptors[i].EndTime.Before(descriptors[j].EndTime)
	})
}
