// Package votedata is the local storm database of the voting client. It
// holds the election descriptor cache and the ballot submission journal.
package votedata

import (
	"fmt"
	"os"
	"time"

	"github.com/asdine/storm"
	"github.com/asdine/storm/q"
	"github.com/crypto-power/cryptovote/libvote/election"
	bolt "go.etcd.io/bbolt"
)

const (
	DbName = "votes.db"

	configBucketName = "VoteDataConfig"
	KeyDbVersion     = "DbVersion"
	keyLastSynced    = "LastSynced:"

	// DbVersion forces the cache and journal to be rebuilt when the stored
	// record layout changes. Increment it whenever electionRecord or
	// election.BallotSubmission change shape.
	DbVersion uint32 = 1

	// openTimeout bounds how long Initialize waits for the file lock.
	openTimeout = 2 * time.Second
)

// electionRecord is a cached election descriptor.
type electionRecord struct {
	ID           string `storm:"id"`
	CommunityKey string `storm:"index"`
	Descriptor   election.Descriptor
	CachedAt     time.Time
}

// DB wraps the storm database.
type DB struct {
	db    *storm.DB
	Close func() error
}

// Initialize opens the storm db at dbPath and checks the database version
// for compatibility. If there is a version mismatch the cache and journal
// buckets are dropped and the current version saved.
func Initialize(dbPath string) (*DB, error) {
	voteDB, err := openOrCreateDB(dbPath)
	if err != nil {
		return nil, err
	}

	if err = ensureDatabaseVersion(voteDB); err != nil {
		voteDB.Close()
		return nil, err
	}

	for _, model := range []interface{}{&electionRecord{}, &election.BallotSubmission{}} {
		if err = voteDB.Init(model); err != nil {
			voteDB.Close()
			return nil, fmt.Errorf("error initializing vote data bucket: %s", err.Error())
		}
	}

	return &DB{
		db:    voteDB,
		Close: voteDB.Close,
	}, nil
}

func openOrCreateDB(dbPath string) (*storm.DB, error) {
	var isNewDbFile bool

	// first check if db file exists at dbPath, if not we'll need to create it and set the db version
	if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			isNewDbFile = true
		} else {
			return nil, fmt.Errorf("error checking vote database file: %s", err.Error())
		}
	}

	voteDB, err := storm.Open(dbPath, storm.BoltOptions(0600, &bolt.Options{Timeout: openTimeout}))
	if err != nil {
		switch err {
		case bolt.ErrTimeout:
			// timeout error occurs if storm fails to acquire a lock on the database file
			return nil, fmt.Errorf("vote database is in use by another process")
		default:
			return nil, fmt.Errorf("error opening vote database: %s", err.Error())
		}
	}

	if isNewDbFile {
		err = voteDB.Set(configBucketName, KeyDbVersion, DbVersion)
		if err != nil {
			voteDB.Close()
			os.RemoveAll(dbPath)
			return nil, fmt.Errorf("error initializing vote db: %s", err.Error())
		}
	}

	return voteDB, nil
}

func ensureDatabaseVersion(voteDB *storm.DB) error {
	var currentDbVersion uint32
	err := voteDB.Get(configBucketName, KeyDbVersion, &currentDbVersion)
	if err != nil && err != storm.ErrNotFound {
		return fmt.Errorf("error checking vote database version: %s", err.Error())
	}

	if currentDbVersion == DbVersion {
		return nil
	}

	for _, model := range []interface{}{&electionRecord{}, &election.BallotSubmission{}} {
		if err = voteDB.Drop(model); err != nil && err != bolt.ErrBucketNotFound {
			return fmt.Errorf("error deleting outdated vote data: %s", err.Error())
		}
	}

	if err = voteDB.Set(configBucketName, KeyDbVersion, DbVersion); err != nil {
		return fmt.Errorf("error updating vote db version: %s", err.Error())
	}
	return nil
}

// SaveElection caches a validated descriptor, replacing any earlier copy.
func (d *DB) SaveElection(desc *election.Descriptor, cachedAt time.Time) error {
	return d.db.Save(&electionRecord{
		ID:           desc.ID,
		CommunityKey: desc.CommunityKey,
		Descriptor:   *desc.Copy(),
		CachedAt:     cachedAt,
	})
}

// Election returns a cached descriptor. storm.ErrNotFound is returned when
// the election was never cached.
func (d *DB) Election(id string) (*election.Descriptor, error) {
	var record electionRecord
	if err := d.db.One("ID", id, &record); err != nil {
		return nil, err
	}
	return &record.Descriptor, nil
}

// CommunityElections returns the cached descriptors of a community ordered
// by end time.
func (d *DB) CommunityElections(communityKey string) ([]*election.Descriptor, error) {
	var records []electionRecord
	err := d.db.Select(q.Eq("CommunityKey", communityKey)).Find(&records)
	if err != nil && err != storm.ErrNotFound {
		return nil, fmt.Errorf("error reading cached elections: %s", err.Error())
	}

	descriptors := make([]*election.Descriptor, 0, len(records))
	for i := range records {
		descriptors = append(descriptors, &records[i].Descriptor)
	}
	sortByEndTime(descriptors)
	return descriptors, nil
}

// SetLastSynced records when a community's elections were last fetched.
func (d *DB) SetLastSynced(communityKey string, t time.Time) error {
	unix := t.Unix()
	return d.db.Set(configBucketName, keyLastSynced+communityKey, &unix)
}

// LastSynced returns the last fetch time of a community, or the zero time.
func (d *DB) LastSynced(communityKey string) (time.Time, error) {
	var unix int64
	err := d.db.Get(configBucketName, keyLastSynced+communityKey, &unix)
	if err == storm.ErrNotFound {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(unix, 0).UTC(), nil
}
