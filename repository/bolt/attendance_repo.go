// Package bolt stores attendance records in an embedded BoltDB file for
// standalone deployments that run without Postgres (a single faculty laptop
// proctoring an exam, for example).
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bboltlib "go.etcd.io/bbolt"

	"github.com/campuskit/checkin/domain"
)

// Store wraps BoltDB behind the AttendanceRepository contract.
type Store struct {
	db     *bboltlib.DB
	bucket []byte
}

// Open initializes the BoltDB file and ensures the records bucket exists.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bboltlib.Open(path, 0o600, &bboltlib.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	bucket := []byte("attendance_records")
	if err := db.Update(func(tx *bboltlib.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:     db,
		bucket: bucket,
	}, nil
}

func (s *Store) CreateRecord(ctx context.Context, record *domain.AttendanceRecord) (string, error) {
	if s == nil || s.db == nil {
		return "", domain.PersistenceError(bboltlib.ErrDatabaseNotOpen)
	}
	if record == nil || record.StudentID == "" {
		return "", domain.ErrInvalidPayload
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return "", err
	}

	key := buildKey(record)
	if err := s.db.Update(func(tx *bboltlib.Tx) error {
		return tx.Bucket(s.bucket).Put(key, payload)
	}); err != nil {
		return "", domain.PersistenceError(err)
	}
	return record.ID, nil
}

// Size returns the number of stored records, for health reporting.
func (s *Store) Size() (int, error) {
	if s == nil || s.db == nil {
		return 0, bboltlib.ErrDatabaseNotOpen
	}
	var count int
	err := s.db.View(func(tx *bboltlib.Tx) error {
		count = tx.Bucket(s.bucket).Stats().KeyN
		return nil
	})
	return count, err
}

// Close closes the Bolt database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Keys sort by marking time so exports read out chronologically.
func buildKey(record *domain.AttendanceRecord) []byte {
	return []byte(fmt.Sprintf("%020d_%s", record.MarkedAt.UnixNano(), record.ID))
}
