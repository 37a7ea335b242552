// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
)

const jobKeyPrefix = "job:"

// Store persists job records in Badger as JSON values under "job:<id>".
type Store struct {
	db *badger.DB
}

// OpenStore opens (or creates) the job database at path.
func OpenStore(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// PutJob stores or replaces a job record.
func (s *Store) PutJob(ctx context.Context, job *Job) error {
	key := []byte(jobKeyPrefix + job.ID)
	buf, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, buf)
	})
}

// GetJob retrieves a job by ID. Returns (nil, nil) when not found.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	key := []byte(jobKeyPrefix + id)
	var out Job
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateJob applies fn to the stored record inside a single transaction and
// returns the updated job.
func (s *Store) UpdateJob(ctx context.Context, id string, fn func(*Job) error) (*Job, error) {
	key := []byte(jobKeyPrefix + id)
	var out Job
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		}); err != nil {
			return err
		}
		if err := fn(&out); err != nil {
			return err
		}
		buf, err := json.Marshal(out)
		if err != nil {
			return err
		}
		return txn.Set(key, buf)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListJobs returns all job records, newest first.
func (s *Store) ListJobs(ctx context.Context) ([]Job, error) {
	var jobs []Job
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(jobKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var job Job
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &job)
			}); err != nil {
				return err
			}
			jobs = append(jobs, job)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs, nil
}

// RequeueInterrupted returns every job a restart must resubmit: jobs left
// running by an unclean shutdown are flipped back to queued, and jobs that
// were accepted but never picked up are returned as-is. Without the latter
// an accepted job would report "queued" forever.
func (s *Store) RequeueInterrupted(ctx context.Context) ([]Job, error) {
	all, err := s.ListJobs(ctx)
	if err != nil {
		return nil, err
	}

	var requeued []Job
	for _, job := range all {
		switch job.State {
		case StateQueued:
			requeued = append(requeued, job)
		case StateRunning:
			updated, err := s.UpdateJob(ctx, job.ID, func(j *Job) error {
				j.State = StateQueued
				j.Stage = ""
				j.StartedAt = nil
				return nil
			})
			if err != nil {
				return nil, err
			}
			requeued = append(requeued, *updated)
		}
	}
	return requeued, nil
}
