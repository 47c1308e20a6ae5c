// Package state journals finished batches in a bbolt database so past runs
// can be listed and an interrupted run can be detected on the next start.
package state

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"duoconv/core/settings"
)

// State is the batch lifecycle state.
type State string

const (
	StateIdle       State = "IDLE"
	StateProcessing State = "PROCESSING"
)

// StateInfo is the persisted lifecycle state.
type StateInfo struct {
	Current   State     `json:"current"`
	Previous  State     `json:"previous"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// RunRecord summarizes one finished batch.
type RunRecord struct {
	ID             uint64        `json:"id"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
	Settings       settings.Raw  `json:"settings"`
	TotalAttempted int           `json:"total_attempted"`
	SuccessOGG     int           `json:"success_ogg"`
	SuccessWebM    int           `json:"success_webm"`
	ErrorCount     int           `json:"error_count"`
	SkippedCount   int           `json:"skipped_count"`
	Interrupted    bool          `json:"interrupted"`
	ErrorDetails   []string      `json:"error_details,omitempty"`
}

// FileRecord is the outcome of one file within a run.
type FileRecord struct {
	Path    string   `json:"path"`
	Status  string   `json:"status"`
	Formats []string `json:"formats,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// ErrRunNotFound is returned by RunFiles for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// Manager is the bbolt-backed run journal.
type Manager struct {
	db         *bbolt.DB
	dbPath     string
	logger     *zap.Logger
	unfinished *StateInfo
}

const (
	stateBucket   = "state"
	runsBucket    = "runs"
	resultsBucket = "results"

	currentStateKey = "current"
)

// NewManager opens (creating if needed) the journal at dbPath.
func NewManager(dbPath string, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	manager := &Manager{
		db:     db,
		dbPath: dbPath,
		logger: logger,
	}

	if err := manager.initBuckets(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize buckets: %w, and failed to close db: %v", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	// a PROCESSING state left on disk means the previous process died mid-batch
	info, err := manager.GetState()
	if err == nil && info.Current == StateProcessing {
		manager.unfinished = info
		logger.Warn("previous batch did not finish",
			zap.Time("started", info.Timestamp),
			zap.String("message", info.Message))
	}

	if err := manager.SetState(StateIdle, "opened"); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to set initial state: %w, and failed to close db: %v", err, closeErr)
		}
		return nil, fmt.Errorf("failed to set initial state: %w", err)
	}

	return manager, nil
}

func (m *Manager) initBuckets() error {
	return m.db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range []string{stateBucket, runsBucket, resultsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
}

// Unfinished returns the state left by a batch that never recorded its end,
// or nil.
func (m *Manager) Unfinished() *StateInfo {
	return m.unfinished
}

// SetState records a lifecycle transition.
func (m *Manager) SetState(newState State, message string) error {
	return m.db.Update(func(tx *bbolt.Tx) error {
		return putState(tx, newState, message)
	})
}

func putState(tx *bbolt.Tx, newState State, message string) error {
	bucket := tx.Bucket([]byte(stateBucket))
	if bucket == nil {
		return fmt.Errorf("state bucket not found")
	}

	info := StateInfo{Current: newState, Timestamp: time.Now(), Message: message}
	if data := bucket.Get([]byte(currentStateKey)); data != nil {
		var prev StateInfo
		if err := json.Unmarshal(data, &prev); err == nil {
			info.Previous = prev.Current
		}
	}

	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	return bucket.Put([]byte(currentStateKey), data)
}

// GetState returns the current lifecycle state.
func (m *Manager) GetState() (*StateInfo, error) {
	var info StateInfo
	err := m.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(stateBucket))
		if bucket == nil {
			return fmt.Errorf("state bucket not found")
		}
		data := bucket.Get([]byte(currentStateKey))
		if data == nil {
			info = StateInfo{Current: StateIdle}
			return nil
		}
		return json.Unmarshal(data, &info)
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// BeginRun marks a batch as in progress.
func (m *Manager) BeginRun(total int) error {
	return m.SetState(StateProcessing, fmt.Sprintf("converting %d file(s)", total))
}

// RecordRun stores run and its files, assigns run.ID and returns to IDLE in
// the same transaction.
func (m *Manager) RecordRun(run RunRecord, files []FileRecord) (uint64, error) {
	err := m.db.Update(func(tx *bbolt.Tx) error {
		runs := tx.Bucket([]byte(runsBucket))
		id, err := runs.NextSequence()
		if err != nil {
			return err
		}
		run.ID = id

		data, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("failed to marshal run: %w", err)
		}
		if err := runs.Put(itob(id), data); err != nil {
			return err
		}

		fileBucket, err := tx.Bucket([]byte(resultsBucket)).CreateBucket(itob(id))
		if err != nil {
			return err
		}
		for i, f := range files {
			data, err := json.Marshal(f)
			if err != nil {
				return fmt.Errorf("failed to marshal file record: %w", err)
			}
			if err := fileBucket.Put(itob(uint64(i)), data); err != nil {
				return err
			}
		}

		return putState(tx, StateIdle, fmt.Sprintf("run %d recorded", id))
	})
	if err != nil {
		return 0, err
	}

	m.unfinished = nil
	m.logger.Debug("run recorded", zap.Uint64("id", run.ID), zap.Int("files", len(files)))
	return run.ID, nil
}

// RecentRuns returns up to limit runs, newest first. limit <= 0 returns all.
func (m *Manager) RecentRuns(limit int) ([]RunRecord, error) {
	var runs []RunRecord
	err := m.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(runsBucket)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(runs) >= limit {
				break
			}
			var run RunRecord
			if err := json.Unmarshal(v, &run); err != nil {
				m.logger.Warn("skipping unreadable run record", zap.Uint64("id", btoi(k)), zap.Error(err))
				continue
			}
			runs = append(runs, run)
		}
		return nil
	})
	return runs, err
}

// RunFiles returns the file records of run id in completion order.
func (m *Manager) RunFiles(id uint64) ([]FileRecord, error) {
	var files []FileRecord
	err := m.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(resultsBucket)).Bucket(itob(id))
		if bucket == nil {
			return fmt.Errorf("%w: %d", ErrRunNotFound, id)
		}
		return bucket.ForEach(func(_, v []byte) error {
			var f FileRecord
			if err := json.Unmarshal(v, &f); err != nil {
				return err
			}
			files = append(files, f)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Path returns the database file.
func (m *Manager) Path() string { return m.dbPath }

// Close closes the database.
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func btoi(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
