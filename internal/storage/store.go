// Package storage persists runs on disk. Each run gets a directory named by
// a UUID holding metadata.json, trajectory.csv and, for training runs,
// policy.json and training.json. A SQLite catalog indexes the runs for
// listing and lookup.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/san-kum/trajlab/internal/dynamo"
	"github.com/san-kum/trajlab/internal/rollout"
)

var ErrNotFound = errors.New("storage: run not found")

type Kind string

const (
	KindScene Kind = "scene"
	KindTrain Kind = "train"
	KindWalk  Kind = "walk"
)

const (
	metadataFile   = "metadata.json"
	trajectoryFile = "trajectory.csv"
	policyFile     = "policy.json"
	trainingFile   = "training.json"
	catalogFile    = "catalog.db"
)

type RunMetadata struct {
	ID         string             `json:"id"`
	Kind       Kind               `json:"kind"`
	Name       string             `json:"name"`
	Scene      string             `json:"scene"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       uint64             `json:"seed"`
	Dt         float64            `json:"dt"`
	Steps      int                `json:"steps"`
	Integrator string             `json:"integrator"`
	Output     string             `json:"output,omitempty"`
	Policy     string             `json:"policy,omitempty"`
	Metrics    map[string]float64 `json:"metrics"`
}

type Store struct {
	baseDir string
	db      *sql.DB
}

// Open creates baseDir if needed and opens its run catalog.
func Open(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", dynamo.ErrIO, err)
	}
	db, err := openCatalog(filepath.Join(baseDir, catalogFile))
	if err != nil {
		return nil, fmt.Errorf("%w: open catalog: %v", dynamo.ErrIO, err)
	}
	return &Store{baseDir: baseDir, db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Dir(runID string) string { return filepath.Join(s.baseDir, runID) }

// SaveRun assigns meta a new ID, writes its files and records it in the
// catalog. traj may be nil for runs without a trajectory.
func (s *Store) SaveRun(ctx context.Context, meta RunMetadata, traj *rollout.Trajectory) (string, error) {
	meta.ID = uuid.NewString()
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now().UTC()
	}
	if meta.Metrics == nil {
		meta.Metrics = map[string]float64{}
	}

	runDir := s.Dir(meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", fmt.Errorf("%w: %v", dynamo.ErrIO, err)
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if traj != nil {
		if err := writeTrajectory(filepath.Join(runDir, trajectoryFile), traj); err != nil {
			return "", err
		}
	}
	if err := s.index(ctx, meta); err != nil {
		return "", err
	}

	logrus.WithFields(logrus.Fields{
		"run":  meta.ID,
		"kind": meta.Kind,
		"name": meta.Name,
	}).Info("storage: saved run")
	return meta.ID, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	var meta RunMetadata
	if err := readJSON(filepath.Join(s.Dir(runID), metadataFile), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadTrajectory(runID string) (*rollout.Trajectory, error) {
	return readTrajectory(filepath.Join(s.Dir(runID), trajectoryFile))
}

// Rebuild scans the run directories and re-indexes every readable
// metadata file. It returns the number of runs indexed.
func (s *Store) Rebuild(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", dynamo.ErrIO, err)
	}

	n := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			logrus.WithField("dir", entry.Name()).Debug("storage: skipping directory without metadata")
			continue
		}
		if err := s.index(ctx, *meta); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", dynamo.ErrIO, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("%w: encode %s: %v", dynamo.ErrIO, filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %v", dynamo.ErrIO, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("%w: %v", dynamo.ErrIO, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", dynamo.ErrParse, path, err)
	}
	return nil
}
