package storage

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/san-kum/trajlab/internal/ppo"
)

// SavePolicy stores trained parameters with a run.
func (s *Store) SavePolicy(runID string, params *ppo.Params) error {
	if err := params.Validate(); err != nil {
		return err
	}
	return writeJSON(filepath.Join(s.Dir(runID), policyFile), params)
}

// LoadPolicy reads parameters from a run ID or from a path to a policy
// JSON file.
func (s *Store) LoadPolicy(ref string) (*ppo.Params, error) {
	path := filepath.Join(s.Dir(ref), policyFile)
	if strings.HasSuffix(ref, ".json") {
		if _, err := os.Stat(ref); err == nil {
			path = ref
		}
	}

	var params ppo.Params
	if err := readJSON(path, &params); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &params, nil
}

func (s *Store) SaveTraining(runID string, history []ppo.Metrics) error {
	return writeJSON(filepath.Join(s.Dir(runID), trainingFile), history)
}

func (s *Store) LoadTraining(runID string) ([]ppo.Metrics, error) {
	var history []ppo.Metrics
	if err := readJSON(filepath.Join(s.Dir(runID), trainingFile), &history); err != nil {
		return nil, err
	}
	return history, nil
}
