package engine

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/seqbench/seqbench/internal/results"
)

// Checkpoint is the persisted progress of a sweep. Completed rows are
// keyed by experiment id so a resumed run can skip them.
type Checkpoint struct {
	ConfigName string                        `json:"config_name"`
	SavedAt    time.Time                     `json:"saved_at"`
	Completed  map[string]results.Experiment `json:"completed"`
}

// LoadCheckpoint reads a checkpoint file. A missing file is not an
// error, resuming from nothing is a fresh run.
func LoadCheckpoint(path string) (Checkpoint, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Checkpoint{Completed: map[string]results.Experiment{}}, nil
	}
	if err != nil {
		return Checkpoint{}, errors.Wrapf(err, "read checkpoint %s", path)
	}

	var cp Checkpoint
	if err := json.Unmarshal(raw, &cp); err != nil {
		return Checkpoint{}, errors.Wrapf(err, "parse checkpoint %s", path)
	}
	if cp.Completed == nil {
		cp.Completed = map[string]results.Experiment{}
	}

	return cp, nil
}

// saveCheckpoint persists progress once every checkpoint-interval
// completions, or unconditionally when force is set. The write goes
// through a temp file and a rename so a crash mid-write cannot corrupt
// the previous checkpoint.
func (e *Engine) saveCheckpoint(path string, force bool) error {
	e.mu.Lock()
	e.sinceCheckpoint++
	if interval := e.cfg.Execution.CheckpointInterval; !force && interval > 0 && e.sinceCheckpoint < interval {
		e.mu.Unlock()

		return nil
	}
	e.sinceCheckpoint = 0
	cp := Checkpoint{
		ConfigName: e.cfg.Metadata.Name,
		SavedAt:    time.Now().UTC(),
		Completed:  make(map[string]results.Experiment, len(e.completed)),
	}
	for id, row := range e.completed {
		cp.Completed[id] = row
	}
	e.mu.Unlock()

	started := time.Now()
	if err := writeCheckpoint(path, cp); err != nil {
		return err
	}
	e.metrics.persist.add(time.Since(started))

	return nil
}

func writeCheckpoint(path string, cp Checkpoint) error {
	raw, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal checkpoint")
	}

	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return errors.Wrapf(err, "write checkpoint %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, "replace checkpoint %s", path)
	}

	return nil
}
