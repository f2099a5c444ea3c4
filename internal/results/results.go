// Package results persists finished experiments as JSON and CSV.
package results

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/seqbench/seqbench/pkg/bench"
	"github.com/seqbench/seqbench/pkg/ops"
	"github.com/seqbench/seqbench/pkg/seq"
)

// Experiment is one finished (or failed) operation/backend/scale
// measurement.
type Experiment struct {
	ID        string      `json:"id"`
	Operation string      `json:"operation"`
	Backend   ops.Backend `json:"backend"`
	Scale     seq.Scale   `json:"scale"`

	NumSequences int `json:"num_sequences"`
	TotalBases   int `json:"total_bases"`

	MeanNs   int64 `json:"mean_ns"`
	MedianNs int64 `json:"median_ns"`
	MinNs    int64 `json:"min_ns"`
	MaxNs    int64 `json:"max_ns"`
	StdDevNs int64 `json:"stddev_ns"`

	SequencesPerSecond float64 `json:"sequences_per_second"`
	MBPerSecond        float64 `json:"mb_per_second"`

	// Speedup is relative to the scalar backend at the same scale, 1
	// for the baseline itself, 0 when no baseline finished.
	Speedup  float64 `json:"speedup"`
	Verified bool    `json:"verified"`
	Status   string  `json:"status"`
	Error    string  `json:"error,omitempty"`
}

// FromMeasurement converts a bench result into a result row.
func FromMeasurement(id string, m bench.Result) Experiment {
	return Experiment{
		ID:                 id,
		Operation:          m.Operation,
		Backend:            m.Backend,
		Scale:              m.Scale,
		NumSequences:       m.NumSequences,
		TotalBases:         m.TotalBases,
		MeanNs:             m.Stats.Mean.Nanoseconds(),
		MedianNs:           m.Stats.Median.Nanoseconds(),
		MinNs:              m.Stats.Min.Nanoseconds(),
		MaxNs:              m.Stats.Max.Nanoseconds(),
		StdDevNs:           m.Stats.StdDev.Nanoseconds(),
		SequencesPerSecond: m.SequencesPerSecond,
		MBPerSecond:        m.MBPerSecond,
		Verified:           m.Verified,
		Status:             "completed",
	}
}

// Report wraps the rows with the run metadata that lands in the JSON
// output.
type Report struct {
	Name        string       `json:"name"`
	Version     string       `json:"version"`
	GeneratedAt time.Time    `json:"generated_at"`
	Experiments []Experiment `json:"experiments"`
}

// WriteJSON writes the report, indented so the file diffs cleanly
// between runs.
func WriteJSON(path string, report Report) error {
	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal results")
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		return errors.Wrapf(err, "write results %s", path)
	}

	return nil
}

// ReadJSON loads a report written by WriteJSON.
func ReadJSON(path string) (Report, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Report{}, errors.Wrapf(err, "read results %s", path)
	}
	var report Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return Report{}, errors.Wrapf(err, "parse results %s", path)
	}

	return report, nil
}

var csvHeader = []string{
	"id", "operation", "backend", "scale", "num_sequences", "total_bases",
	"mean_ns", "median_ns", "min_ns", "max_ns", "stddev_ns",
	"sequences_per_second", "mb_per_second", "speedup", "verified", "status", "error",
}

// WriteCSV writes one row per experiment, for spreadsheet analysis.
func WriteCSV(path string, experiments []Experiment) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, e := range experiments {
		row := []string{
			e.ID,
			e.Operation,
			string(e.Backend),
			string(e.Scale),
			strconv.Itoa(e.NumSequences),
			strconv.Itoa(e.TotalBases),
			strconv.FormatInt(e.MeanNs, 10),
			strconv.FormatInt(e.MedianNs, 10),
			strconv.FormatInt(e.MinNs, 10),
			strconv.FormatInt(e.MaxNs, 10),
			strconv.FormatInt(e.StdDevNs, 10),
			strconv.FormatFloat(e.SequencesPerSecond, 'f', 2, 64),
			strconv.FormatFloat(e.MBPerSecond, 'f', 2, 64),
			strconv.FormatFloat(e.Speedup, 'f', 3, 64),
			strconv.FormatBool(e.Verified),
			e.Status,
			e.Error,
		}
		if err := w.Write(row); err != nil {
			return errors.Wrapf(err, "write csv row %s", e.ID)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, "flush csv")
	}

	return errors.Wrapf(os.WriteFile(path, buf.Bytes(), 0o644), "write results %s", path)
}
