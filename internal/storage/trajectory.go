package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/san-kum/trajlab/internal/dynamo"
	"github.com/san-kum/trajlab/internal/rollout"
)

// writeTrajectory stores one row per frame: time, reward, done, then the
// q, qd and action columns. Floats use the shortest exact representation,
// so a stored trajectory replays bit for bit.
func writeTrajectory(path string, traj *rollout.Trajectory) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", dynamo.ErrIO, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if traj.Len() == 0 {
		w.Flush()
		return w.Error()
	}

	first := traj.Frame(0)
	header := []string{"time", "reward", "done"}
	for i := range first.Q {
		header = append(header, fmt.Sprintf("q%d", i))
	}
	for i := range first.QD {
		header = append(header, fmt.Sprintf("qd%d", i))
	}
	for i := range first.Action {
		header = append(header, fmt.Sprintf("u%d", i))
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("%w: %v", dynamo.ErrIO, err)
	}

	format := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for i := 0; i < traj.Len(); i++ {
		fr := traj.Frame(i)
		if len(fr.Q) != len(first.Q) || len(fr.QD) != len(first.QD) || len(fr.Action) != len(first.Action) {
			return dynamo.Configf("frame %d layout differs from frame 0", i)
		}
		done := "0"
		if fr.Done {
			done = "1"
		}
		row := []string{format(fr.Time), format(fr.Reward), done}
		for _, v := range fr.Q {
			row = append(row, format(v))
		}
		for _, v := range fr.QD {
			row = append(row, format(v))
		}
		for _, v := range fr.Action {
			row = append(row, format(v))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("%w: %v", dynamo.ErrIO, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: %v", dynamo.ErrIO, err)
	}
	return f.Close()
}

func readTrajectory(path string) (*rollout.Trajectory, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", dynamo.ErrIO, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", dynamo.ErrParse, path, err)
	}
	if len(records) < 2 {
		return rollout.NewTrajectory(0), nil
	}

	var nq, nqd, nu int
	for _, col := range records[0][3:] {
		switch {
		case strings.HasPrefix(col, "qd"):
			nqd++
		case strings.HasPrefix(col, "q"):
			nq++
		case strings.HasPrefix(col, "u"):
			nu++
		}
	}

	traj := rollout.NewTrajectory(len(records) - 1)
	for i, record := range records[1:] {
		vals := make([]float64, len(record))
		for j, field := range record {
			if j == 2 {
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s row %d column %d: %v", dynamo.ErrParse, path, i+1, j, err)
			}
			vals[j] = v
		}
		off := 3
		traj.Append(rollout.Frame{
			Time:   vals[0],
			Reward: vals[1],
			Done:   record[2] == "1",
			Q:      vals[off : off+nq : off+nq],
			QD:     vals[off+nq : off+nq+nqd : off+nq+nqd],
			Action: vals[off+nq+nqd : off+nq+nqd+nu : off+nq+nqd+nu],
		})
	}
	return traj, nil
}
