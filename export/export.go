// Package export writes diagnostic CSV dumps of instance datasets.
// These are inspection artifacts, not a persistence format; the host
// owns persistence.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/scatter/config"
	"github.com/pthm-cable/scatter/instance"
)

// PointRecord is one alive point flattened for CSV output.
type PointRecord struct {
	ID          int64   `csv:"id"`
	PosX        float64 `csv:"pos_x"`
	PosY        float64 `csv:"pos_y"`
	PosZ        float64 `csv:"pos_z"`
	RotX        float64 `csv:"rot_x"`
	RotY        float64 `csv:"rot_y"`
	RotZ        float64 `csv:"rot_z"`
	ScaleX      float64 `csv:"scale_x"`
	ScaleY      float64 `csv:"scale_y"`
	ScaleZ      float64 `csv:"scale_z"`
	ObjectIndex int32   `csv:"object_index"`
}

// Writer manages an output directory for dataset dumps.
// A nil Writer is valid and discards all output.
type Writer struct {
	dir string
}

// NewWriter creates the output directory. Returns nil if dir is empty
// (export disabled).
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// WritePoints snapshots the alive points of a dataset to points.csv,
// replacing any previous dump.
func (w *Writer) WritePoints(ds *instance.Dataset) error {
	if w == nil {
		return nil
	}

	records := make([]PointRecord, 0, ds.AliveCount())
	ds.ForEach(func(p instance.Point) {
		if !p.Alive {
			return
		}
		records = append(records, PointRecord{
			ID:          p.ID,
			PosX:        p.Position.X,
			PosY:        p.Position.Y,
			PosZ:        p.Position.Z,
			RotX:        p.Rotation.X,
			RotY:        p.Rotation.Y,
			RotZ:        p.Rotation.Z,
			ScaleX:      p.Scale.X,
			ScaleY:      p.Scale.Y,
			ScaleZ:      p.Scale.Z,
			ObjectIndex: p.ObjectIndex,
		})
	})

	f, err := os.Create(filepath.Join(w.dir, "points.csv"))
	if err != nil {
		return fmt.Errorf("creating points.csv: %w", err)
	}
	defer f.Close()

	if err := gocsv.Marshal(records, f); err != nil {
		return fmt.Errorf("writing points.csv: %w", err)
	}
	return nil
}

// WriteConfig saves the active configuration next to the dumps.
func (w *Writer) WriteConfig(cfg *config.Config) error {
	if w == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(w.dir, "config.yaml"))
}
