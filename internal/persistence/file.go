package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"transit-route-service/internal/platform/obs"
)

// Save writes the snapshot to path. The file is replaced atomically so a
// concurrent Load never sees a half-written snapshot.
func Save(ctx context.Context, path string, s *Snapshot) (err error) {
	defer obs.Time(ctx, "persistence.Save")(&err)

	data, err := Encode(s)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("save snapshot: write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save snapshot: close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	return nil
}

// Load reads and decodes the snapshot stored at path.
func Load(ctx context.Context, path string) (s *Snapshot, err error) {
	defer obs.Time(ctx, "persistence.Load")(&err)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	return Decode(data)
}
