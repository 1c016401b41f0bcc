package onnx

import (
	"fmt"
	"os"

	"github.com/MeKo-Tech/modelcheck/internal/lfs"
)

// Load reads and decodes the model file at path.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}
	if lfs.IsPointer(data) {
		if p, perr := lfs.ParsePointer(data); perr == nil {
			return nil, fmt.Errorf("%w: %s (oid %s, %d bytes)", ErrLFSPointer, path, p.OID, p.Size)
		}
		return nil, fmt.Errorf("%w: %s", ErrLFSPointer, path)
	}
	m, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return m, nil
}

// Save serializes m to path.
func Save(path string, m *Model) error {
	if err := os.WriteFile(path, Marshal(m), 0o600); err != nil {
		return fmt.Errorf("failed to write model %s: %w", path, err)
	}
	return nil
}
