package embedding

import (
	"encoding/gob"
	"fmt"
	"io"
	"slices"
)

// Snapshot stream layout: a 6-byte header (magic, format version,
// compression codec) followed by a gob-encoded snapshot wrapped in the named
// codec. Snapshots cover the embedding store only; the graph index has no
// durability surface and is rebuilt by reinserting current versions.

var snapshotMagic = [4]byte{'G', 'Y', 'R', 'O'}

const snapshotFormatVersion = 1

// snapshotEntity mirrors entity for gob encoding.
type snapshotEntity struct {
	Versions map[string][]float64
	Order    []string
	Current  string
}

type snapshot struct {
	Entities map[string]snapshotEntity
}

// SnapshotOptions configures WriteSnapshot.
type SnapshotOptions struct {
	Compression Compression
}

// WriteSnapshot serializes the full store to w. The default codec is S2.
func (m *Manager) WriteSnapshot(w io.Writer, optFns ...func(o *SnapshotOptions)) error {
	opts := SnapshotOptions{Compression: CompressionS2}
	for _, fn := range optFns {
		fn(&opts)
	}

	header := make([]byte, 0, 6)
	header = append(header, snapshotMagic[:]...)
	header = append(header, snapshotFormatVersion, byte(opts.Compression))

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write snapshot header: %w", err)
	}

	cw, err := compressionWriter(opts.Compression, w)
	if err != nil {
		return err
	}

	// The encode runs outside the lock, so the snapshot must not alias the
	// live maps; concurrent Stores mutate them.
	m.mu.RLock()
	snap := snapshot{Entities: make(map[string]snapshotEntity, len(m.entities))}
	for id, e := range m.entities {
		versions := make(map[string][]float64, len(e.versions))
		for version, vec := range e.versions {
			versions[version] = slices.Clone(vec)
		}

		snap.Entities[id] = snapshotEntity{
			Versions: versions,
			Order:    slices.Clone(e.order),
			Current:  e.current,
		}
	}
	m.mu.RUnlock()

	if err := gob.NewEncoder(cw).Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	return cw.Close()
}

// ReadSnapshot builds a Manager from a stream produced by WriteSnapshot.
func ReadSnapshot(r io.Reader) (*Manager, error) {
	header := make([]byte, 6)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("read snapshot header: %w", err)
	}

	if [4]byte(header[:4]) != snapshotMagic {
		return nil, fmt.Errorf("bad snapshot magic %q", header[:4])
	}

	if header[4] != snapshotFormatVersion {
		return nil, fmt.Errorf("unsupported snapshot format version %d", header[4])
	}

	cr, err := compressionReader(Compression(header[5]), r)
	if err != nil {
		return nil, err
	}

	var snap snapshot
	if err := gob.NewDecoder(cr).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	m := NewManager()
	for id, se := range snap.Entities {
		m.entities[id] = &entity{
			versions: se.Versions,
			order:    se.Order,
			current:  se.Current,
		}
	}

	return m, nil
}
