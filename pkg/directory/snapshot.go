package directory

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/microwavekid/mentionserve/pkg/mention"
)

// SnapshotVersion is the current on-disk format version for entity
// snapshot files (entities_*.bin).
const SnapshotVersion = 1

type snapshotEntity struct {
	ID         string            `msgpack:"id"`
	Type       string            `msgpack:"t"`
	Name       string            `msgpack:"n"`
	Confidence float64           `msgpack:"c"`
	Attributes map[string]string `msgpack:"a,omitempty"`
}

// Snapshot is the msgpack payload of one entity snapshot file.
type Snapshot struct {
	Version  int              `msgpack:"v"`
	Entities []snapshotEntity `msgpack:"e"`
}

// LoadSnapshot reads one snapshot file into the directory and returns how
// many entities it added.
func (d *Directory) LoadSnapshot(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening snapshot %s: %w", path, err)
	}
	defer f.Close()

	var snap Snapshot
	if err := msgpack.NewDecoder(f).Decode(&snap); err != nil {
		return 0, fmt.Errorf("decoding snapshot %s: %w", path, err)
	}
	if snap.Version != SnapshotVersion {
		return 0, fmt.Errorf("snapshot %s: unsupported version %d", path, snap.Version)
	}

	loaded := 0
	for _, se := range snap.Entities {
		_, err := d.Add(mention.Entity{
			ID:         se.ID,
			Type:       mention.Category(se.Type),
			Name:       se.Name,
			Confidence: se.Confidence,
			Attributes: se.Attributes,
		})
		if err != nil {
			log.Warnf("Skipping entity in %s: %v", path, err)
			continue
		}
		loaded++
	}
	return loaded, nil
}

// LoadDir loads every entities_*.bin file found under dirPath, in filename
// order. Missing files are not an error; the caller decides whether an
// empty directory is acceptable.
func (d *Directory) LoadDir(dirPath string) (int, error) {
	pattern := filepath.Join(dirPath, "entities_*.bin")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return 0, fmt.Errorf("scanning for snapshot files: %w", err)
	}
	if len(files) == 0 {
		log.Warnf("No entity snapshots found in %s", dirPath)
		return 0, nil
	}
	sort.Strings(files)

	total := 0
	for _, file := range files {
		n, err := d.LoadSnapshot(file)
		if err != nil {
			log.Errorf("Failed to load %s: %v", file, err)
			continue
		}
		log.Debugf("Loaded %d entities from %s", n, file)
		total += n
	}
	return total, nil
}

// SaveSnapshot writes entities to path in the snapshot format.
func SaveSnapshot(path string, entities []mention.Entity) error {
	snap := Snapshot{Version: SnapshotVersion, Entities: make([]snapshotEntity, 0, len(entities))}
	for _, e := range entities {
		snap.Entities = append(snap.Entities, snapshotEntity{
			ID:         e.ID,
			Type:       string(e.Type),
			Name:       e.Name,
			Confidence: e.Confidence,
			Attributes: e.Attributes,
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot %s: %w", path, err)
	}
	defer f.Close()
	if err := msgpack.NewEncoder(f).Encode(&snap); err != nil {
		return fmt.Errorf("encoding snapshot %s: %w", path, err)
	}
	return nil
}
