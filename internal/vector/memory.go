package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hyperjump/cohort/internal/models"
)

const indexMagic = "CHVX"

// MemoryIndex is an in-memory brute-force cosine index. Vectors are stored
// normalized, so a dot product is the cosine similarity.
type MemoryIndex struct {
	schemaVersion string
	dimensions    int
	ids           []string
	pos           map[string]int
	vectors       [][]float32
	mu            sync.RWMutex
}

// NewMemoryIndex creates an index for vectors of one schema version and length.
func NewMemoryIndex(schemaVersion string, dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		schemaVersion: schemaVersion,
		dimensions:    dimensions,
		pos:           make(map[string]int),
	}, nil
}

func (m *MemoryIndex) check(v models.FeatureVector) error {
	if v.SchemaVersion != m.schemaVersion {
		return fmt.Errorf("vector version %q, index holds %q: %w", v.SchemaVersion, m.schemaVersion, models.ErrSchemaMismatch)
	}
	if v.Len() != m.dimensions {
		return fmt.Errorf("vector length %d, index expects %d: %w", v.Len(), m.dimensions, models.ErrShapeMismatch)
	}
	return nil
}

// Add inserts vectors, replacing any existing entry with the same ID.
func (m *MemoryIndex) Add(ctx context.Context, ids []string, vectors []models.FeatureVector) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	for _, v := range vectors {
		if err := m.check(v); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, id := range ids {
		vec := normalize(vectors[i].Values)
		if p, ok := m.pos[id]; ok {
			m.vectors[p] = vec
			continue
		}
		m.pos[id] = len(m.ids)
		m.ids = append(m.ids, id)
		m.vectors = append(m.vectors, vec)
	}
	return nil
}

// Search returns the k most similar vectors, best first. Equal scores are ordered by ID.
func (m *MemoryIndex) Search(ctx context.Context, query models.FeatureVector, k int) ([]*Result, error) {
	if err := m.check(query); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.ids) == 0 {
		return nil, nil
	}
	q := normalize(query.Values)
	scores := make([]*Result, len(m.ids))
	for i, vec := range m.vectors {
		var dot float64
		for j := range q {
			dot += float64(q[j]) * float64(vec[j])
		}
		scores[i] = &Result{ID: m.ids[i], Score: math.Max(-1, math.Min(1, dot))}
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].ID < scores[j].ID
	})
	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k], nil
}

// Remove deletes vectors by ID. Unknown IDs are ignored.
func (m *MemoryIndex) Remove(ctx context.Context, ids []string) error {
	removeSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		removeSet[id] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	newIDs := make([]string, 0, len(m.ids))
	newVectors := make([][]float32, 0, len(m.vectors))
	for i, id := range m.ids {
		if !removeSet[id] {
			newIDs = append(newIDs, id)
			newVectors = append(newVectors, m.vectors[i])
		}
	}
	m.ids = newIDs
	m.vectors = newVectors
	m.pos = make(map[string]int, len(newIDs))
	for i, id := range newIDs {
		m.pos[id] = i
	}
	return nil
}

// Save persists the index to path, creating the directory if needed. Format:
// magic (4), versionLen (4), version, dimension (4), n (4), then per vector:
// idLen (4), id bytes, vector (dimension*4 bytes).
func (m *MemoryIndex) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.WriteString(indexMagic); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := writeString(w, m.schemaVersion); err != nil {
		return fmt.Errorf("write schema version: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(m.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(m.ids))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, id := range m.ids {
		if err := writeString(w, id); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if _, err := w.Write(float32SliceToBytes(m.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return w.Flush()
}

// Load replaces the index contents with the file at path. Schema version and
// dimension must match. A missing file leaves the index unchanged.
func (m *MemoryIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	magic := make([]byte, len(indexMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != indexMagic {
		return fmt.Errorf("not a vector index file: %s", path)
	}
	version, err := readString(r)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != m.schemaVersion {
		return fmt.Errorf("index file has version %q, want %q: %w", version, m.schemaVersion, models.ErrSchemaMismatch)
	}
	var dim, n uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != m.dimensions {
		return fmt.Errorf("dimension mismatch: file has %d, index expects %d", dim, m.dimensions)
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}

	ids := make([]string, 0, n)
	vectors := make([][]float32, 0, n)
	buf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < n; i++ {
		id, err := readString(r)
		if err != nil {
			return fmt.Errorf("read id: %w", err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		ids = append(ids, id)
		vectors = append(vectors, bytesToFloat32Slice(buf))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = ids
	m.vectors = vectors
	m.pos = make(map[string]int, len(ids))
	for i, id := range ids {
		m.pos[id] = i
	}
	return nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}

// Has reports whether id is indexed.
func (m *MemoryIndex) Has(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.pos[id]
	return ok
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
