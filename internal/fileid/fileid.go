// Package fileid derives stable profile IDs for records imported from files
// that carry no ID of their own.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
)

const prefix = "file:"

// Source returns the canonical source key of a path. Callers pass absolute paths.
func Source(path string) string {
	return filepath.Clean(path)
}

// RowID returns the ID of the record at position row (0-based) of the file at
// path. The same path and row always yield the same ID.
func RowID(path string, row int) string {
	hash := sha256.Sum256([]byte(Source(path)))
	return fmt.Sprintf("%s%s#%d", prefix, hex.EncodeToString(hash[:8]), row)
}
