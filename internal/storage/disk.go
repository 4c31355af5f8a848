package storage

import (
	"io/fs"
	"os"
	"path/filepath"
)

// Usage is the on-disk size of the store and its indices.
type Usage struct {
	Total int64            `json:"total_bytes"`
	Paths map[string]int64 `json:"paths"`
}

// DiskUsage sums the size of each path; directories are walked. Missing paths
// count as 0 and empty paths are skipped.
func DiskUsage(paths ...string) (*Usage, error) {
	u := &Usage{Paths: make(map[string]int64, len(paths))}
	for _, p := range paths {
		if p == "" {
			continue
		}
		n, err := pathSize(p)
		if err != nil {
			return nil, err
		}
		u.Paths[p] = n
		u.Total += n
	}
	return u, nil
}

func pathSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}
	var total int64
	err = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		total += fi.Size()
		return nil
	})
	return total, err
}
