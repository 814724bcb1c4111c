package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// DiskStorage implements Storage with one file per key at the root of a filesystem
type DiskStorage struct {
	fs afero.Fs
}

// NewDisk creates a storage rooted at the top of fsys
func NewDisk(fsys afero.Fs) *DiskStorage {
	return &DiskStorage{fs: fsys}
}

// NewDiskDir creates the directory if needed and returns a storage rooted in it
func NewDiskDir(dir string) (*DiskStorage, error) {
	if dir == "" {
		return nil, errors.New("cache folder is required")
	}
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return NewDisk(afero.NewBasePathFs(osFs, dir)), nil
}

// Get reads the entry stored under key
func (d *DiskStorage) Get(key string) ([]byte, bool) {
	if !validKey(key) {
		return nil, false
	}

	data, err := afero.ReadFile(d.fs, key)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logrus.Warnf("Failed to read cache entry %s: %v", key, err)
		}
		return nil, false
	}
	return data, true
}

// Exists reports whether a regular file is stored under key
func (d *DiskStorage) Exists(key string) bool {
	if !validKey(key) {
		return false
	}
	info, err := d.fs.Stat(key)
	return err == nil && info.Mode().IsRegular()
}

// Set writes the entry through a temporary file so readers never see a partial body.
// A nil value deletes the entry; an empty non-nil value is stored as an empty entry.
func (d *DiskStorage) Set(key string, value []byte) {
	if !validKey(key) {
		logrus.Warnf("Refusing to store cache entry under invalid key %q", key)
		return
	}
	if value == nil {
		d.Delete(key)
		return
	}
	if err := d.write(key, value); err != nil {
		logrus.Warnf("Failed to write cache entry %s: %v", key, err)
		return
	}
	logrus.Debugf("Stored cache entry: %s (%d bytes)", key, len(value))
}

func (d *DiskStorage) write(key string, value []byte) error {
	tmp, err := afero.TempFile(d.fs, ".", "."+key+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(value)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = d.fs.Remove(tmpName)
		return err
	}

	if err := d.fs.Chmod(tmpName, 0o644); err != nil {
		_ = d.fs.Remove(tmpName)
		return err
	}
	if err := d.fs.Rename(tmpName, key); err != nil {
		_ = d.fs.Remove(tmpName)
		return err
	}
	return nil
}

// Delete removes the entry stored under key
func (d *DiskStorage) Delete(key string) {
	if !validKey(key) {
		return
	}
	if err := d.fs.Remove(key); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.Warnf("Failed to delete cache entry %s: %v", key, err)
	}
}

// Clear removes everything under the storage root. A failing entry does not stop the others.
func (d *DiskStorage) Clear() {
	entries, err := afero.ReadDir(d.fs, ".")
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logrus.Warnf("Failed to list cache entries: %v", err)
		}
		return
	}

	removed := 0
	for _, entry := range entries {
		if err := d.fs.RemoveAll(entry.Name()); err != nil {
			logrus.Warnf("Failed to remove cache entry %s: %v", entry.Name(), err)
			continue
		}
		removed++
	}
	logrus.Debugf("Cleared %d cache entries", removed)
}

// keys are file names, never paths
func validKey(key string) bool {
	if key == "" || key == "." || key == ".." {
		return false
	}
	return !strings.ContainsAny(key, `/\`)
}
