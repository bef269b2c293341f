// Package jsonfile reads and writes whole JSON documents on disk. Every write
// replaces the target in one rename so a reader never sees a half-written
// file, and the previous version can be kept as a ".bak" copy.
package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// BackupSuffix is appended to a file name to form its backup copy.
const BackupSuffix = ".bak"

// ErrNotExist is returned by Load when the file is absent.
var ErrNotExist = errors.New("file does not exist")

// Load decodes the JSON file at path into v. A missing file yields
// ErrNotExist.
func Load(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotExist
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return nil
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Options controls how Save writes a file.
type Options struct {
	// Backup copies the existing file to path+".bak" before replacing it.
	Backup bool
	// Exclusive refuses to replace an existing file.
	Exclusive bool
}

// Save encodes v as indented JSON and replaces the file at path.
func Save(path string, v any, opts Options) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if opts.Exclusive && Exists(path) {
		return fmt.Errorf("refusing to overwrite %s: %w", path, os.ErrExist)
	}

	if opts.Backup && Exists(path) {
		if err := copyFile(path, path+BackupSuffix); err != nil {
			return fmt.Errorf("failed to back up %s: %w", path, err)
		}
		log.Printf("INFO: Created backup of existing file: %s%s", path, BackupSuffix)
	}

	// Write to a sibling temp file, then rename over the target
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
