package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// BackupSuffix is appended to a dataset path for its pre-rewrite copy
const BackupSuffix = ".backup"

// WriteOptions controls how a dataset file is replaced
type WriteOptions struct {
	// Backup copies the current file to <path>.backup before replacing it
	Backup bool
}

// WriteFileAtomic replaces path with data. See WriteAtomic.
func WriteFileAtomic(path string, data []byte, opts WriteOptions) error {
	return WriteAtomic(path, opts, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// WriteAtomic replaces path with whatever write produces. The new content
// goes to a temp file in the same directory and is renamed over path only
// after it is synced, so an interrupted run leaves either the old file or
// the new one. With Backup set, the old file is copied aside first. The
// whole sequence holds an exclusive lock on <path>.lock.
func WriteAtomic(path string, opts WriteOptions, write func(io.Writer) error) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock %s: %w", path, err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			slog.Warn("Failed to release dataset lock", "path", path, "error", err)
		}
	}()

	if opts.Backup {
		if err := backup(path); err != nil {
			return err
		}
	}

	return replace(path, write)
}

func backup(path string) error {
	src, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("No existing file to back up", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open %s for backup: %w", path, err)
	}
	defer src.Close()

	backupPath := path + BackupSuffix
	if err := replace(backupPath, func(w io.Writer) error {
		_, err := io.Copy(w, src)
		return err
	}); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	slog.Info("Wrote backup", "path", backupPath)
	return nil
}

func replace(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	committed = true
	return nil
}
