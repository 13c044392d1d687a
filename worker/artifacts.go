package worker

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CollectFiles copies each of files into dir, preserving the base name,
// so the artifacts directory is self-contained once the test finishes
// (original_source's core.collect_file, used for the resolved config and
// ammo files — a supplemented feature not named by spec.md's distillation
// but present throughout original_source).
func CollectFiles(dir string, files ...string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifacts dir: %w", err)
	}
	for _, src := range files {
		if src == "" {
			continue
		}
		if err := copyFile(src, filepath.Join(dir, filepath.Base(src))); err != nil {
			return fmt.Errorf("collect %s: %w", src, err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// Chdir changes the process working directory to dir, returning a restore
// func that returns to the previous directory (original_source chdir's into
// the artifacts folder for the duration of the run so relative paths in
// plugin configs resolve there).
func Chdir(dir string) (restore func() error, err error) {
	prev, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if err := os.Chdir(dir); err != nil {
		return nil, fmt.Errorf("chdir %s: %w", dir, err)
	}
	return func() error {
		return os.Chdir(prev)
	}, nil
}
