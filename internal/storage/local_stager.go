package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStager implements Stager over the local filesystem for file:// and
// bare-path destinations.
type LocalStager struct{}

var _ Stager = (*LocalStager)(nil)

func NewLocalStager() *LocalStager {
	return &LocalStager{}
}

func (s *LocalStager) UploadFile(ctx context.Context, localPath, destURI string) (string, error) {
	dest, ok := LocalPath(destURI)
	if !ok {
		return "", fmt.Errorf("destination %s is not a local path", destURI)
	}

	if err := copyFile(localPath, dest); err != nil {
		return "", err
	}
	return "file://" + dest, nil
}

func (s *LocalStager) UploadDir(ctx context.Context, localDir, destPrefix string) (string, error) {
	dest, ok := LocalPath(destPrefix)
	if !ok {
		return "", fmt.Errorf("destination %s is not a local path", destPrefix)
	}

	err := filepath.Walk(localDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("failed to walk directory %s: %w", localDir, err)
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return fmt.Errorf("failed to resolve %s relative to %s: %w", p, localDir, err)
		}
		return copyFile(p, filepath.Join(dest, rel))
	})
	if err != nil {
		return "", fmt.Errorf("error copying directory %s to %s: %w", localDir, dest, err)
	}

	return "file://" + dest, nil
}

func (s *LocalStager) Download(ctx context.Context, srcURI, localPath string) error {
	src, ok := LocalPath(srcURI)
	if !ok {
		return fmt.Errorf("source %s is not a local path", srcURI)
	}
	return copyFile(src, localPath)
}

func (s *LocalStager) List(ctx context.Context, prefixURI string) ([]string, error) {
	dir, ok := LocalPath(prefixURI)
	if !ok {
		return nil, fmt.Errorf("prefix %s is not a local path", prefixURI)
	}

	var uris []string
	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			uris = append(uris, "file://"+p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	return uris, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dest, err)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, dest, err)
	}
	return nil
}
