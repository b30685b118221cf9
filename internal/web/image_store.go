package web

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

var errUnsupportedImage = errors.New("unsupported image format")

// FileSystemImageStore keeps uploads as flat files under Root. The compositor
// resolves them through a FileFetcher rooted at the same directory.
type FileSystemImageStore struct {
	Root string
}

func (s FileSystemImageStore) ListImages(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// UploadImage streams body to a temporary file, checks that it decodes as an
// image and moves it into place.
func (s FileSystemImageStore) UploadImage(ctx context.Context, name string, body io.Reader, contentLength int64) (string, error) {
	name = sanitizeFilename(name)
	tmpPath := filepath.Join(s.Root, ".upload-"+strconv.FormatInt(time.Now().UnixNano(), 10)+"-"+name)
	if err := writeStreamToFile(tmpPath, body, contentLength); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
	defer func() { _ = os.Remove(tmpPath) }()

	if err := checkImage(tmpPath); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.Rename(tmpPath, filepath.Join(s.Root, name)); err != nil {
		return "", err
	}
	return name, nil
}

func (s FileSystemImageStore) DeleteImage(ctx context.Context, name string) error {
	return os.Remove(filepath.Join(s.Root, sanitizeFilename(name)))
}

func checkImage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if _, _, err := image.DecodeConfig(f); err != nil {
		return fmt.Errorf("%w: %v", errUnsupportedImage, err)
	}
	return nil
}

func writeStreamToFile(targetPath string, src io.Reader, expectedBytes int64) error {
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(targetPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	// Never read beyond what the client declared.
	written, err := io.Copy(f, io.LimitReader(src, expectedBytes))
	if err != nil {
		return err
	}
	if written != expectedBytes {
		return &apiLengthError{Written: written, Expected: expectedBytes}
	}
	return nil
}

type apiLengthError struct {
	Written  int64
	Expected int64
}

func (e *apiLengthError) Error() string {
	return "unexpected request body length (written=" + strconv.FormatInt(e.Written, 10) + ", expected=" + strconv.FormatInt(e.Expected, 10) + ")"
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return "upload"
	}
	return name
}
