package interlace

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// Fetcher opens the bytes behind an image source identifier.
type Fetcher interface {
	Fetch(ctx context.Context, source string) (io.ReadCloser, error)
}

// FileFetcher reads sources as local paths. Root, when set, is prepended.
type FileFetcher struct {
	Root string
}

func (f FileFetcher) Fetch(ctx context.Context, source string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := strings.TrimPrefix(source, "file://")
	if f.Root != "" && !strings.HasPrefix(path, "/") {
		path = strings.TrimSuffix(f.Root, "/") + "/" + path
	}
	return os.Open(path)
}

// HTTPFetcher downloads http and https sources. Cross-origin sources are
// fetched like any other URL.
type HTTPFetcher struct {
	Client *http.Client
}

func (f HTTPFetcher) Fetch(ctx context.Context, source string) (io.ReadCloser, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %s", source, resp.Status)
	}
	return resp.Body, nil
}

// MuxFetcher routes http(s) sources to HTTP and everything else to Files.
type MuxFetcher struct {
	HTTP  Fetcher
	Files Fetcher
}

func NewMuxFetcher(client *http.Client, root string) MuxFetcher {
	return MuxFetcher{HTTP: HTTPFetcher{Client: client}, Files: FileFetcher{Root: root}}
}

func (m MuxFetcher) Fetch(ctx context.Context, source string) (io.ReadCloser, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		if m.HTTP == nil {
			return nil, fmt.Errorf("no http fetcher for %s", source)
		}
		return m.HTTP.Fetch(ctx, source)
	}
	if m.Files == nil {
		return nil, fmt.Errorf("no file fetcher for %s", source)
	}
	return m.Files.Fetch(ctx, source)
}
