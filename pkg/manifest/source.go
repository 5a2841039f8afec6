package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pistonlauncher/pkg/utils"
)

// Source resolves the release to operate on, manifest tree included
type Source interface {
	Resolve(ctx context.Context) (*Release, error)
}

// DocumentFetcher retrieves a small JSON document into memory
type DocumentFetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// RemoteSource follows the version index to the current manifest
type RemoteSource struct {
	Fetcher  DocumentFetcher
	IndexURL string
	Product  string
	Logger   *utils.Logger
}

// Resolve fetches the index, then the manifest it points at
func (s *RemoteSource) Resolve(ctx context.Context) (*Release, error) {
	if s.IndexURL == "" {
		return nil, fmt.Errorf("no version index URL configured")
	}

	s.Logger.Debug("Fetching version index: %s", s.IndexURL)
	data, err := s.Fetcher.FetchBytes(ctx, s.IndexURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch version index: %w", err)
	}

	release, err := ParseIndex(data, s.Product)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("Latest %s release: %s", release.Product, release.Version)

	s.Logger.Debug("Fetching manifest: %s", release.ManifestURL)
	data, err = s.Fetcher.FetchBytes(ctx, release.ManifestURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch manifest: %w", err)
	}

	root, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	release.Root = root
	return release, nil
}

// FileSource reads a manifest from disk. Version defaults to the file name
// without extension.
type FileSource struct {
	Path    string
	Version string
	Product string
}

func (s *FileSource) Resolve(ctx context.Context) (*Release, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", s.Path, err)
	}

	root, err := Parse(data)
	if err != nil {
		return nil, err
	}

	version := s.Version
	if version == "" {
		base := filepath.Base(s.Path)
		version = strings.TrimSuffix(base, filepath.Ext(base))
	}

	return &Release{
		Product:     s.Product,
		Version:     version,
		ManifestURL: "file://" + filepath.ToSlash(s.Path),
		Root:        root,
	}, nil
}

// StaticSource returns a fixed release, or Err when set
type StaticSource struct {
	Release *Release
	Err     error
}

func (s StaticSource) Resolve(ctx context.Context) (*Release, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Release, nil
}
