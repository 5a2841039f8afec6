package download

import "context"

// Fetcher streams a URL to a local file, overwriting it. It returns the
// number of bytes written.
//
//go:generate mockgen -package=mock_download -source=interfaces.go -destination=mock/interfaces.go
type Fetcher interface {
	Fetch(ctx context.Context, url, dest string) (int64, error)
}
