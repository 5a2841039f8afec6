package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/go-pistonlauncher/pkg/utils"
)

// DefaultUserAgent is sent with every request unless overridden
const DefaultUserAgent = "go-pistonlauncher/1.0"

// maxDocumentSize bounds FetchBytes, which is only used for JSON documents
const maxDocumentSize = 64 << 20

// copyBufferSize is the chunk used when streaming a response body to disk
const copyBufferSize = 32 << 10

// NetworkError reports a failed request or a non-success status code
type NetworkError struct {
	URL        string
	StatusCode int // 0 when the request never produced a response
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download of %s failed with status: %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("failed to download %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Client handles HTTP downloads
type Client struct {
	httpClient       *http.Client
	logger           *utils.Logger
	authUser         string
	authPassword     string
	customHeaders    map[string]string
	userAgent        string
	defaultRetries   int
	defaultRetryWait int // seconds
	followRedirects  bool
	keepFailedFiles  bool
	cleanup          *CleanupTracker
}

// NewClient creates a new download client
func NewClient(logger *utils.Logger) *Client {
	return NewClientWithAuth(logger, "", "", nil)
}

// NewClientWithAuth creates a download client with HTTP authentication
func NewClientWithAuth(logger *utils.Logger, authUser, authPassword string, headers map[string]string) *Client {
	client := &Client{
		httpClient:       &http.Client{},
		logger:           logger,
		authUser:         authUser,
		authPassword:     authPassword,
		customHeaders:    make(map[string]string, len(headers)),
		userAgent:        DefaultUserAgent,
		defaultRetries:   3,
		defaultRetryWait: 5,
		cleanup:          NewCleanupTracker(),
	}
	client.SetFollowRedirects(true)

	for k, v := range headers {
		client.customHeaders[k] = v
	}
	return client
}

// SetFollowRedirects toggles HTTP redirect following
func (c *Client) SetFollowRedirects(follow bool) {
	c.followRedirects = follow
	if follow {
		c.httpClient.CheckRedirect = nil
	} else {
		c.httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse // do not follow
		}
	}
}

// SetRetryDefaults sets the retry count and delay (seconds). Negative values are ignored;
// zero retries means a single attempt.
func (c *Client) SetRetryDefaults(retries, retryWaitSeconds int) {
	if retries >= 0 {
		c.defaultRetries = retries
	}
	if retryWaitSeconds >= 0 {
		c.defaultRetryWait = retryWaitSeconds
	}
}

// SetUserAgent overrides the User-Agent header
func (c *Client) SetUserAgent(ua string) {
	if ua != "" {
		c.userAgent = ua
	}
}

// SetKeepFailedFiles keeps partially written downloads on disk for troubleshooting
func (c *Client) SetKeepFailedFiles(keep bool) {
	c.keepFailedFiles = keep
}

// KeptFailedFiles lists partial downloads left on disk because of SetKeepFailedFiles
func (c *Client) KeptFailedFiles() []string {
	return c.cleanup.Failed()
}

// Fetch streams url to dest with the client's retry settings. A failed
// download does not leave a partial file at dest unless keep-failed-files is on.
func (c *Client) Fetch(ctx context.Context, url, dest string) (int64, error) {
	c.logger.Info("GET %s", url)

	retryDuration := time.Duration(c.defaultRetryWait) * time.Second
	c.logger.Debug("Using retry settings: %d retries, %v delay", c.defaultRetries, retryDuration)

	c.cleanup.TrackFile(dest)

	var written int64
	downloadOperation := func() error {
		n, err := c.downloadOnce(ctx, url, dest)
		written = n
		return err
	}

	attempts, err := utils.Retry(ctx, downloadOperation, c.defaultRetries, retryDuration, fmt.Sprintf("download %s", url), c.logger)
	if err != nil {
		if c.keepFailedFiles {
			c.logger.Debug("KeepFailedFiles=true: preserving failed download %s", dest)
		} else if rmErr := c.cleanup.Release(dest); rmErr != nil {
			c.logger.Error("Failed to remove partial download: %v", rmErr)
		}
		return written, err
	}

	c.cleanup.MarkSuccess(dest)
	c.logger.Debug("Download of %s completed in %d attempts (%s)", url, attempts, humanize.IBytes(uint64(written)))
	return written, nil
}

// FetchBytes downloads a small document into memory
func (c *Client) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	c.logger.Debug("Fetching document %s", url)

	var data []byte
	operation := func() error {
		body, err := c.Open(ctx, url)
		if err != nil {
			return err
		}
		defer body.Close()

		data, err = io.ReadAll(io.LimitReader(body, maxDocumentSize))
		if err != nil {
			return &NetworkError{URL: url, Err: err}
		}
		return nil
	}

	retryDuration := time.Duration(c.defaultRetryWait) * time.Second
	if _, err := utils.Retry(ctx, operation, c.defaultRetries, retryDuration, fmt.Sprintf("fetch %s", url), c.logger); err != nil {
		return nil, err
	}
	return data, nil
}

// Open performs a GET request and returns the body of a successful response.
// Client errors (4xx) are marked permanent so Retry does not repeat them.
func (c *Client) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	c.logger.Debug("Making HTTP request to %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, utils.Permanent(&NetworkError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)})
	}

	// Add HTTP Basic Authentication if configured
	if c.authUser != "" && c.authPassword != "" {
		req.SetBasicAuth(c.authUser, c.authPassword)
		c.logger.Debug("Added HTTP Basic Auth for user: %s", c.authUser)
	}

	for key, value := range c.customHeaders {
		req.Header.Set(key, value)
	}
	req.Header.Set("User-Agent", c.userAgent)

	// Log request headers in verbose mode (mask secret values)
	safe := make(http.Header)
	for k, vals := range req.Header {
		if k == "Authorization" || k == "Proxy-Authorization" {
			safe[k] = []string{"***redacted***"}
		} else {
			safe[k] = vals
		}
	}
	c.logger.Verbose("HTTP request headers: %v", safe)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, utils.Permanent(&NetworkError{URL: url, Err: ctx.Err()})
		}
		return nil, &NetworkError{URL: url, Err: err}
	}

	c.logger.Debug("HTTP response status: %d", resp.StatusCode)
	c.logger.Verbose("HTTP response headers: %v", resp.Header)

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		netErr := &NetworkError{URL: url, StatusCode: resp.StatusCode}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, utils.Permanent(netErr)
		}
		return nil, netErr
	}
	return resp.Body, nil
}

// downloadOnce performs a single download attempt
func (c *Client) downloadOnce(ctx context.Context, url, dest string) (int64, error) {
	if err := utils.EnsureDirForFile(dest); err != nil {
		return 0, utils.Permanent(err)
	}

	body, err := c.Open(ctx, url)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	// Overwrites whatever is at dest
	file, err := os.Create(dest)
	if err != nil {
		return 0, utils.Permanent(fmt.Errorf("failed to create file %s: %w", dest, err))
	}

	bytesWritten, err := io.CopyBuffer(file, body, make([]byte, copyBufferSize))
	if closeErr := file.Close(); err == nil && closeErr != nil {
		return bytesWritten, fmt.Errorf("failed to close %s: %w", dest, closeErr)
	}
	if err != nil {
		return bytesWritten, &NetworkError{URL: url, Err: fmt.Errorf("failed to write file: %w", err)}
	}

	c.logger.Debug("Downloaded %s to %s", humanize.IBytes(uint64(bytesWritten)), dest)
	return bytesWritten, nil
}
