// Package wikimedia resolves and downloads player portraits through the
// Wikidata, Wikipedia and Wikimedia Commons APIs.
package wikimedia

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/kozaktomas/player-portraits/internal/constants"
)

var (
	// ErrNoImage is returned when an entity or article has no usable image.
	ErrNoImage = errors.New("no image found")
	// ErrNoArticle is returned when a Wikidata entity has no English Wikipedia article.
	ErrNoArticle = errors.New("no English Wikipedia article")
	// ErrNotImage is returned when a download URL serves something other than an image.
	ErrNotImage = errors.New("URL does not point to an image")
)

// Endpoints holds the base URLs of the services the client talks to.
type Endpoints struct {
	WikidataAPI   string // action API of Wikidata
	WikipediaREST string // REST API of the English Wikipedia
	WikipediaAPI  string // action API of the English Wikipedia
	Commons       string // Wikimedia Commons site root
}

// DefaultEndpoints points at the public Wikimedia services.
var DefaultEndpoints = Endpoints{
	WikidataAPI:   "https://www.wikidata.org/w/api.php",
	WikipediaREST: "https://en.wikipedia.org/api/rest_v1",
	WikipediaAPI:  "https://en.wikipedia.org/w/api.php",
	Commons:       "https://commons.wikimedia.org",
}

// Options configures a Client. Zero values fall back to the package defaults.
type Options struct {
	Endpoints       Endpoints
	UserAgent       string
	APITimeout      time.Duration
	DownloadTimeout time.Duration
	Retries         int
	RetryInterval   time.Duration
	Logger          *slog.Logger
}

// Client is a Wikimedia API client
type Client struct {
	endpoints     Endpoints
	userAgent     string
	api           *http.Client
	download      *http.Client
	retries       int
	retryInterval time.Duration
	captureDir    string
	logger        *slog.Logger
}

// New creates a client.
func New(opts Options) *Client {
	ep := opts.Endpoints
	if ep.WikidataAPI == "" {
		ep.WikidataAPI = DefaultEndpoints.WikidataAPI
	}
	if ep.WikipediaREST == "" {
		ep.WikipediaREST = DefaultEndpoints.WikipediaREST
	}
	if ep.WikipediaAPI == "" {
		ep.WikipediaAPI = DefaultEndpoints.WikipediaAPI
	}
	if ep.Commons == "" {
		ep.Commons = DefaultEndpoints.Commons
	}
	ep.WikipediaREST = strings.TrimSuffix(ep.WikipediaREST, "/")
	ep.Commons = strings.TrimSuffix(ep.Commons, "/")

	if opts.UserAgent == "" {
		opts.UserAgent = constants.DefaultUserAgent
	}
	if opts.APITimeout <= 0 {
		opts.APITimeout = constants.DefaultAPITimeout
	}
	if opts.DownloadTimeout <= 0 {
		opts.DownloadTimeout = constants.DefaultDownloadTimeout
	}
	if opts.Retries <= 0 {
		opts.Retries = constants.DefaultDownloadRetries
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = constants.DefaultRetryInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Client{
		endpoints:     ep,
		userAgent:     opts.UserAgent,
		api:           &http.Client{Timeout: opts.APITimeout},
		download:      &http.Client{Timeout: opts.DownloadTimeout},
		retries:       opts.Retries,
		retryInterval: opts.RetryInterval,
		logger:        opts.Logger,
	}
}

// SetCaptureDir enables API response capturing to the specified directory.
// Pass an empty string to disable capturing.
func (c *Client) SetCaptureDir(dir string) error {
	if dir == "" {
		c.captureDir = ""
		return nil
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("could not create capture directory: %w", err)
	}
	c.captureDir = dir
	return nil
}

// getJSON performs a GET request and returns the body once it is known to be valid JSON.
// name is used for error messages and capture file names.
func (c *Client) getJSON(ctx context.Context, name, rawURL string, params url.Values) ([]byte, error) {
	if len(params) > 0 {
		rawURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.api.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s request failed with status %d: %s", name, resp.StatusCode, readErrorBody(resp.Body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%s returned invalid JSON", name)
	}

	c.captureResponse(name, body)
	return body, nil
}

// readErrorBody reads the response body for error messages.
// Returns empty string if reading fails (we're already in an error path).
func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return "(could not read error body)"
	}
	return strings.TrimSpace(string(body))
}

// captureResponse saves the API response body to a file if capturing is enabled.
func (c *Client) captureResponse(name string, body []byte) {
	if c.captureDir == "" {
		return
	}

	filename := strings.NewReplacer("/", "_", " ", "_", ":", "_").Replace(name)
	timestamp := time.Now().Format("20060102_150405")
	path := filepath.Join(c.captureDir, fmt.Sprintf("%s_%s.json", filename, timestamp))

	pretty := gjson.GetBytes(body, "@pretty").Raw
	if err := os.WriteFile(path, []byte(pretty), 0600); err != nil {
		c.logger.Warn("failed to capture response", "path", path, "error", err)
	}
}
