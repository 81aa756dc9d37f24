// Package nationalflag downloads a flag image for every country that appears
// in the player list.
package nationalflag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/kozaktomas/player-portraits/internal/constants"
	"github.com/kozaktomas/player-portraits/internal/manifest"
	"github.com/kozaktomas/player-portraits/internal/report"
	"github.com/kozaktomas/player-portraits/internal/throttle"
)

// maxFlagBytes bounds how much of a response is read.
const maxFlagBytes = 5 << 20

// ErrAllSourcesFailed is returned when no source produced a usable image.
var ErrAllSourcesFailed = errors.New("all flag sources failed")

// Mapper translates tennis country codes to ISO codes. *config.CountriesConfig satisfies it.
type Mapper interface {
	ISOCode(code string) string
}

// Options configures a Downloader.
type Options struct {
	Dir       string
	Sources   Sources
	UserAgent string
	Timeout   time.Duration
	Delay     time.Duration // pause between countries that hit the network
	Fallback  bool          // write a placeholder SVG when every source fails
	Logger    *slog.Logger
	Progress  report.Progress
}

// Result is the outcome of a flag run.
type Result struct {
	report.Summary
	Fallbacks []string // countries that got a placeholder SVG
	Missing   []string // countries without any flag file
}

// Downloader fetches flag images into a directory.
type Downloader struct {
	mapper Mapper
	client *http.Client
	opts   Options
}

// NewDownloader creates the flags directory and returns a downloader.
func NewDownloader(mapper Mapper, opts Options) (*Downloader, error) {
	if opts.Sources == (Sources{}) {
		opts.Sources = DefaultSources
	}
	if opts.UserAgent == "" {
		opts.UserAgent = constants.BrowserUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = constants.FlagRequestTimeout
	}
	if opts.Delay < 0 {
		opts.Delay = constants.DefaultFlagDelay
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if err := os.MkdirAll(opts.Dir, 0750); err != nil {
		return nil, fmt.Errorf("could not create flags directory: %w", err)
	}

	return &Downloader{
		mapper: mapper,
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
	}, nil
}

// Countries returns the sorted, de-duplicated, upper-cased country codes of players.
func Countries(players []manifest.Player) []string {
	var codes []string
	for _, p := range players {
		if c := strings.ToUpper(strings.TrimSpace(p.Country)); c != "" {
			codes = append(codes, c)
		}
	}
	slices.Sort(codes)
	return slices.Compact(codes)
}

// Retry removes placeholder SVGs for codes and downloads them again.
func (d *Downloader) Retry(ctx context.Context, codes []string) (Result, error) {
	normalized := make([]string, 0, len(codes))
	for _, code := range codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		normalized = append(normalized, code)

		fallback := filepath.Join(d.opts.Dir, strings.ToLower(code)+".svg")
		if err := os.Remove(fallback); err == nil {
			d.opts.Logger.Info("Removed fallback: "+filepath.Base(fallback), "country", code)
		} else if !errors.Is(err, os.ErrNotExist) {
			return Result{}, fmt.Errorf("could not remove fallback %s: %w", fallback, err)
		}
	}
	return d.Run(ctx, normalized)
}

// Run downloads a flag for every code, in order.
func (d *Downloader) Run(ctx context.Context, codes []string) (Result, error) {
	log := d.opts.Logger
	log.Info(fmt.Sprintf("Downloading %d flags...", len(codes)))
	log.Info("Saving flags to: " + d.opts.Dir)

	var res Result
	for i, code := range codes {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		log.Info(fmt.Sprintf("[%2d/%d] %s", i+1, len(codes), code))

		status, fetched := d.process(ctx, code, &res)
		res.Record(status)
		report.Tick(d.opts.Progress)

		if fetched && i < len(codes)-1 {
			if err := throttle.Wait(ctx, d.opts.Delay); err != nil {
				return res, err
			}
		}
	}

	return res, nil
}

// process handles one country and reports whether the network was used.
func (d *Downloader) process(ctx context.Context, code string, res *Result) (report.Status, bool) {
	log := d.opts.Logger.With("country", code)

	if !validCode(code) {
		log.Error("Invalid country code")
		res.Missing = append(res.Missing, code)
		return report.Failed, false
	}

	lower := strings.ToLower(code)
	existing, err := filepath.Glob(filepath.Join(d.opts.Dir, lower+".*"))
	if err == nil && len(existing) > 0 {
		log.Info("Already exists: " + filepath.Base(existing[0]))
		return report.Skipped, false
	}

	iso := d.mapper.ISOCode(code)
	if iso != code {
		log.Info(fmt.Sprintf("Mapping %s -> %s", code, iso))
	}

	err = d.download(ctx, lower, iso, log)
	if err == nil {
		return report.Success, true
	}
	if ctx.Err() != nil {
		res.Missing = append(res.Missing, code)
		return report.Failed, true
	}

	if d.opts.Fallback {
		path := filepath.Join(d.opts.Dir, lower+".svg")
		if werr := writeFile(path, fallbackSVG(code)); werr != nil {
			log.Error("Could not write fallback flag", "error", werr)
			res.Missing = append(res.Missing, code)
			return report.Failed, true
		}
		log.Warn("Created fallback: " + filepath.Base(path))
		res.Fallbacks = append(res.Fallbacks, code)
		return report.Failed, true
	}

	log.Warn("Still failed, no fallback", "error", err)
	res.Missing = append(res.Missing, code)
	return report.Failed, true
}

// download tries every source in order and saves the first usable image as <name>.<ext>.
func (d *Downloader) download(ctx context.Context, name, iso string, log *slog.Logger) error {
	for i, src := range d.opts.Sources.URLs(iso) {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Debug(fmt.Sprintf("Trying source %d", i+1), "url", src)

		data, err := d.fetch(ctx, src)
		if err != nil {
			log.Debug("Source failed", "url", src, "error", err)
			continue
		}

		path := filepath.Join(d.opts.Dir, name+"."+extension(src))
		if err := writeFile(path, data); err != nil {
			return err
		}
		log.Info(fmt.Sprintf("Downloaded: %s (%d bytes)", filepath.Base(path), len(data)))
		return nil
	}
	return ErrAllSourcesFailed
}

func (d *Downloader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("User-Agent", d.opts.UserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFlagBytes))
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}
	if len(data) < constants.MinFlagBytes {
		return nil, fmt.Errorf("response too small (%d bytes)", len(data))
	}
	return data, nil
}

// Log writes the end-of-run summary.
func (r Result) Log(logger *slog.Logger) {
	r.Summary.Log(logger, "flag download")
	if len(r.Fallbacks) > 0 {
		logger.Warn("Fallback flags created for: " + strings.Join(r.Fallbacks, ", "))
	}
	if len(r.Missing) > 0 {
		logger.Warn("No flag for: " + strings.Join(r.Missing, ", "))
	}
}

func validCode(code string) bool {
	if code == "" {
		return false
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// writeFile stores data under path through a temp file in the same
// directory. A flag file is never visible until it is complete, because any
// <code>.* file counts as done on the next run.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".flag-*.tmp")
	if err != nil {
		return fmt.Errorf("could not create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("could not write flag: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("could not close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("could not save flag: %w", err)
	}
	return nil
}
