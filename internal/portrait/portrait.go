// Package portrait downloads one portrait per player, named after the player ID.
package portrait

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kozaktomas/player-portraits/internal/constants"
	"github.com/kozaktomas/player-portraits/internal/manifest"
	"github.com/kozaktomas/player-portraits/internal/report"
	"github.com/kozaktomas/player-portraits/internal/throttle"
)

// requiredFields must be present on every player entry.
var requiredFields = []string{"player_id", "player_name", "wikimedia_id"}

// Source finds and fetches images. *wikimedia.Client satisfies it.
type Source interface {
	ImageURL(ctx context.Context, wikidataID string) (string, error)
	Download(ctx context.Context, rawURL, path string) error
}

// Options configures a Downloader.
type Options struct {
	OutputDir string
	Delay     time.Duration // pause after every player that hit the network
	Logger    *slog.Logger
	Progress  report.Progress
}

// Downloader fetches portraits for a player list, one player at a time.
type Downloader struct {
	source Source
	opts   Options
}

// NewDownloader creates the output directory and returns a downloader.
func NewDownloader(source Source, opts Options) (*Downloader, error) {
	if opts.Delay < 0 {
		opts.Delay = constants.DefaultPortraitDelay
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if err := os.MkdirAll(opts.OutputDir, 0750); err != nil {
		return nil, fmt.Errorf("could not create output directory: %w", err)
	}
	return &Downloader{source: source, opts: opts}, nil
}

// FileName is the portrait file name for a player.
func FileName(p manifest.Player) string {
	return string(p.PlayerID) + ".jpg"
}

// Run processes all players. Failures are counted; only context
// cancellation stops the run early.
func (d *Downloader) Run(ctx context.Context, players []manifest.Player) (report.Summary, error) {
	log := d.opts.Logger
	log.Info(fmt.Sprintf("Starting download for %d players...", len(players)))
	log.Info("Output directory: " + d.opts.OutputDir)

	var summary report.Summary
	for i, p := range players {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		log.Info(fmt.Sprintf("--- Processing %d/%d ---", i+1, len(players)))

		status, fetched := d.process(ctx, p)
		summary.Record(status)
		report.Tick(d.opts.Progress)

		if fetched {
			if err := throttle.Wait(ctx, d.opts.Delay); err != nil {
				return summary, err
			}
		}
	}

	return summary, nil
}

// process returns the outcome and whether the network was used.
func (d *Downloader) process(ctx context.Context, p manifest.Player) (report.Status, bool) {
	log := d.opts.Logger

	if missing := p.MissingFields(requiredFields...); len(missing) > 0 {
		log.Error("Player missing required fields", "missing", strings.Join(missing, ","), "player", p.PlayerName)
		return report.Failed, false
	}
	if strings.ContainsAny(string(p.PlayerID), `/\`) || p.PlayerID == "." || p.PlayerID == ".." {
		log.Error("Player has an invalid player_id", "player_id", p.PlayerID, "player", p.PlayerName)
		return report.Failed, false
	}

	filename := FileName(p)
	path := filepath.Join(d.opts.OutputDir, filename)
	if _, err := os.Stat(path); err == nil {
		log.Info(fmt.Sprintf("Skipping %s - file already exists", p.PlayerName))
		return report.Skipped, false
	}

	log = log.With("player", p.PlayerName, "player_id", p.PlayerID, "wikidata_id", p.WikimediaID)
	log.Info(fmt.Sprintf("Processing %s (ID: %s, Wikidata: %s)", p.PlayerName, p.PlayerID, p.WikimediaID))

	src, err := d.source.ImageURL(ctx, p.WikimediaID)
	if err != nil {
		log.Error(fmt.Sprintf("Could not find image for %s (%s)", p.PlayerName, p.WikimediaID), "error", err)
		return report.Failed, true
	}

	if err := d.source.Download(ctx, src, path); err != nil {
		log.Error(fmt.Sprintf("[FAILED] Failed to download %s", p.PlayerName), "url", src, "error", err)
		return report.Failed, true
	}

	log.Info(fmt.Sprintf("[SUCCESS] Downloaded %s -> %s", p.PlayerName, filename))
	return report.Success, true
}
