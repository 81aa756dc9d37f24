package facecrop

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/kozaktomas/player-portraits/internal/constants"
	"github.com/kozaktomas/player-portraits/internal/manifest"
	"github.com/kozaktomas/player-portraits/internal/report"
)

// ErrorKind classifies why an entry failed.
type ErrorKind string

const (
	KindNone         ErrorKind = ""
	KindInputMissing ErrorKind = "input-missing"
	KindDecode       ErrorKind = "decode-failure"
	KindNoDetection  ErrorKind = "no-detection"
	KindUnexpected   ErrorKind = "unexpected"
)

// ErrNoFace is the error attached to entries where no face was detected.
var ErrNoFace = errors.New("no face detected")

// Result is the outcome of one manifest entry.
type Result struct {
	Player     manifest.Player
	OutputPath string
	Status     report.Status
	Kind       ErrorKind
	Face       *Face
	Err        error
}

// Options configures a Driver.
type Options struct {
	InputDir  string
	OutputDir string
	Size      int
	BlurSigma float64
	Logger    *slog.Logger
	Progress  report.Progress // optional
}

// Driver crops every entry of a player list, one at a time.
type Driver struct {
	locator *Locator
	opts    Options
}

// NewDriver creates the output directory and returns a driver.
func NewDriver(locator *Locator, opts Options) (*Driver, error) {
	if opts.Size <= 0 {
		opts.Size = constants.DefaultCropSize
	}
	if opts.BlurSigma == 0 {
		opts.BlurSigma = constants.MaskBlurRadius
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if err := os.MkdirAll(opts.OutputDir, 0750); err != nil {
		return nil, fmt.Errorf("could not create output directory: %w", err)
	}
	return &Driver{locator: locator, opts: opts}, nil
}

// OutputName returns the file name of the crop for an input file name.
func OutputName(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base)) + constants.CroppedSuffix
}

// Run processes all players sequentially. Individual failures are counted and
// never stop the batch; only context cancellation ends it early.
func (d *Driver) Run(ctx context.Context, players []manifest.Player) (report.Summary, error) {
	log := d.opts.Logger
	log.Info(fmt.Sprintf("Processing %d player images...", len(players)))
	log.Info("Input directory: " + d.opts.InputDir)
	log.Info("Output directory: " + d.opts.OutputDir)
	log.Info(fmt.Sprintf("Crop size: %dx%d pixels", d.opts.Size, d.opts.Size))

	var summary report.Summary
	for i, p := range players {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		log.Info(fmt.Sprintf("--- Processing %d/%d: %s ---", i+1, len(players), p.PlayerName))

		res := d.Process(ctx, p)
		summary.Record(res.Status)
		report.Tick(d.opts.Progress)
	}

	return summary, nil
}

// Process handles a single entry and logs its outcome.
func (d *Driver) Process(ctx context.Context, p manifest.Player) Result {
	res := d.process(ctx, p)
	log := d.opts.Logger.With("player", p.PlayerName, "file", p.Filename)

	switch {
	case res.Status == report.Skipped:
		log.Info(fmt.Sprintf("Skipping %s - cropped version already exists", p.PlayerName))
	case res.Status == report.Success:
		log.Info("[SUCCESS] Cropped face saved: " + filepath.Base(res.OutputPath))
	case res.Kind == KindNoDetection:
		log.Warn(fmt.Sprintf("No face detected in %s (%s)", p.PlayerName, p.Filename))
	case res.Kind == KindInputMissing:
		log.Warn("Input file not found", "path", filepath.Join(d.opts.InputDir, p.Filename))
	case res.Kind == KindDecode:
		log.Error("Could not load image", "error", res.Err)
	default:
		log.Error(fmt.Sprintf("Error processing %s", p.PlayerName), "kind", res.Kind, "error", res.Err)
	}

	return res
}

// process never panics: a panic in the detector or the image code becomes an
// unexpected failure of this entry only.
func (d *Driver) process(ctx context.Context, p manifest.Player) (res Result) {
	res = Result{
		Player:     p,
		OutputPath: filepath.Join(d.opts.OutputDir, OutputName(p.Filename)),
	}
	fail := func(kind ErrorKind, err error) Result {
		res.Status = report.Failed
		res.Kind = kind
		res.Err = err
		return res
	}
	defer func() {
		if r := recover(); r != nil {
			res.Face = nil
			res = fail(KindUnexpected, fmt.Errorf("panic: %v", r))
		}
	}()

	inputPath := filepath.Join(d.opts.InputDir, p.Filename)
	if p.Filename == "" {
		return fail(KindInputMissing, errors.New("entry has no filename"))
	}
	if _, err := os.Stat(inputPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fail(KindInputMissing, err)
		}
		return fail(KindUnexpected, err)
	}

	if _, err := os.Stat(res.OutputPath); err == nil {
		res.Status = report.Skipped
		return res
	}

	img, err := decodeImage(inputPath)
	if err != nil {
		return fail(KindDecode, err)
	}

	face, found, err := d.locator.Locate(ctx, img)
	if err != nil {
		return fail(KindUnexpected, err)
	}
	if !found {
		return fail(KindNoDetection, ErrNoFace)
	}
	res.Face = &face

	d.opts.Logger.Info(fmt.Sprintf("Face detected for %s (confidence: %.2f)", p.PlayerName, face.Confidence))

	cropped, err := CircularCrop(img, face.Box, d.opts.Size, d.opts.BlurSigma)
	if err != nil {
		return fail(KindUnexpected, err)
	}

	if err := writePNG(res.OutputPath, cropped); err != nil {
		return fail(KindUnexpected, err)
	}

	res.Status = report.Success
	return res
}

// decodeImage reads a photo and applies its EXIF orientation, so a portrait
// shot stored sideways is detected and cropped upright.
func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open image: %w", err)
	}
	defer f.Close()

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("could not decode image: %w", err)
	}
	return img, nil
}

// writePNG encodes img into a temp file in the target directory and renames
// it to path. Existing outputs are treated as complete, so no partial file
// may ever appear under the final name.
func writePNG(path string, img image.Image) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".crop-*.png")
	if err != nil {
		return fmt.Errorf("could not create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return fmt.Errorf("could not encode png: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("could not close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("could not move png into place: %w", err)
	}
	return nil
}
