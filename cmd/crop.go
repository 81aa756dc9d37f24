package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/player-portraits/internal/config"
	"github.com/kozaktomas/player-portraits/internal/facecrop"
	"github.com/kozaktomas/player-portraits/internal/facedetect"
	"github.com/kozaktomas/player-portraits/internal/manifest"
	"github.com/kozaktomas/player-portraits/internal/report"
)

var cropCmd = &cobra.Command{
	Use:   "crop",
	Short: "Cut a circular face portrait out of every player photo",
	Long: `Detect the most prominent face in every photo of the player list, expand
the box to include hair and shoulders and save it as a square PNG with a
soft circular transparency mask.

Photos whose cropped version already exists are skipped, so an interrupted
run can simply be started again.

Examples:
  # Crop all players using the defaults from the environment
  player-portraits crop

  # Smaller crops from a custom directory
  player-portraits crop --input ./photos --output ./photos/round --size 200

  # Fail the run (non-zero exit) when any player could not be cropped
  player-portraits crop --strict`,
	Args: cobra.NoArgs,
	RunE: runCrop,
}

func init() {
	rootCmd.AddCommand(cropCmd)

	cropCmd.Flags().String("list", "", "Player list JSON file (default $PLAYER_LIST or player_list.json)")
	cropCmd.Flags().String("input", "", "Directory with player photos (default $PLAYERS_DIR)")
	cropCmd.Flags().String("output", "", "Directory for cropped images (default $CROPPED_DIR or <input>/cropped)")
	cropCmd.Flags().Int("size", 0, "Side length of the output image in pixels (default $CROP_SIZE or 400)")
	cropCmd.Flags().Float64("min-confidence", 0, "Minimum face detection score (default $MIN_CONFIDENCE or 0.3)")
	cropCmd.Flags().String("detector-url", "", "Face detection server URL (default $FACE_DETECTOR_URL)")
	cropCmd.Flags().Bool("progress", false, "Show a progress bar")
	cropCmd.Flags().Bool("strict", false, "Exit with an error when any player failed")
}

func runCrop(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	overrideString(cmd, "list", &cfg.Paths.PlayerList)
	overrideString(cmd, "input", &cfg.Paths.PlayersDir)
	overrideString(cmd, "output", &cfg.Paths.CroppedDir)
	overrideInt(cmd, "size", &cfg.Crop.Size)
	overrideFloat64(cmd, "min-confidence", &cfg.Crop.MinConfidence)
	overrideString(cmd, "detector-url", &cfg.Detector.URL)

	// The output follows --input unless it was set on its own
	if cmd.Flags().Changed("input") && !cmd.Flags().Changed("output") && os.Getenv("CROPPED_DIR") == "" {
		cfg.Paths.CroppedDir = filepath.Join(cfg.Paths.PlayersDir, "cropped")
	}

	if cfg.Crop.Size <= 0 {
		return fmt.Errorf("--size must be positive, got %d", cfg.Crop.Size)
	}
	if cfg.Crop.MinConfidence < 0 || cfg.Crop.MinConfidence > 1 {
		return fmt.Errorf("--min-confidence must be between 0 and 1, got %v", cfg.Crop.MinConfidence)
	}

	logger, closeLog, err := newLogger("crop")
	if err != nil {
		return err
	}
	defer closeLog()

	players, err := manifest.Load(cfg.Paths.PlayerList)
	if err != nil {
		logger.Error("Could not load player list", "path", cfg.Paths.PlayerList, "error", err)
		return err
	}

	detector := facedetect.NewClient(cfg.Detector.URL, cfg.Detector.Timeout)
	locator := facecrop.NewLocator(detector, cfg.Crop.MinConfidence)

	driver, err := facecrop.NewDriver(locator, facecrop.Options{
		InputDir:  cfg.Paths.PlayersDir,
		OutputDir: cfg.Paths.CroppedDir,
		Size:      cfg.Crop.Size,
		Logger:    logger,
		Progress:  newProgress(mustGetBool(cmd, "progress"), len(players), "Cropping faces", "photos"),
	})
	if err != nil {
		return err
	}

	summary, err := driver.Run(cmd.Context(), players)
	summary.Log(logger, "face cropping")
	if err != nil {
		return fmt.Errorf("cropping interrupted: %w", err)
	}

	return strictCheck(cmd, summary)
}

// strictCheck turns failed records into a command error when --strict is set.
func strictCheck(cmd *cobra.Command, summary report.Summary) error {
	if mustGetBool(cmd, "strict") && summary.Failed > 0 {
		return fmt.Errorf("%d of %d players failed", summary.Failed, summary.Total())
	}
	return nil
}
