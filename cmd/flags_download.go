package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/player-portraits/internal/config"
	"github.com/kozaktomas/player-portraits/internal/manifest"
	"github.com/kozaktomas/player-portraits/internal/nationalflag"
)

var flagsDownloadCmd = &cobra.Command{
	Use:   "download-flags",
	Short: "Download a flag for every country in the player list",
	Long: `Download a flag image for every country code found in the player list.
Tennis (IOC) codes are mapped to ISO codes, then several flag services are
tried in turn. Countries that already have a flag file are skipped.

Examples:
  # Download all missing flags, writing placeholders for failures
  player-portraits download-flags --fallback

  # Retry countries that only got a placeholder last time
  player-portraits download-flags --retry BIH,CYP,LAT`,
	Args: cobra.NoArgs,
	RunE: runFlagsDownload,
}

func init() {
	rootCmd.AddCommand(flagsDownloadCmd)

	flagsDownloadCmd.Flags().String("list", "", "Player list JSON file (default $PLAYER_LIST or player_list.json)")
	flagsDownloadCmd.Flags().String("dir", "", "Directory for flag images (default $FLAGS_DIR or ./images/flags)")
	flagsDownloadCmd.Flags().StringSlice("retry", nil, "Only retry these country codes, removing their placeholder first")
	flagsDownloadCmd.Flags().Bool("fallback", false, "Write a placeholder SVG when no source has the flag")
	flagsDownloadCmd.Flags().Duration("delay", 0, "Pause between two countries (default $FLAG_DELAY or 800ms)")
	flagsDownloadCmd.Flags().Bool("progress", false, "Show a progress bar")
	flagsDownloadCmd.Flags().Bool("strict", false, "Exit with an error when any country has no downloaded flag")
}

func runFlagsDownload(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	overrideString(cmd, "list", &cfg.Paths.PlayerList)
	overrideString(cmd, "dir", &cfg.Paths.FlagsDir)
	overrideDuration(cmd, "delay", &cfg.Download.FlagDelay)

	if cfg.Download.FlagDelay < 0 {
		return fmt.Errorf("--delay must not be negative, got %s", cfg.Download.FlagDelay)
	}

	logger, closeLog, err := newLogger("download-flags")
	if err != nil {
		return err
	}
	defer closeLog()

	retry := mustGetStringSlice(cmd, "retry")
	codes := retry
	if len(codes) == 0 {
		players, err := manifest.Load(cfg.Paths.PlayerList)
		if err != nil {
			logger.Error("Could not load player list", "path", cfg.Paths.PlayerList, "error", err)
			return err
		}
		codes = nationalflag.Countries(players)
		logger.Info(fmt.Sprintf("Found %d players from %d countries", len(players), len(codes)))
		if len(codes) == 0 {
			return errors.New("no countries found in player list")
		}
	}

	downloader, err := nationalflag.NewDownloader(&cfg.Countries, nationalflag.Options{
		Dir:      cfg.Paths.FlagsDir,
		Delay:    cfg.Download.FlagDelay,
		Fallback: mustGetBool(cmd, "fallback"),
		Logger:   logger,
		Progress: newProgress(mustGetBool(cmd, "progress"), len(codes), "Downloading flags", "flags"),
	})
	if err != nil {
		return err
	}

	var res nationalflag.Result
	if len(retry) > 0 {
		res, err = downloader.Retry(cmd.Context(), retry)
	} else {
		res, err = downloader.Run(cmd.Context(), codes)
	}
	res.Log(logger)
	if err != nil {
		return fmt.Errorf("flag download interrupted: %w", err)
	}

	if mustGetBool(cmd, "strict") && res.Failed > 0 {
		return fmt.Errorf("%d of %d countries have no downloaded flag", res.Failed, res.Total())
	}
	return nil
}
