package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/player-portraits/internal/config"
	"github.com/kozaktomas/player-portraits/internal/manifest"
	"github.com/kozaktomas/player-portraits/internal/portrait"
	"github.com/kozaktomas/player-portraits/internal/wikimedia"
)

var portraitsCmd = &cobra.Command{
	Use:   "download-portraits",
	Short: "Download a portrait of every player from Wikimedia",
	Long: `Download one portrait per player, saved as <player_id>.jpg.

The image is taken from the Wikidata entity (property P18) when it has one,
otherwise from the lead image of the player's English Wikipedia article.
Players whose portrait already exists are skipped.

Examples:
  # Download all missing portraits
  player-portraits download-portraits

  # Save the raw API answers for debugging
  player-portraits download-portraits --capture ./capture --log-file image_download.log`,
	Args: cobra.NoArgs,
	RunE: runPortraits,
}

func init() {
	rootCmd.AddCommand(portraitsCmd)

	portraitsCmd.Flags().String("list", "", "Player list JSON file (default $PLAYER_LIST or player_list.json)")
	portraitsCmd.Flags().String("output", "", "Directory for portraits (default $PLAYERS_DIR)")
	portraitsCmd.Flags().Int("retries", 0, "Download attempts per image (default $DOWNLOAD_RETRIES or 3)")
	portraitsCmd.Flags().Duration("delay", 0, "Pause after each downloaded player (default $PORTRAIT_DELAY or 1s)")
	portraitsCmd.Flags().Bool("progress", false, "Show a progress bar")
	portraitsCmd.Flags().Bool("strict", false, "Exit with an error when any player failed")
}

func runPortraits(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	overrideString(cmd, "list", &cfg.Paths.PlayerList)
	overrideString(cmd, "output", &cfg.Paths.PlayersDir)
	overrideInt(cmd, "retries", &cfg.Download.Retries)
	overrideDuration(cmd, "delay", &cfg.Download.PortraitDelay)

	if cfg.Download.Retries <= 0 {
		return fmt.Errorf("--retries must be positive, got %d", cfg.Download.Retries)
	}
	if cfg.Download.PortraitDelay < 0 {
		return fmt.Errorf("--delay must not be negative, got %s", cfg.Download.PortraitDelay)
	}

	logger, closeLog, err := newLogger("download-portraits")
	if err != nil {
		return err
	}
	defer closeLog()

	players, err := manifest.Load(cfg.Paths.PlayerList)
	if err != nil {
		logger.Error("Could not load player list", "path", cfg.Paths.PlayerList, "error", err)
		return err
	}

	client := wikimedia.New(wikimedia.Options{
		UserAgent:       cfg.HTTP.UserAgent,
		APITimeout:      cfg.HTTP.Timeout,
		DownloadTimeout: cfg.Download.Timeout,
		Retries:         cfg.Download.Retries,
		RetryInterval:   cfg.Download.RetryInterval,
		Logger:          logger,
	})
	if err := client.SetCaptureDir(captureDir); err != nil {
		return err
	}

	downloader, err := portrait.NewDownloader(client, portrait.Options{
		OutputDir: cfg.Paths.PlayersDir,
		Delay:     cfg.Download.PortraitDelay,
		Logger:    logger,
		Progress:  newProgress(mustGetBool(cmd, "progress"), len(players), "Downloading portraits", "players"),
	})
	if err != nil {
		return err
	}

	summary, err := downloader.Run(cmd.Context(), players)
	summary.Log(logger, "download")
	if err != nil {
		return fmt.Errorf("download interrupted: %w", err)
	}

	return strictCheck(cmd, summary)
}
