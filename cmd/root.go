package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	captureDir string
	logLevel   string
	logFile    string
)

var rootCmd = &cobra.Command{
	Use:   "player-portraits",
	Short: "Prepare tennis player portraits and flags for the scrollytelling site",
	Long: `Player Portraits builds the image assets of the tennis scrollytelling site
from a JSON player list: it downloads portraits from Wikimedia, downloads
country flags and cuts a circular, transparent face crop out of every
portrait using a face detection server.`,
	SilenceUsage: true,
}

func Execute() {
	// Ctrl+C cancels the running batch between two players
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&captureDir, "capture", "", "Directory to save API responses for testing")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also append log output to this file")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
