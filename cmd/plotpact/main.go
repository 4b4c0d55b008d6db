package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

func main() {
	root := &cobra.Command{
		Use:          "plotpact",
		Short:        "Co-write stories under evolving narrative constraints",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// A missing .env is fine; keys may come from the environment.
			_ = godotenv.Load()
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVar(&configPath, "config", "plotpact.yaml", "Project config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	root.AddCommand(initCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(storyCmd())
	root.AddCommand(purgeCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(versionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
