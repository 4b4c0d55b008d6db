package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"plotpact/internal/config"
)

func initCmd() *cobra.Command {
	var projectName string
	var dsn string
	var provider string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a new plotpact project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(projectName) == "" {
				return fmt.Errorf("--name is required")
			}
			if _, err := config.StoreKind(dsn); err != nil {
				return err
			}
			return runInit(projectName, dsn, provider)
		},
	}
	cmd.Flags().StringVar(&projectName, "name", "", "Project name")
	cmd.Flags().StringVar(&dsn, "dsn", "sqlite://plotpact.db", "Session store DSN")
	cmd.Flags().StringVar(&provider, "provider", "gemini", "Oracle provider: gemini or openai")
	return cmd
}

const defaultTemplates = `templates:
  - name: dragon
    title: Dragonfall
    plot: >
      Elena, a young knight of Oakhollow, rides out to face the dragon Malgrath
      before the harvest festival burns with the rest of the valley.
  - name: lighthouse
    title: The Last Keeper
    plot: >
      The keeper of a lighthouse on a drowned coast receives a letter addressed
      to the man who held the post a century ago.
`

func runInit(projectName, dsn, provider string) error {
	templatesPath := config.DefaultTemplatesFile
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%s already exists", configPath)
	}
	if _, err := os.Stat(templatesPath); err == nil {
		return fmt.Errorf("%s already exists", templatesPath)
	}

	configContents := fmt.Sprintf("project: %s\nversion: 1\n\ndatabase:\n  dsn: %s\n\noracle:\n  provider: %s\n  timeout: 60s\n  max_retries: 2\n\nstory:\n  min_plot_length: 50\n  max_paragraphs: 10\n  retention: 168h\n  verification_policy: fail-open\n  regenerate_after_accept: true\n", projectName, dsn, provider)
	if err := os.WriteFile(configPath, []byte(configContents), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", configPath, err)
	}
	if err := os.WriteFile(templatesPath, []byte(defaultTemplates), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", templatesPath, err)
	}

	return nil
}
