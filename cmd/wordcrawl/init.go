package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/wordcrawl/internal/config"
)

//go:embed templates/wordcrawl.yaml
var configTemplate embed.FS

// configFileName is the default crawl file name.
const configFileName = config.DefaultConfigFile

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new wordcrawl crawl file",
		Long: `Initialize creates a new .wordcrawl crawl file in the current directory.

The generated file includes:
- Start pages, depth and time budget
- Commented examples for ignore patterns, proxies and headers
- Documentation for all available options

Examples:
  # Create .wordcrawl in current directory
  wordcrawl init

  # Create crawl file at a specific path
  wordcrawl init -o crawls/news.yaml

  # Force overwrite existing file
  wordcrawl init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Output file path for the crawl file")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing crawl file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("crawl file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/wordcrawl.yaml")
	if err != nil {
		return fmt.Errorf("failed to read crawl file template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write crawl file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created crawl file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure:")
	fmt.Fprintln(out, "  - Start pages, depth and time budget")
	fmt.Fprintln(out, "  - URL and word patterns to ignore")
	fmt.Fprintln(out, "  - Proxy, headers and request rate")

	return nil
}
