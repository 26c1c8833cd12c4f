package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/aide-sh/aide/internal/config"
	"github.com/aide-sh/aide/pkg/models"
)

const configTemplate = `# aide configuration
#
# anthropic:
#   api_key: ${ANTHROPIC_API_KEY}
#   use_bedrock: false
#
# models:
#   cheap: claude-3-5-haiku-20241022
#   capable: claude-sonnet-4-20250514
#
# tools:
#   permissions:
#     fetch_url: approve
#     write_file: auto
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up the data directory and check the environment",
	RunE:  runInit,
}

func printStatus(symbol, message string, c color.Attribute) {
	color.New(c).Printf("%s ", symbol)
	fmt.Println(message)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if os.Getenv("ANTHROPIC_API_KEY") == "" && cfg.Anthropic.APIKey == "" && !cfg.Anthropic.UseBedrock {
		printStatus("⚠", "ANTHROPIC_API_KEY not set (you can set it later)", color.FgYellow)
	} else {
		printStatus("✓", "Model API credentials configured", color.FgGreen)
	}

	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.WorkspaceRoot} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	printStatus("✓", fmt.Sprintf("Data directory ready at %s", cfg.Paths.DataDir), color.FgGreen)

	// Seed empty list files so external tools see the full set.
	for _, list := range models.AllLists {
		path := filepath.Join(cfg.Paths.DataDir, string(list)+".md")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, nil, 0644); err != nil {
				return fmt.Errorf("create %s: %w", path, err)
			}
		}
	}
	printStatus("✓", "Task list files in place", color.FgGreen)

	configPath := filepath.Join(config.UserConfigDir(), "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		if err := os.WriteFile(configPath, []byte(configTemplate), 0644); err != nil {
			return fmt.Errorf("write config template: %w", err)
		}
		printStatus("✓", fmt.Sprintf("Created config template at %s", configPath), color.FgGreen)
	} else {
		printStatus("✓", fmt.Sprintf("Config present at %s", configPath), color.FgGreen)
	}

	fmt.Printf("\n%s aide is ready. Try: aide tasks add \"Ship report\" --target 2025-03-10\n", color.GreenString("✓"))
	return nil
}
