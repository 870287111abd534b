package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bimdev1/Cortex/internal/config"
)

var configPath string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect daemon configuration",
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Render the effective daemon configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		if IsJSONOutput() {
			return printJSON(cfg)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("render config: %w", err)
		}
		os.Stdout.Write(data)
		return nil
	},
}

func init() {
	configViewCmd.Flags().StringVar(&configPath, "file", "", "daemon config file to load (defaults apply when empty)")
	configCmd.AddCommand(configViewCmd)
	rootCmd.AddCommand(configCmd)
}
