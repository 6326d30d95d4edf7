// config.go implements the "cowork config" command group.
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kuse-dev/cowork/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Create or inspect the configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config.yaml",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets redacted",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configForce bool

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config.yaml")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	dir, err := resolveConfigDir()
	if err != nil {
		return err
	}

	path := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(path); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	if err := config.WriteConfig(dir, config.DefaultConfig()); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s\n", path)
	fmt.Fprintf(out, "Set provider.api_key there or export %s before running the agent.\n", config.EnvAPIKey)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	dir, err := resolveConfigDir()
	if err != nil {
		return err
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# %s\n", filepath.Join(dir, "config.yaml"))
	fmt.Fprintf(out, "# database: %s\n", cfg.DBPath(dir))
	if !cfg.IsConfigured() {
		fmt.Fprintf(out, "# not configured: set provider.api_key or %s\n", config.EnvAPIKey)
	}
	_, err = out.Write(data)
	return err
}
