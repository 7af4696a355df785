package main

import (
	"github.com/spf13/cobra"

	"github.com/rickgao/session-keeper/internal/config"
)

// globalOptions are the flags shared by every subcommand.
type globalOptions struct {
	configPath   string
	accountsPath string
}

// loadConfig loads the config file (or defaults) and applies flag overrides.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadAndValidate(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.accountsPath != "" {
		cfg.AccountsFile = o.accountsPath
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "session-keeper",
		Short:         "Keep per-account websocket sessions alive",
		Long:          "session-keeper opens one websocket session per account, sends a heartbeat every few seconds, reconnects on failure, and shows live status in the terminal.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to YAML config file (defaults apply when empty)")
	flags.StringVar(&opts.accountsPath, "accounts", "", "path to accounts file (overrides accounts_file)")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newAccountsCmd(opts),
		newVersionCmd(),
	)

	return rootCmd
}
