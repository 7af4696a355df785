package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rickgao/session-keeper/internal/account"
	"github.com/rickgao/session-keeper/internal/config"
)

func newAccountsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Inspect the accounts file",
	}

	cmd.AddCommand(
		newAccountsCheckCmd(opts),
	)

	return cmd
}

func newAccountsCheckCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the accounts file and list its accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			creds, err := loadAccounts(cfg.AccountsFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s: %d account(s) OK\n", cfg.AccountsFile, len(creds))
			for _, c := range creds {
				_, _ = fmt.Fprintf(out, "  %s\n", c)
			}
			return nil
		},
	}
}

// loadAccounts reads credentials, reporting any failure as a startup error.
func loadAccounts(path string) ([]account.Credential, error) {
	creds, err := account.Load(path)
	if err != nil {
		return nil, &config.StartupError{Op: "load accounts", Err: err}
	}
	return creds, nil
}
