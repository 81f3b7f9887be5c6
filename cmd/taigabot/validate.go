package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"taigabot/internal/app"
	"taigabot/internal/config"
	"taigabot/internal/directory"
)

var validateStrict bool

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the config and users file without starting anything",
		Long: `Load the config file and the users file it points at and report problems.

Config errors and unreadable users files fail the command. Users that can
never be notified (missing or non-numeric telegram_id, duplicate usernames)
are printed as warnings; --strict turns them into a failure.`,
		Args: cobra.NoArgs,
		RunE: runValidate,
	}
	cmd.Flags().BoolVar(&validateStrict, "strict", false, "fail on users file warnings")
	return cmd
}

func runValidate(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.NewConfigManager(cfgPath).Load()
	if err != nil {
		return fmt.Errorf("config %s: %w", cfgPath, err)
	}
	if err := app.ValidateRuntime(cfg); err != nil {
		return fmt.Errorf("config %s: %w", cfgPath, err)
	}
	fmt.Fprintf(out, "config %s: ok\n", cfgPath)

	snap, err := directory.ReadFile(cfg.Users.Path)
	if err != nil {
		return err
	}
	problems := snap.Problems()
	fmt.Fprintf(out, "users %s: %d users, %d warnings\n", cfg.Users.Path, snap.Len(), len(problems))
	for _, p := range problems {
		fmt.Fprintf(out, "  warning: %s\n", p)
	}
	if validateStrict && len(problems) > 0 {
		return errors.New("users file has warnings")
	}
	return nil
}
