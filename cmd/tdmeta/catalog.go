package main

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/redbco/tdmeta/cmd/tdmeta/internal/admin"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the catalog",
	Long:  `Create the catalog database and its system tables. With --reset an existing catalog is dropped first.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reset, _ := cmd.Flags().GetBool("reset")
		c, err := sess.Catalog(cmd.Context())
		if err != nil {
			return err
		}
		return admin.InitCatalog(cmd.Context(), c, cmd.OutOrStdout(), reset)
	},
}

// healthCmd represents the health command
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the engine and the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return admin.Health(cmd.Context(), sess.Health(), cmd.OutOrStdout())
	},
}

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the engine password",
	Long:  `Prompt for the password of the configured user, check it against the engine and store it in the keyring.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := sess.Connector.WithDefaults()
		fmt.Fprintf(os.Stderr, "Password for %s@%s:%d: ", cfg.User, cfg.Host, cfg.Port)
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("failed to read password: %v", err)
		}
		if len(password) == 0 {
			return errors.New("password is empty")
		}
		if err := sess.Login(cmd.Context(), string(password)); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Password stored")
		return nil
	},
}

func init() {
	initCmd.Flags().Bool("reset", false, "Drop the existing catalog before creating it")
}
