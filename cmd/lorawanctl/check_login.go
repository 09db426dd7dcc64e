package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/labte-ums/lorawan-dashboard/internal/credentials"
	"github.com/labte-ums/lorawan-dashboard/internal/models"
)

var (
	checkRole     string
	checkPassword string
)

// checkLoginCmd represents the check-login command
var checkLoginCmd = &cobra.Command{
	Use:   "check-login <username>",
	Short: "Check a username and password against the credential file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := models.ParseRole(checkRole)
		if err != nil {
			return err
		}

		store, err := credentials.Load(cfg.Credentials.File)
		if err != nil {
			return err
		}

		if !store.Authenticate(role, args[0], checkPassword) {
			return fmt.Errorf("login rejected for %s %q", role, args[0])
		}

		fmt.Fprintf(cmd.OutOrStdout(), "login accepted for %s %q\n", role, args[0])
		return nil
	},
}

func init() {
	checkLoginCmd.Flags().StringVar(&checkRole, "role", string(models.RoleUser), "Role to check (user or admin)")
	checkLoginCmd.Flags().StringVar(&checkPassword, "password", "", "Password to check")
	rootCmd.AddCommand(checkLoginCmd)
}
