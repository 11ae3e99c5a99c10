package main

import (
	"fmt"

	"github.com/ahmetcoskunkizilkaya/yamdb/internal/database"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/mail"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/services"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/tokens"
	"github.com/spf13/cobra"
)

var (
	superuserName  string
	superuserEmail string
)

var createSuperuserCmd = &cobra.Command{
	Use:   "createsuperuser",
	Short: "Create or promote an admin and print a confirmation code",
	Long: `Creates the user when the pair is new, or promotes the existing one,
to role admin with superuser status. The printed confirmation code can be
exchanged at POST /v1/auth/token/ like a mailed one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer database.Close(db)

		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		issuer := tokens.NewIssuer(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.ConfirmationCodeTTL)
		authService := services.NewAuthService(db, issuer, &mail.LogSender{From: cfg.MailFrom})

		code, err := authService.CreateSuperuser(cmd.Context(), superuserEmail, superuserName)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Superuser %s ready.\nConfirmation code: %s\n", superuserName, code)
		return nil
	},
}

func init() {
	createSuperuserCmd.Flags().StringVar(&superuserName, "username", "", "Username of the admin")
	createSuperuserCmd.Flags().StringVar(&superuserEmail, "email", "", "Email of the admin")
	_ = createSuperuserCmd.MarkFlagRequired("username")
	_ = createSuperuserCmd.MarkFlagRequired("email")
}
