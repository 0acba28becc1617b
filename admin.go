package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tour-booking/internal/services"
)

func createAdminCommand() *cobra.Command {
	var email, password, firstName, lastName string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Close()

			store, err := openStore(cfg, log)
			if err != nil {
				return err
			}
			defer store.Close()

			svc := services.New(services.Deps{Store: store, JWT: cfg.JWT, AppName: cfg.App.Name, Log: log})
			user, err := svc.Auth.CreateAdmin(ctx, email, password, firstName, lastName)
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stdout, "Admin %s created with id %d\n", user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email")
	cmd.Flags().StringVar(&password, "password", "", "Admin password")
	cmd.Flags().StringVar(&firstName, "first-name", "Admin", "First name")
	cmd.Flags().StringVar(&lastName, "last-name", "User", "Last name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
