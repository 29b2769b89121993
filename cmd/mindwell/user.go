package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mindwell-app/mindwell/server/auth"
	"github.com/mindwell-app/mindwell/store"
)

var (
	userCmd = &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	userCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "Create a user and print an access token for it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, _ := cmd.Flags().GetString("email")
			name, _ := cmd.Flags().GetString("name")
			expiryDays, _ := cmd.Flags().GetInt("expiry-days")
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			if name == "" {
				name = email
			}

			instanceProfile, err := buildProfile()
			if err != nil {
				return err
			}

			ctx := context.Background()
			storeInstance, err := openStore(ctx, instanceProfile)
			if err != nil {
				return err
			}
			defer storeInstance.Close()

			user, err := storeInstance.CreateUser(ctx, &store.User{
				Email: email,
				Name:  name,
			})
			if err != nil {
				return err
			}

			var expiry time.Duration
			if expiryDays > 0 {
				expiry = time.Duration(expiryDays) * 24 * time.Hour
			}
			token, err := auth.GenerateAccessToken(user.ID, expiry, instanceProfile.Secret)
			if err != nil {
				return err
			}

			fmt.Printf("Created user %d (%s)\n", user.ID, user.Email)
			fmt.Printf("Access token: %s\n", token)
			return nil
		},
	}
)

func init() {
	userCreateCmd.Flags().String("email", "", "email of the new user")
	userCreateCmd.Flags().String("name", "", "display name of the new user")
	userCreateCmd.Flags().Int("expiry-days", 0, "token validity in days, 0 for non-expiring")

	userCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(userCmd)
}
