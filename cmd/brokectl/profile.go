package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"brokeometer/internal/budget"
)

var (
	flagName     string
	flagUsername string
	flagPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Create or replace the user profile",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the user profile. Expenses and budget are kept.",
	RunE:  runLogout,
}

func init() {
	loginCmd.Flags().StringVar(&flagName, "name", "", "Display name")
	loginCmd.Flags().StringVar(&flagUsername, "username", "", "Username")
	loginCmd.Flags().StringVar(&flagPassword, "password", "", "Password (stored hashed, never checked)")
	_ = loginCmd.MarkFlagRequired("name")
	_ = loginCmd.MarkFlagRequired("username")

	rootCmd.AddCommand(loginCmd, logoutCmd)
}

func runLogin(_ *cobra.Command, _ []string) error {
	return withSession(func(ctx context.Context, s *session) error {
		p, err := s.tracker.Login(ctx, flagName, flagUsername, flagPassword)
		if errors.Is(err, budget.ErrInvalidProfile) {
			return fmt.Errorf("%w: --name and --username must not be blank", err)
		}
		if err != nil {
			return err
		}
		fmt.Printf("  Welcome, %s\n", p.Name)
		return nil
	})
}

func runLogout(_ *cobra.Command, _ []string) error {
	return withSession(func(ctx context.Context, s *session) error {
		if err := s.tracker.Logout(ctx); err != nil {
			return err
		}
		fmt.Println("  Logged out")
		return nil
	})
}
