package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func readPassword(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if v := os.Getenv("PULSETRACK_PASSWORD"); v != "" {
		return v, nil
	}
	fmt.Print("Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password is required")
	}
	return password, nil
}

func requireAuth(a *app) error {
	if a.auth == nil {
		return errors.New("accounts are unavailable with --local-only")
	}
	return nil
}

func signupCmd() *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			if err := requireAuth(a); err != nil {
				return err
			}
			pw, err := readPassword(password)
			if err != nil {
				return err
			}
			sess, err := a.auth.SignUp(ctx, name, email, pw)
			if err != nil {
				return err
			}
			if err := a.store.Hydrate(ctx); err != nil {
				fmt.Printf("(sync skipped: %v)\n", err)
			}
			fmt.Printf("Welcome, %s! Signed in as %s\n", sess.Name, sess.Email)
			return nil
		}),
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	cmd.MarkFlagRequired("email")
	return cmd
}

func loginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			if err := requireAuth(a); err != nil {
				return err
			}
			pw, err := readPassword(password)
			if err != nil {
				return err
			}
			sess, err := a.auth.SignIn(ctx, email, pw)
			if err != nil {
				return err
			}
			if err := a.store.Hydrate(ctx); err != nil {
				fmt.Printf("(sync skipped: %v)\n", err)
			}
			snap := a.store.Snapshot()
			fmt.Printf("Signed in as %s\n", sess.Email)
			fmt.Printf("%d classes, %d assignments, %d notes\n", len(snap.Classes), len(snap.Assignments), len(snap.Notes))
			return nil
		}),
	}

	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	cmd.MarkFlagRequired("email")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			if err := requireAuth(a); err != nil {
				return err
			}
			if err := a.auth.SignOut(ctx); err != nil {
				return err
			}
			fmt.Println("Signed out.")
			return nil
		}),
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			sess := a.session(ctx)
			if sess == nil {
				fmt.Println("Not signed in.")
				return nil
			}
			user := a.store.Snapshot().User
			fmt.Printf("%s <%s>\n", user.Name, user.Email)
			fmt.Println(a.st.Muted.Render("session expires " + sess.ExpiresAt.Format("2006-01-02 15:04")))
			return nil
		}),
	}
}
