package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/signaldesk/sigdesk-go/internal/api"
	"github.com/signaldesk/sigdesk-go/internal/auth"
	"github.com/signaldesk/sigdesk-go/internal/config"
)

var loginEmail string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with the signalDesk backend",
	Long: `Authenticate with the signalDesk backend and store the session token
in ~/.sigdesk/token for later use by watch.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Drop the stored session token",
	RunE:  runLogout,
}

func init() {
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "account email")
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)

	email := loginEmail
	if email == "" {
		fmt.Print("Email: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		email = strings.TrimSpace(line)
	}

	fmt.Print("Password: ")
	line, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	password := strings.TrimSpace(line)

	tokens := auth.NewFileStore(config.TokenPath())
	rest := api.New(api.Config{
		BaseURL:        cfg.Server.APIURL,
		AIBaseURL:      cfg.Server.AIURL,
		RequestTimeout: cfg.RequestTimeout(),
		ResourceCeil:   cfg.ResourceTimeout(),
	}, tokens)

	session, err := rest.Login(context.Background(), email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Printf("✅ Logged in as %s\n", session.Name)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	tokens := auth.NewFileStore(config.TokenPath())
	if err := tokens.SetToken(""); err != nil {
		return fmt.Errorf("failed to drop token: %w", err)
	}
	fmt.Println("✅ Logged out.")
	return nil
}
