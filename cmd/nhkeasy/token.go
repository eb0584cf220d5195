package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"nhkeasy/pkg/auth"
	"nhkeasy/pkg/logger"
)

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Run the consent flow and print the acquired credential",
	Long: `Run the browser consent flow on its own and print a summary of the
acquired access credential without scraping anything.

Useful for checking that the consent flow still matches the site's dialogs
and for inspecting the credential's expiry.`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootstrapper := auth.NewBootstrapper(&cfg.Auth, logger.GetLogger())
	cred, err := bootstrapper.AcquireCredential(ctx)
	if err != nil {
		return fmt.Errorf("credential bootstrap failed: %w", err)
	}

	fmt.Printf("Token:    %s\n", truncateToken(cred.Token))
	fmt.Printf("Acquired: %s\n", cred.AcquiredAt.Format("2006-01-02 15:04:05 MST"))
	if cred.Claims != nil {
		if cred.Claims.Subject != "" {
			fmt.Printf("Subject:  %s\n", cred.Claims.Subject)
		}
		if !cred.Claims.ExpiresAt.IsZero() {
			fmt.Printf("Expires:  %s\n", cred.Claims.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
		}
	} else {
		fmt.Println("Claims:   (token is not a decodable JWT)")
	}
	return nil
}

func truncateToken(token string) string {
	const shown = 24
	if len(token) <= shown {
		return token
	}
	return token[:shown] + "..."
}
