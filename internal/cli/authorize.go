package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tickvoice/tickvoice/internal/config"
	"github.com/tickvoice/tickvoice/internal/ticktick"
)

const (
	authAttempts   = 3
	authRetryDelay = 5 * time.Second
)

var authorizeForce bool

var authorizeCmd = &cobra.Command{
	Use:   "authorize",
	Short: "Authorize access to your TickTick account",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.TickTick.ClientID == "" || cfg.TickTick.ClientSecret == "" {
			color.Red("TickTick OAuth client is not configured.")
			fmt.Println("Set TICKTICK_CLIENT_ID and TICKTICK_CLIENT_SECRET and try again.")
			return fmt.Errorf("missing ticktick client credentials")
		}

		client, err := buildTickTickClient(cfg)
		if err != nil {
			return err
		}
		return runAuthorize(cmd.Context(), client, authorizeForce)
	},
}

func init() {
	authorizeCmd.Flags().BoolVar(&authorizeForce, "force", false, "re-authorize even if a valid credential exists")
}

// runAuthorize retries the full authorize-and-verify flow with a fixed
// delay between attempts.
func runAuthorize(ctx context.Context, client *ticktick.Client, force bool) error {
	var lastErr error
	for attempt := 1; attempt <= authAttempts; attempt++ {
		if attempt > 1 {
			color.Yellow("Retrying in %s (attempt %d/%d)...", authRetryDelay, attempt, authAttempts)
			select {
			case <-time.After(authRetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := client.Authenticate(ctx, force); err != nil {
			lastErr = err
			if errors.Is(err, ticktick.ErrAuthorizationTimeout) {
				color.Red("Timed out waiting for the authorization callback.")
			} else {
				color.Red("Authorization failed: %v", err)
			}
			continue
		}

		// Verify the credential actually works before declaring success.
		if err := client.LoadProjects(ctx); err != nil {
			lastErr = fmt.Errorf("verify credential: %w", err)
			color.Red("Credential verification failed: %v", err)
			continue
		}

		color.Green("Authorization successful. %d projects visible.", len(client.Projects()))
		return nil
	}

	color.Red("Authorization failed after %d attempts.", authAttempts)
	fmt.Println("Check that:")
	fmt.Println("  - your TickTick OAuth app's redirect URI matches the callback port")
	fmt.Println("  - no other process is bound to the callback port")
	fmt.Println("  - you completed the browser consent within 60 seconds")
	return fmt.Errorf("authorize: %w", lastErr)
}
