package cli

import (
	"context"
	"fmt"
	"time"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Status ===")
	c.io.Println()

	isAuth, err := c.authService.IsAuthenticated(ctx)
	if err != nil {
		return fmt.Errorf("failed to check authentication: %w", err)
	}

	if !isAuth {
		c.io.Println("Status: Not authenticated")
		c.io.Println()
		c.io.Println("Run 'gymsync login' to authenticate.")
		return nil
	}

	sess, err := c.authService.Session(ctx)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	expiresAt := time.Unix(sess.ExpiresAt, 0)
	c.io.Println("Status: Authenticated")
	c.io.Printf("Username: %s\n", sess.Username)
	c.io.Printf("Token expires: %s\n", expiresAt.Format(time.RFC3339))

	// Бэклог несинхронизированных мутаций
	pending, err := c.engine.PendingCount(ctx)
	if err != nil {
		c.io.Printf("\nWarning: failed to get pending sync count: %v\n", err)
		return nil
	}

	c.io.Println()
	if pending > 0 {
		c.io.Printf("Pending sync: %d mutation(s) waiting to be pushed\n", pending)
		c.io.Println("Run 'gymsync sync' to synchronize with server.")
	} else {
		c.io.Println("✓ All workouts synchronized with server")
	}

	return nil
}
