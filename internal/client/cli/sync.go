package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runSync(ctx context.Context) error {
	c.io.Println("=== Synchronization ===")
	c.io.Println()

	before, err := c.engine.PendingCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending count: %w", err)
	}

	c.io.Printf("Pending mutations: %d\n", before)
	c.io.Println("Starting synchronization with server...")

	// Flush по протоколу завершается pull, отдельный pull не нужен
	if err := c.engine.Flush(ctx); err != nil {
		return fmt.Errorf("synchronization failed: %w", err)
	}

	after, err := c.engine.PendingCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending count: %w", err)
	}

	c.io.Println()
	c.io.Printf("✓ Synchronization finished: %d pushed, %d still pending\n", before-after, after)
	if after > 0 {
		c.io.Println("Some mutations could not be pushed; they will be retried on the next sync.")
	}

	return nil
}
