package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runLogin(ctx context.Context) error {
	c.io.Println("=== Login ===")
	c.io.Println()

	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	c.io.Println()
	c.io.Println("Authenticating...")

	auth, err := c.authService.Login(ctx, username, password)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Login successful!")
	c.io.Printf("Username: %s\n", auth.Username)

	// Стартовая синхронизация: полный pull, затем отправка накопленного
	c.io.Println()
	c.io.Println("Syncing workouts...")
	if err := c.engine.Bootstrap(ctx); err != nil {
		// Логин уже состоялся, неудачная синхронизация его не отменяет
		c.io.Printf("Warning: initial sync failed: %v\n", err)
		return nil
	}
	c.io.Println("✓ Workouts are up to date.")

	return nil
}
