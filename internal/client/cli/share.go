package cli

import (
	"context"
	"errors"
	"fmt"

	httpclient "github.com/nvoisin/gymsync/internal/client/api"
	"github.com/nvoisin/gymsync/pkg/api"
)

func (c *Cli) runShare(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: gymsync share <workout>")
	}
	id, err := parseLocalID(args[0])
	if err != nil {
		return err
	}

	result, err := c.engine.ShareWorkout(ctx, id)
	if err != nil {
		// Бизнес-отказы сервера переводим в понятный текст
		var shareErr *httpclient.ShareError
		if errors.As(err, &shareErr) {
			switch shareErr.Code {
			case api.ErrCodeUserWithoutConsent:
				return fmt.Errorf("sharing rejected: the target user has not accepted workout sharing")
			case api.ErrCodeUserNotFound:
				return fmt.Errorf("sharing rejected: target user not found")
			}
		}
		return fmt.Errorf("failed to share workout: %w", err)
	}

	if result.Queued {
		c.io.Printf("✓ Share of workout [%d] queued; it will be sent on the next sync\n", id)
		return nil
	}
	c.io.Printf("✓ Workout [%d] shared (share id %s)\n", id, result.ShareID)
	return nil
}
