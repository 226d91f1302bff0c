package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/nvoisin/gymsync/pkg/api"
)

func (c *Cli) runAddExercise(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: gymsync add-exercise <workout> <exercise> [planned-sets]")
	}
	workoutID, err := parseLocalID(args[0])
	if err != nil {
		return err
	}
	exercise := args[1]

	var plannedSets *int
	if len(args) > 2 {
		n, err := strconv.Atoi(args[2])
		if err != nil || n < 1 {
			return fmt.Errorf("invalid planned sets %q: expected a positive number", args[2])
		}
		plannedSets = &n
	}

	exerciseLocalID, err := c.engine.AddExercise(ctx, workoutID, exercise, plannedSets)
	if err != nil {
		return fmt.Errorf("failed to add exercise: %w", err)
	}

	c.io.Printf("✓ Added exercise [%d] %s to workout [%d]\n", exerciseLocalID, exercise, workoutID)
	return nil
}

func (c *Cli) runAddSet(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: gymsync add-set <exercise-id> <reps> [weight] [rpe]")
	}
	exerciseID, err := parseLocalID(args[0])
	if err != nil {
		return err
	}

	reps, err := strconv.Atoi(args[1])
	if err != nil || reps < 1 {
		return fmt.Errorf("invalid reps %q: expected a positive number", args[1])
	}

	values := api.SetValues{Reps: reps}
	if len(args) > 2 {
		weight, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("invalid weight %q", args[2])
		}
		values.Weight = &weight
	}
	if len(args) > 3 {
		rpe, err := strconv.ParseFloat(args[3], 64)
		if err != nil {
			return fmt.Errorf("invalid RPE %q", args[3])
		}
		values.RPE = &rpe
	}

	if err := c.engine.AddSet(ctx, exerciseID, values); err != nil {
		return fmt.Errorf("failed to add set: %w", err)
	}

	c.io.Printf("✓ Recorded %d rep(s) for exercise [%d]\n", reps, exerciseID)
	return nil
}
