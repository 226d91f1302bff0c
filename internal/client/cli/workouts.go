package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/template"
)

// parseLocalID разбирает локальный идентификатор из аргумента команды
func parseLocalID(arg string) (uint64, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: expected a number from 'gymsync list'", arg)
	}
	return id, nil
}

func (c *Cli) runList(ctx context.Context) error {
	workouts, err := c.engine.ListWorkouts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workouts: %w", err)
	}

	tmpl, err := template.New("workouts").Parse(workoutListTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	if err := tmpl.Execute(c.io, workouts); err != nil {
		return fmt.Errorf("failed to render workouts: %w", err)
	}
	return nil
}

func (c *Cli) runCreate(ctx context.Context, args []string) error {
	title := strings.Join(args, " ")

	workout, err := c.engine.CreateDraft(ctx, title)
	if err != nil {
		return fmt.Errorf("failed to create workout: %w", err)
	}

	c.io.Printf("✓ Created workout [%d] %q\n", workout.LocalID, workout.Title)
	return nil
}

func (c *Cli) runRename(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: gymsync rename <workout> <title>")
	}
	id, err := parseLocalID(args[0])
	if err != nil {
		return err
	}
	title := strings.Join(args[1:], " ")

	if err := c.engine.UpdateTitle(ctx, id, title); err != nil {
		return fmt.Errorf("failed to rename workout: %w", err)
	}

	c.io.Printf("✓ Workout [%d] renamed to %q\n", id, title)
	return nil
}

func (c *Cli) runComplete(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: gymsync complete <workout>")
	}
	id, err := parseLocalID(args[0])
	if err != nil {
		return err
	}

	if err := c.engine.CompleteWorkout(ctx, id); err != nil {
		return fmt.Errorf("failed to complete workout: %w", err)
	}

	c.io.Printf("✓ Workout [%d] completed\n", id)
	return nil
}

func (c *Cli) runDelete(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: gymsync delete <workout>")
	}
	id, err := parseLocalID(args[0])
	if err != nil {
		return err
	}

	if err := c.engine.DeleteWorkout(ctx, id); err != nil {
		return fmt.Errorf("failed to delete workout: %w", err)
	}

	c.io.Printf("✓ Workout [%d] deleted\n", id)
	return nil
}

func (c *Cli) runDuplicate(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: gymsync duplicate <workout>")
	}
	id, err := parseLocalID(args[0])
	if err != nil {
		return err
	}

	dup, err := c.engine.DuplicateWorkout(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to duplicate workout: %w", err)
	}

	c.io.Printf("✓ Created [%d] %q with %d exercise(s) and %d set(s)\n",
		dup.Workout.LocalID, dup.Workout.Title, len(dup.Exercises), len(dup.Sets))
	return nil
}
