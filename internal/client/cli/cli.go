package cli

import (
	"context"
	"fmt"

	"github.com/nvoisin/gymsync/internal/client/auth"
	"github.com/nvoisin/gymsync/internal/client/iocli"
	"github.com/nvoisin/gymsync/internal/client/sync"
)

// Cli связывает команды терминала с сервисом авторизации и движком
// синхронизации
type Cli struct {
	io          iocli.IO
	authService *auth.Service
	engine      *sync.Engine
}

func New(io iocli.IO, authService *auth.Service, engine *sync.Engine) *Cli {
	return &Cli{
		io:          io,
		authService: authService,
		engine:      engine,
	}
}

// Run выполняет одну команду. Ошибку печатает вызывающий.
func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	switch command {
	case "register":
		return c.runRegister(ctx)
	case "login":
		return c.runLogin(ctx)
	case "logout":
		return c.runLogout(ctx)
	case "status":
		return c.runStatus(ctx)
	case "list":
		return c.runList(ctx)
	case "create":
		return c.runCreate(ctx, args)
	case "rename":
		return c.runRename(ctx, args)
	case "add-exercise":
		return c.runAddExercise(ctx, args)
	case "add-set":
		return c.runAddSet(ctx, args)
	case "complete":
		return c.runComplete(ctx, args)
	case "delete":
		return c.runDelete(ctx, args)
	case "duplicate":
		return c.runDuplicate(ctx, args)
	case "share":
		return c.runShare(ctx, args)
	case "sync":
		return c.runSync(ctx)
	default:
		c.PrintUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

// PrintUsage печатает справку по командам
func (c *Cli) PrintUsage() {
	c.io.Printf("%s", usageText)
}
