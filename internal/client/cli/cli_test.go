package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpclient "github.com/nvoisin/gymsync/internal/client/api"
	"github.com/nvoisin/gymsync/internal/client/auth"
	"github.com/nvoisin/gymsync/internal/client/iocli"
	"github.com/nvoisin/gymsync/internal/client/netstatus"
	"github.com/nvoisin/gymsync/internal/client/storage"
	"github.com/nvoisin/gymsync/internal/client/storage/boltdb"
	syncengine "github.com/nvoisin/gymsync/internal/client/sync"
)

// testIO собирает весь вывод в буфер и отдает заготовленные ответы
// на интерактивные вопросы
type testIO struct {
	*iocli.IOMock
	out    strings.Builder
	inputs []string
}

func newTestIO(inputs ...string) *testIO {
	tio := &testIO{inputs: inputs}
	tio.IOMock = &iocli.IOMock{
		PrintlnFunc: func(a ...any) {
			tio.out.WriteString(fmt.Sprintln(a...))
		},
		PrintfFunc: func(format string, a ...any) {
			fmt.Fprintf(&tio.out, format, a...)
		},
		WriteFunc: func(p []byte) (int, error) {
			return tio.out.Write(p)
		},
		ReadInputFunc: func(prompt string) (string, error) {
			return tio.next()
		},
		ReadPasswordFunc: func(prompt string) (string, error) {
			return tio.next()
		},
	}
	return tio
}

func (tio *testIO) next() (string, error) {
	if len(tio.inputs) == 0 {
		return "", io.EOF
	}
	v := tio.inputs[0]
	tio.inputs = tio.inputs[1:]
	return v, nil
}

func newTestCli(t *testing.T, tio *testIO, apiMock *httpclient.ClientAPIMock) (*Cli, *boltdb.Storage) {
	t.Helper()

	st, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
	})

	authService := auth.NewService(apiMock, st)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := syncengine.NewEngine(apiMock, st, st, st, authService, netstatus.NewSwitch(false), logger)

	return New(tio, authService, engine), st
}

func TestRun_UnknownCommand(t *testing.T) {
	tio := newTestIO()
	c, _ := newTestCli(t, tio, &httpclient.ClientAPIMock{})

	err := c.Run(context.Background(), "frobnicate", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
	assert.Contains(t, tio.out.String(), "Usage:")
}

func TestCreateAndList(t *testing.T) {
	tio := newTestIO()
	c, _ := newTestCli(t, tio, &httpclient.ClientAPIMock{})
	ctx := context.Background()

	require.NoError(t, c.Run(ctx, "create", []string{"Leg", "Day"}))
	require.NoError(t, c.Run(ctx, "add-exercise", []string{"1", "squat", "3"}))
	require.NoError(t, c.Run(ctx, "list", nil))

	out := tio.out.String()
	assert.Contains(t, out, "Leg Day")
	assert.Contains(t, out, "squat")
	assert.Contains(t, out, "Synced: pending")
}

func TestCreate_EmptyTitleUsesDefault(t *testing.T) {
	tio := newTestIO()
	c, _ := newTestCli(t, tio, &httpclient.ClientAPIMock{})

	require.NoError(t, c.Run(context.Background(), "create", nil))
	assert.Contains(t, tio.out.String(), "Nouvelle séance")
}

func TestStatus_NotAuthenticated(t *testing.T) {
	tio := newTestIO()
	c, _ := newTestCli(t, tio, &httpclient.ClientAPIMock{})

	require.NoError(t, c.Run(context.Background(), "status", nil))
	assert.Contains(t, tio.out.String(), "Not authenticated")
}

func TestStatus_ShowsPendingBacklog(t *testing.T) {
	tio := newTestIO()
	c, st := newTestCli(t, tio, &httpclient.ClientAPIMock{})
	ctx := context.Background()

	require.NoError(t, st.SaveAuth(ctx, &storage.AuthData{
		Username:    "nico",
		UserID:      "user-1",
		AccessToken: "token-1",
		ExpiresAt:   time.Now().Unix() + 3600,
	}))
	require.NoError(t, c.Run(ctx, "create", []string{"Leg", "Day"}))

	require.NoError(t, c.Run(ctx, "status", nil))
	out := tio.out.String()
	assert.Contains(t, out, "Authenticated")
	assert.Contains(t, out, "Pending sync: 1")
}

func TestShare_OfflineQueued(t *testing.T) {
	tio := newTestIO()
	c, st := newTestCli(t, tio, &httpclient.ClientAPIMock{})
	ctx := context.Background()

	require.NoError(t, st.SaveAuth(ctx, &storage.AuthData{
		Username:    "nico",
		UserID:      "user-1",
		AccessToken: "token-1",
		ExpiresAt:   time.Now().Unix() + 3600,
	}))
	require.NoError(t, c.Run(ctx, "create", []string{"Leg", "Day"}))

	require.NoError(t, c.Run(ctx, "share", []string{"1"}))
	assert.Contains(t, tio.out.String(), "queued")
}

func TestAddSet_InvalidArgs(t *testing.T) {
	tio := newTestIO()
	c, _ := newTestCli(t, tio, &httpclient.ClientAPIMock{})
	ctx := context.Background()

	err := c.Run(ctx, "add-set", []string{"1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage:")

	err = c.Run(ctx, "add-set", []string{"abc", "5"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid id")
}

func TestDelete_UnknownWorkout(t *testing.T) {
	tio := newTestIO()
	c, _ := newTestCli(t, tio, &httpclient.ClientAPIMock{})

	err := c.Run(context.Background(), "delete", []string{"7"})
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrWorkoutNotFound)
}
