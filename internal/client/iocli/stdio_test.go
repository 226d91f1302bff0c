package iocli

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStdio(t *testing.T) {
	stdio := NewStdio()
	assert.NotNil(t, stdio)
}

// Println/Printf переадресуют в fmt, проверяем только что не падают
func TestPrintlnAndPrintf(t *testing.T) {
	stdio := NewStdio()

	assert.NotPanics(t, func() {
		stdio.Println("hello", "world")
	})
	assert.NotPanics(t, func() {
		stdio.Printf("test %d %s", 1, "abc")
	})
}

// withStdin подменяет os.Stdin на pipe с заданным содержимым
func withStdin(t *testing.T, input string) {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)

	go func() {
		_, _ = w.Write([]byte(input))
		_ = w.Close()
	}()

	oldStdin := os.Stdin
	t.Cleanup(func() { os.Stdin = oldStdin })
	os.Stdin = r
}

func TestReadInput(t *testing.T) {
	withStdin(t, "user input\n")

	stdio := NewStdio()
	result, err := stdio.ReadInput("Prompt: ")
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace("user input\n"), result)
}

// На pipe вместо терминала ReadPassword падает в обычный ввод
func TestReadPassword_NonTerminalFallback(t *testing.T) {
	withStdin(t, "s3cret-pass\n")

	stdio := NewStdio()
	result, err := stdio.ReadPassword("Password: ")
	require.NoError(t, err)
	assert.Equal(t, "s3cret-pass", result)
}
