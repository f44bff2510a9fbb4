package irblaster

import (
	"io"
	"os"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pflag (not unreasonably) assumes it only ever gets called once.  The tools
// are driven from tests one after another, so each run gets a fresh
// CommandLine.
func setupPflag(args []string) {
	os.Args = args
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
}

// captureOutput runs command with stdout redirected and returns what it printed.
func captureOutput(t *testing.T, command func()) string {
	t.Helper()

	var oldStdout = os.Stdout
	defer func() {
		os.Stdout = oldStdout
	}()

	var r, w, err = os.Pipe()
	require.NoError(t, err)

	os.Stdout = w

	var done = make(chan []byte)
	go func() {
		var b, _ = io.ReadAll(r)
		done <- b
	}()

	command()

	w.Close() //nolint:gosec

	os.Stdout = oldStdout

	return string(<-done)
}

func AssertOutputContains(t *testing.T, command func(), expectedOutputContains string) {
	t.Helper()

	assert.Contains(t, captureOutput(t, command), expectedOutputContains)
}
