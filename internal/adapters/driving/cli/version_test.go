package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd_PrintsBuildInfo(t *testing.T) {
	saved := version
	version = "1.2.3"
	t.Cleanup(func() { version = saved })

	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "codeassist version 1.2.3")
	assert.Contains(t, out, runtime.GOOS+"/"+runtime.GOARCH)
}

func TestVersionCmd_RejectsArgs(t *testing.T) {
	_, _, err := execute(t, "version", "extra")
	assert.Error(t, err)
}

func TestVersionCmd_DoesNotLoadServices(t *testing.T) {
	loaded := false
	SetLoader(func(context.Context) (Services, io.Closer, error) {
		loaded = true
		return Services{}, nil, errors.New("loader must not run")
	})
	t.Cleanup(func() { SetLoader(nil) })

	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, Execute(context.Background()))
	assert.False(t, loaded)
	assert.Contains(t, out.String(), "codeassist version")
}
