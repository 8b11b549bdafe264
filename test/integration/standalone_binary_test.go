package integration

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildStandaloneBinary builds cmd/storycard and copies it outside the module
// so no repo-relative config or assets can leak into the run.
func buildStandaloneBinary(t *testing.T) (binary string, workDir string) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("standalone binary copy/exec test is unix-focused")
	}

	goMod, err := exec.Command("go", "env", "GOMOD").Output()
	require.NoError(t, err, "go env GOMOD")
	goModPath := strings.TrimSpace(string(goMod))
	require.NotEmpty(t, goModPath, "go env GOMOD returned empty")

	buildPath := filepath.Join(t.TempDir(), "storycard")
	build := exec.Command("go", "build", "-o", buildPath, "./cmd/storycard")
	build.Dir = filepath.Dir(goModPath)
	build.Env = os.Environ()
	out, err := build.CombinedOutput()
	require.NoError(t, err, "go build:\n%s", out)

	workDir = t.TempDir()
	binary = filepath.Join(workDir, "storycard")
	data, err := os.ReadFile(buildPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(binary, data, 0o755))

	return binary, workDir
}

// runStandalone returns stdout, with stderr appended on failure for diagnostics.
func runStandalone(t *testing.T, binary, workDir string, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	c := exec.Command(binary, args...)
	c.Stdout = &stdout
	c.Stderr = &stderr
	c.Dir = workDir
	c.Env = append(os.Environ(),
		"HOME="+workDir,
		"XDG_CONFIG_HOME="+filepath.Join(workDir, ".config"),
		"YOUTUBE_API_KEY=",
		"STORYCARD_YOUTUBE_API_KEY=",
	)
	err := c.Run()
	if err != nil {
		return stdout.String() + stderr.String(), err
	}
	return stdout.String(), nil
}

func TestStandaloneBinaryWorksOutsideRepo(t *testing.T) {
	binary, workDir := buildStandaloneBinary(t)

	t.Run("help lists story commands", func(t *testing.T) {
		out, err := runStandalone(t, binary, workDir, "--help")
		require.NoError(t, err, out)
		for _, name := range []string{"serve", "metadata", "render", "version", "health"} {
			assert.Contains(t, out, name)
		}
	})

	t.Run("version json", func(t *testing.T) {
		out, err := runStandalone(t, binary, workDir, "version", "--json")
		require.NoError(t, err, out)

		var resp struct {
			App struct {
				Name string `json:"name"`
			} `json:"app"`
			Metadata struct {
				Providers []string `json:"providers"`
			} `json:"metadata"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Equal(t, "storycard", resp.App.Name)
		assert.Equal(t, []string{"oembed"}, resp.Metadata.Providers, "no API key configured")
	})

	t.Run("render palette needs no network", func(t *testing.T) {
		out, err := runStandalone(t, binary, workDir, "render", "--palette")
		require.NoError(t, err, out)
		assert.Contains(t, out, "#e53e3e")
		assert.Contains(t, out, "Purple")
	})

	t.Run("metadata rejects non-video url", func(t *testing.T) {
		out, err := runStandalone(t, binary, workDir, "metadata", "https://example.com/not-a-video")
		require.Error(t, err, out)

		var exitErr *exec.ExitError
		require.True(t, errors.As(err, &exitErr))
		assert.NotZero(t, exitErr.ExitCode())
	})
}
