package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storycard/storycard/internal/config"
	"github.com/storycard/storycard/internal/core/throttle"
	"github.com/storycard/storycard/internal/core/youtube"
	"github.com/storycard/storycard/internal/server/handlers"
)

func TestExitCodeForError(t *testing.T) {
	upstream := fmt.Errorf("resolve: %w", youtube.ErrUpstream)
	assert.Equal(t, foundry.ExitExternalServiceUnavailable, ExitCodeForError(upstream))
	assert.Equal(t, foundry.ExitExternalServiceUnavailable, ExitCodeForError(context.DeadlineExceeded))
	assert.Equal(t, foundry.ExitFailure, ExitCodeForError(youtube.ErrInvalidURL))
	assert.Equal(t, foundry.ExitFailure, ExitCodeForError(nil))
}

func TestPoliciesFromConfig(t *testing.T) {
	policies := policiesFromConfig(config.ThrottleConfig{
		Story: config.ThrottleRule{Limit: 1, Window: 10 * time.Second},
	})

	assert.Equal(t, throttle.MetadataPolicy, policies.Metadata)
	assert.Equal(t, throttle.ProxyPolicy, policies.Proxy)
	assert.Equal(t, throttle.Policy{Name: "story", Limit: 1, Window: 10 * time.Second}, policies.Story)
}

func TestWriteVersion(t *testing.T) {
	resp := handlers.VersionResponse{
		App:      handlers.AppInfo{Name: "storycard", Version: "1.2.3", Commit: "abc", GoVersion: "go1.25"},
		Metadata: handlers.MetadataInfo{Providers: []string{"data_api", "oembed"}},
	}

	var basic bytes.Buffer
	require.NoError(t, writeVersion(&basic, resp, false, false))
	assert.Equal(t, "storycard 1.2.3\n", basic.String())

	var full bytes.Buffer
	require.NoError(t, writeVersion(&full, resp, true, false))
	assert.Contains(t, full.String(), "Commit: abc")
	assert.Contains(t, full.String(), "Metadata providers: [data_api oembed]")

	var asJSON bytes.Buffer
	require.NoError(t, writeVersion(&asJSON, resp, false, true))
	var decoded handlers.VersionResponse
	require.NoError(t, json.Unmarshal(asJSON.Bytes(), &decoded))
	assert.Equal(t, resp.Metadata.Providers, decoded.Metadata.Providers)
}

func TestOpenSink(t *testing.T) {
	stdout, err := openSink("-")
	require.NoError(t, err)
	assert.Equal(t, "-", stdout.path)
	assert.Same(t, os.Stdout, stdout.writer)

	path := filepath.Join(t.TempDir(), "nested", "out.json")
	sink, err := openSink(path)
	require.NoError(t, err)
	_, err = sink.writer.Write([]byte("{}"))
	require.NoError(t, err)
	require.NoError(t, sink.close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestBuildServicesWiresProxyIntoRenderer(t *testing.T) {
	cfg := &config.Config{}
	cfg.YouTube.APIKey = "key"

	svc, err := buildServices(cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, svc.renderer)
	require.NotNil(t, svc.proxy)
	assert.Equal(t, []string{"data_api", "oembed"}, svc.resolver.ProviderNames())
}
