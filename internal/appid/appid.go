// Package appid resolves the application identity used for the CLI name, env
// prefix, config directory and telemetry namespace.
package appid

import (
	"context"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/appidentity"
)

const (
	BinaryName  = "storycard"
	EnvPrefix   = "STORYCARD_"
	ConfigName  = "storycard"
	Description = "Turn a video link into a shareable 1080x1920 story card"
)

// Default returns the built-in identity used when no `.fulmen/app.yaml` is found.
func Default() *appidentity.Identity {
	return &appidentity.Identity{
		BinaryName:  BinaryName,
		EnvPrefix:   EnvPrefix,
		ConfigName:  ConfigName,
		Description: Description,
	}
}

// Get returns the discovered identity, falling back to Default. An explicit
// FULMEN_APP_IDENTITY_PATH that cannot be loaded is still an error.
func Get(ctx context.Context) (*appidentity.Identity, error) {
	identity, err := appidentity.Get(ctx)
	if err == nil && identity != nil {
		return fillDefaults(identity), nil
	}
	if explicitPathSet() {
		return nil, err
	}
	return Default(), nil
}

func fillDefaults(identity *appidentity.Identity) *appidentity.Identity {
	if identity.BinaryName == "" {
		identity.BinaryName = BinaryName
	}
	if identity.EnvPrefix == "" {
		identity.EnvPrefix = EnvPrefix
	}
	if identity.ConfigName == "" {
		identity.ConfigName = ConfigName
	}
	return identity
}

func explicitPathSet() bool {
	return strings.TrimSpace(os.Getenv(appidentity.EnvIdentityPath)) != ""
}
