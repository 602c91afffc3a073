// Package appid holds the static application identity shared by the CLI,
// the config loader and the HTTP server.
package appid

import "context"

// Identity describes how the binary names itself and its configuration.
type Identity struct {
	Vendor      string
	BinaryName  string
	EnvPrefix   string
	ConfigName  string
	Description string
}

var identity = Identity{
	Vendor:      "namelens",
	BinaryName:  "pitchscore",
	EnvPrefix:   "PITCHSCORE_",
	ConfigName:  "pitchscore",
	Description: "Rate-limited AI scoring for project pitches",
}

// Get returns the application identity. The context is accepted so callers
// keep the same shape if identity resolution ever becomes dynamic.
func Get(_ context.Context) (*Identity, error) {
	id := identity
	return &id, nil
}

// EnvName returns the environment variable name for key under the app prefix.
func EnvName(key string) string {
	return identity.EnvPrefix + key
}
