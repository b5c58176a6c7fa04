// Package where resolves application-specific filesystem paths across platforms.
package where

import (
	"os"
	"path/filepath"

	"github.com/samber/lo"
	"github.com/sampletvinput/tvplay/constant"
	"github.com/sampletvinput/tvplay/filesystem"
)

// EnvConfigPath overrides the default configuration directory.
const EnvConfigPath = "TVPLAY_CONFIG_PATH"

func ensureDir(path string) string {
	lo.Must0(filesystem.API().MkdirAll(path, os.ModePerm))
	return path
}

// Config resolves the configuration directory, honouring EnvConfigPath.
func Config() string {
	if custom, ok := os.LookupEnv(EnvConfigPath); ok {
		return ensureDir(custom)
	}

	base := lo.Must(os.UserConfigDir())
	return ensureDir(filepath.Join(base, constant.App))
}

// Cache resolves the persistent cache directory.
func Cache() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = filepath.Join(".", "cache")
	}
	return ensureDir(filepath.Join(base, constant.App))
}

// Logs resolves the directory holding the daily log files.
func Logs() string {
	return ensureDir(filepath.Join(Config(), "logs"))
}

// Sockets resolves the directory where engine IPC sockets are created.
// It always lives on the real filesystem since the engine process has to reach it.
func Sockets() string {
	path := filepath.Join(os.TempDir(), constant.App, "ipc")
	lo.Must0(os.MkdirAll(path, 0o700))
	return path
}
