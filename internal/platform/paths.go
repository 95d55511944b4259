// Package platform works out where timebox keeps its files on the current machine.
package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const defaultAppName = "timebox"

// Paths are the per-user file locations for one app name.
type Paths struct {
	ConfigPath string
	DataDir    string
	DBPath     string
	ExportDir  string
}

// Options selects the app name that namespaces every directory; DevMode appends "-dev" so a
// development build never touches the real activity list.
type Options struct {
	AppName string
	DevMode bool
}

// Base holds the OS-level roots the app directories are created under.
type Base struct {
	ConfigRoot string
	DataRoot   string
}

// envOverrides lists, per GOOS, the variables that replace the config and data roots.
var envOverrides = map[string]struct{ config, data, documents string }{
	"linux":   {config: "XDG_CONFIG_HOME", data: "XDG_DATA_HOME", documents: "XDG_DOCUMENTS_DIR"},
	"windows": {config: "APPDATA", data: "LOCALAPPDATA"},
}

// Resolve reads the running OS and environment and lays out the app directories.
func Resolve(opts Options) (Paths, error) {
	base, err := osBase()
	if err != nil {
		return Paths{}, err
	}
	return Layout(runtime.GOOS, os.Getenv, base, appName(opts))
}

// Layout is the pure half of Resolve: getenv may be nil when no variables apply.
func Layout(goos string, getenv func(string) string, base Base, app string) (Paths, error) {
	app = strings.TrimSpace(app)
	if app == "" {
		return Paths{}, errors.New("app name is required")
	}
	if base.ConfigRoot == "" || base.DataRoot == "" {
		return Paths{}, errors.New("config and data roots are required")
	}
	lookup := func(key string) string {
		if getenv == nil || key == "" {
			return ""
		}
		return strings.TrimSpace(getenv(key))
	}

	keys := envOverrides[goos]
	if v := lookup(keys.config); v != "" {
		base.ConfigRoot = v
	}
	if v := lookup(keys.data); v != "" {
		base.DataRoot = v
	}

	dataDir := filepath.Join(base.DataRoot, app)
	exportDir := filepath.Join(dataDir, "exports")
	if docs := lookup(keys.documents); docs != "" {
		exportDir = filepath.Join(docs, app)
	}
	return Paths{
		ConfigPath: filepath.Join(base.ConfigRoot, app, "config.toml"),
		DataDir:    dataDir,
		DBPath:     filepath.Join(dataDir, app+".db"),
		ExportDir:  exportDir,
	}, nil
}

func appName(opts Options) string {
	name := strings.TrimSpace(opts.AppName)
	if name == "" {
		name = defaultAppName
	}
	if opts.DevMode {
		name += "-dev"
	}
	return name
}

// osBase asks the OS for its roots. Linux keeps data under ~/.local/share rather than next to
// the config.
func osBase() (Base, error) {
	configRoot, err := os.UserConfigDir()
	if err != nil {
		return Base{}, fmt.Errorf("user config dir: %w", err)
	}
	base := Base{ConfigRoot: configRoot, DataRoot: configRoot}
	if runtime.GOOS == "linux" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Base{}, fmt.Errorf("user home dir: %w", err)
		}
		base.DataRoot = filepath.Join(home, ".local", "share")
	}
	return base, nil
}
