// Package platform resolves per-user file locations.
package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultAppName names the config and data directories.
const DefaultAppName = "taskflow"

// Paths holds the file locations for one app name.
type Paths struct {
	ConfigPath string
	DataDir    string
	DBPath     string
	JSONPath   string
	BackupDir  string
}

// Options selects which paths to resolve.
type Options struct {
	AppName string
	// DevMode appends -dev to the app name so development runs never touch
	// real data.
	DevMode bool
	// Home, when set, keeps config and data together under one directory.
	Home string
}

// Env is the part of the process environment path resolution reads.
type Env struct {
	GOOS          string
	Getenv        func(string) string
	UserConfigDir string
	UserDataDir   string
}

// CurrentEnv captures the running process environment.
func CurrentEnv() (Env, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return Env{}, fmt.Errorf("user config dir: %w", err)
	}
	dataDir := configDir
	if runtime.GOOS != "windows" && runtime.GOOS != "darwin" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Env{}, fmt.Errorf("user home dir: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return Env{
		GOOS:          runtime.GOOS,
		Getenv:        os.Getenv,
		UserConfigDir: configDir,
		UserDataDir:   dataDir,
	}, nil
}

// DefaultPathsWithOptions resolves paths for the running process.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	appName := appDirName(opts)
	if home := strings.TrimSpace(opts.Home); home != "" {
		return Portable(home, appName)
	}
	env, err := CurrentEnv()
	if err != nil {
		return Paths{}, err
	}
	return env.Resolve(appName)
}

// Resolve returns the paths for appName. XDG variables apply on unix-likes
// other than macOS; APPDATA and LOCALAPPDATA apply on windows.
func (e Env) Resolve(appName string) (Paths, error) {
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return Paths{}, errors.New("empty app name")
	}
	if e.UserConfigDir == "" || e.UserDataDir == "" {
		return Paths{}, errors.New("empty base dirs")
	}
	getenv := e.Getenv
	if getenv == nil {
		getenv = func(string) string { return "" }
	}

	configBase, dataBase := e.UserConfigDir, e.UserDataDir
	override := func(base *string, name string) {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			*base = v
		}
	}
	switch e.GOOS {
	case "windows":
		override(&configBase, "APPDATA")
		override(&dataBase, "LOCALAPPDATA")
	case "darwin":
	default:
		override(&configBase, "XDG_CONFIG_HOME")
		override(&dataBase, "XDG_DATA_HOME")
	}
	return layout(filepath.Join(configBase, appName), filepath.Join(dataBase, appName), appName), nil
}

// Portable returns paths that all live under root.
func Portable(root, appName string) (Paths, error) {
	root = strings.TrimSpace(root)
	appName = strings.TrimSpace(appName)
	if root == "" || appName == "" {
		return Paths{}, errors.New("portable paths need a root and an app name")
	}
	root = filepath.Clean(root)
	return layout(root, root, appName), nil
}

func layout(configDir, dataDir, appName string) Paths {
	return Paths{
		ConfigPath: filepath.Join(configDir, "config.toml"),
		DataDir:    dataDir,
		DBPath:     filepath.Join(dataDir, appName+".db"),
		JSONPath:   filepath.Join(dataDir, appName+".json"),
		BackupDir:  filepath.Join(dataDir, "backups"),
	}
}

func appDirName(opts Options) string {
	name := strings.TrimSpace(opts.AppName)
	if name == "" {
		name = DefaultAppName
	}
	if opts.DevMode {
		name += "-dev"
	}
	return name
}
