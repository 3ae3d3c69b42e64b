package application

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

const (
	// AppName is the application name used for directories and identification
	AppName = "recstore"

	// ConfigFileName is the INI file read from the application directory
	ConfigFileName = "config.ini"

	// DatabaseFileName is the default bbolt file inside the application directory
	DatabaseFileName = "recstore.db"

	// EnvHome overrides the application directory when set
	EnvHome = "RECSTORE_HOME"
)

var (
	once   sync.Once
	appDir string
	errDir error
)

// GetApplicationDirectory returns the recstore directory path.
// RECSTORE_HOME wins when set, then:
// Linux: ~/.config/recstore (via os.UserConfigDir)
// Windows: C:\Users\{username}\AppData\Local\recstore (via os.UserCacheDir)
func GetApplicationDirectory() (string, error) {
	once.Do(lazyLoad)

	if errDir != nil {
		return "", errDir
	}

	return appDir, nil
}

// DefaultConfigPath returns the config.ini path inside the application directory.
func DefaultConfigPath() (string, error) {
	dir, err := GetApplicationDirectory()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, ConfigFileName), nil
}

// DefaultDatabasePath returns the database path inside the application directory.
func DefaultDatabasePath() (string, error) {
	dir, err := GetApplicationDirectory()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, DatabaseFileName), nil
}

func lazyLoad() {
	appDir, errDir = resolveDirectory(os.Getenv(EnvHome), runtime.GOOS)
}

func resolveDirectory(home, goos string) (string, error) {
	if home != "" {
		return filepath.Clean(home), nil
	}

	var (
		baseDir string
		err     error
	)

	switch goos {
	case "windows":
		// Windows: use AppData\Local (via UserCacheDir)
		baseDir, err = os.UserCacheDir()
	default:
		// Linux/others: use ~/.config (via UserConfigDir)
		baseDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}

	return filepath.Join(baseDir, AppName), nil
}
