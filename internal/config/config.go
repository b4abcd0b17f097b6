// Package config resolves runtime configuration from environment variables
// with sensible defaults, and persists the small set of player settings that
// survive between runs (volume, last station).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lemon-codes/netradio/internal/models"
)

const (
	// StoreCSV selects the CSV-file station store.
	StoreCSV = "csv"
	// StoreSQLite selects the SQLite station store.
	StoreSQLite = "sqlite"
)

const (
	defaultListenAddr        = "127.0.0.1:8090"
	defaultRefreshDebounceMS = 500
	defaultDataDirName       = ".netradio"
	defaultStationsFileName  = "stations.csv"
	defaultDatabaseFileName  = "stations.db"
	defaultSettingsFileName  = "settings.yaml"
)

// ResolveDataDir returns the directory holding the stations file, database,
// and settings. The directory is created when it does not yet exist.
func ResolveDataDir() (string, error) {
	dir := strings.TrimSpace(os.Getenv("NETRADIO_DATA_DIR"))
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, defaultDataDirName)
	}

	if strings.HasPrefix(dir, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			dir = filepath.Join(home, dir[1:])
		}
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", err
	}

	return abs, nil
}

// StoreBackend returns which station store implementation to use.
func StoreBackend() (string, error) {
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("NETRADIO_STORE")))
	switch backend {
	case "":
		return StoreCSV, nil
	case StoreCSV, StoreSQLite:
		return backend, nil
	default:
		return "", fmt.Errorf("unsupported NETRADIO_STORE value %q", backend)
	}
}

// StationsFile returns the path of the CSV stations file inside the data dir.
func StationsFile(dataDir string) string {
	if path := strings.TrimSpace(os.Getenv("NETRADIO_STATIONS_FILE")); path != "" {
		return path
	}
	return filepath.Join(dataDir, defaultStationsFileName)
}

// DatabaseFile returns the path of the SQLite database inside the data dir.
func DatabaseFile(dataDir string) string {
	if path := strings.TrimSpace(os.Getenv("NETRADIO_DATABASE_FILE")); path != "" {
		return path
	}
	return filepath.Join(dataDir, defaultDatabaseFileName)
}

// ListenAddr returns the TCP address the control API should bind to. Setting
// NETRADIO_LISTEN_ADDR to "-" disables the API.
func ListenAddr() string {
	addr := strings.TrimSpace(os.Getenv("NETRADIO_LISTEN_ADDR"))
	if addr == "" {
		return defaultListenAddr
	}
	return addr
}

// ValidateListenAddr ensures the configured listen address is restricted to
// localhost; the control API carries no authentication.
func ValidateListenAddr(addr string) error {
	addr = strings.TrimSpace(strings.ToLower(addr))
	if strings.HasPrefix(addr, "127.0.0.1:") || strings.HasPrefix(addr, "localhost:") || strings.HasPrefix(addr, "[::1]:") {
		return nil
	}
	return errors.New("listen address must bind to localhost for security")
}

// RefreshDebounce returns the duration to wait before reloading the catalog
// after stations-file change events.
func RefreshDebounce() time.Duration {
	value := strings.TrimSpace(os.Getenv("NETRADIO_REFRESH_DEBOUNCE_MS"))
	if value == "" {
		return time.Duration(defaultRefreshDebounceMS) * time.Millisecond
	}
	ms, err := strconv.Atoi(value)
	if err != nil || ms <= 0 {
		return time.Duration(defaultRefreshDebounceMS) * time.Millisecond
	}
	return time.Duration(ms) * time.Millisecond
}

// Settings are the player preferences persisted between runs.
type Settings struct {
	Volume        int `yaml:"volume"`
	LastStationID int `yaml:"last_station_id"`
}

// DefaultSettings returns full volume and no remembered station.
func DefaultSettings() Settings {
	return Settings{
		Volume:        models.MaxVolume,
		LastStationID: -1,
	}
}

// LoadSettings reads the settings file from the data dir, falling back to
// defaults when the file is missing. Out-of-range values are clamped rather
// than rejected; a hand-edited file should not prevent startup.
func LoadSettings(dataDir string) (Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(filepath.Join(dataDir, defaultSettingsFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, err
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return DefaultSettings(), err
	}

	if settings.Volume < models.MinVolume {
		settings.Volume = models.MinVolume
	}
	if settings.Volume > models.MaxVolume {
		settings.Volume = models.MaxVolume
	}
	if settings.LastStationID < 0 {
		settings.LastStationID = -1
	}
	return settings, nil
}

// SaveSettings writes the settings file into the data dir.
func SaveSettings(dataDir string, settings Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dataDir, defaultSettingsFileName), data, 0o644)
}
