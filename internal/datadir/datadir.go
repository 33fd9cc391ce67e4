package datadir

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	// DefaultDirName is the default data directory name under $HOME.
	DefaultDirName = ".imgseek"

	// EnvVar is the environment variable that overrides the data directory.
	EnvVar = "IMGSEEK_DATA_DIR"

	configFile  = "client.json"
	historyFile = "history.db"
	logFile     = "imgseek.log"
)

// DataDir resolves every file imgseek keeps on disk.
type DataDir struct {
	root string
}

// New returns a DataDir rooted at the resolved data directory. It does not
// create anything; call Ensure for that.
//
// Resolution priority:
//  1. explicit argument (the --data-dir flag)
//  2. IMGSEEK_DATA_DIR, see EnvValue
//  3. ~/.imgseek/
func New(explicit string) (*DataDir, error) {
	root, err := resolveRoot(explicit)
	if err != nil {
		return nil, err
	}
	return &DataDir{root: root}, nil
}

// Root returns the base data directory path.
func (d *DataDir) Root() string { return d.root }

// ConfigPath returns {root}/client.json.
func (d *DataDir) ConfigPath() string { return filepath.Join(d.root, configFile) }

// HistoryPath returns {root}/history.db.
func (d *DataDir) HistoryPath() string { return filepath.Join(d.root, historyFile) }

// LogPath returns {root}/imgseek.log.
func (d *DataDir) LogPath() string { return filepath.Join(d.root, logFile) }

// Ensure creates the root directory with 0700 permissions.
func (d *DataDir) Ensure() error {
	if err := os.MkdirAll(d.root, 0700); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", d.root, err)
	}
	return nil
}

// EnvValue returns IMGSEEK_DATA_DIR from the process environment or, when
// unset there, from the .env files that do not live in the data directory
// itself (IMGSEEK_ENV_FILE or ./.env).
func EnvValue() string {
	if dir := os.Getenv(EnvVar); dir != "" {
		return dir
	}
	for _, file := range FindEnvFiles("") {
		vars, err := godotenv.Read(file)
		if err != nil {
			continue
		}
		if dir := vars[EnvVar]; dir != "" {
			return dir
		}
	}
	return ""
}

func resolveRoot(explicit string) (string, error) {
	dir := explicit
	if dir == "" {
		dir = EnvValue()
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir = filepath.Join(home, DefaultDirName)
	}
	return dir, nil
}
