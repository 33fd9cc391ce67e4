package datadir

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// EnvFileEnvVar names a single .env file to load instead of the defaults.
const EnvFileEnvVar = "IMGSEEK_ENV_FILE"

// LoadEnv loads .env files into the process environment. Variables already
// set are never overridden, and earlier files win over later ones.
//
// Search order:
//  1. IMGSEEK_ENV_FILE (if set, only that file is loaded)
//  2. {datadir}/.env
//  3. ./.env
func LoadEnv(dataRoot string) error {
	files := FindEnvFiles(dataRoot)
	if len(files) == 0 {
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}
	return nil
}

// FindEnvFiles returns the .env files LoadEnv would read, skipping missing ones.
func FindEnvFiles(dataRoot string) []string {
	var candidates []string
	if override := os.Getenv(EnvFileEnvVar); override != "" {
		candidates = []string{override}
	} else {
		if dataRoot != "" {
			candidates = append(candidates, filepath.Join(dataRoot, ".env"))
		}
		if cwd, err := os.Getwd(); err == nil {
			candidates = append(candidates, filepath.Join(cwd, ".env"))
		}
	}

	seen := make(map[string]bool, len(candidates))
	var found []string
	for _, p := range candidates {
		clean := filepath.Clean(p)
		if seen[clean] {
			continue
		}
		seen[clean] = true
		if _, err := os.Stat(p); err == nil {
			found = append(found, p)
		}
	}
	return found
}
