package cli

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// OverrideEnvVar names a .env path that wins over the --env flag.
const OverrideEnvVar = "NEWSALERT_ENV_FILE"

// EnvLoader loads a .env file chosen by flag, override variable or fallback.
type EnvLoader struct {
	value       *string
	defaultPath string
}

// AddEnvFlag registers an --env flag and returns an EnvLoader.
func AddEnvFlag(fs *flag.FlagSet, defaultPath, description string) *EnvLoader {
	if fs == nil {
		fs = flag.CommandLine
	}
	if defaultPath == "" {
		defaultPath = ".env"
	}
	if description == "" {
		description = "Path to the .env file"
	}
	return &EnvLoader{
		value:       fs.String("env", defaultPath, description),
		defaultPath: defaultPath,
	}
}

// Candidates lists the files Load tries, in order, without duplicates.
func (l *EnvLoader) Candidates() []string {
	if l == nil {
		return nil
	}

	var out []string
	add := func(path string) {
		path = strings.TrimSpace(path)
		if path == "" {
			return
		}
		for _, existing := range out {
			if existing == path {
				return
			}
		}
		out = append(out, path)
	}

	add(os.Getenv(OverrideEnvVar))
	requested := ""
	if l.value != nil {
		requested = strings.TrimSpace(*l.value)
	}
	if requested == "" {
		requested = l.defaultPath
	}
	add(requested)
	add(filepath.Base(requested))
	add(l.defaultPath)
	return out
}

// Load applies the first candidate file that exists and parses. Values from
// the file override the process environment.
func (l *EnvLoader) Load() (string, error) {
	if l == nil {
		return "", fmt.Errorf("env loader is nil")
	}

	log.SetOutput(os.Stderr)

	candidates := l.Candidates()
	for _, path := range candidates {
		if err := godotenv.Overload(path); err != nil {
			continue
		}
		log.Printf("Loaded environment from: %s", path)
		return path, nil
	}
	return "", fmt.Errorf("failed to load env file from any of %s", strings.Join(candidates, ", "))
}
