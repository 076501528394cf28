// Package env loads KEY=VALUE pairs from a .env file in the working
// directory, so API keys referenced as ${VAR} from providers.yaml can
// live in a gitignored file instead of the shell profile.
package env

import (
	"os"
	"strings"
)

// Load reads .env and sets each entry with os.Setenv. A missing file is
// not an error; system environment variables still apply. Lines starting
// with # and blank lines are skipped; surrounding quotes are stripped.
func Load() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
		os.Setenv(key, value)
	}
}
