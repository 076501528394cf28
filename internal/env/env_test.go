package env

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadParsesDotEnv(t *testing.T) {
	dir := t.TempDir()
	content := `
# comment
PLAIN=value
QUOTED="quoted value"
SINGLE='single'
WITH_EQUALS=a=b
MALFORMED_LINE
`
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)

	Load()

	checks := map[string]string{
		"PLAIN":       "value",
		"QUOTED":      "quoted value",
		"SINGLE":      "single",
		"WITH_EQUALS": "a=b",
	}
	for key, want := range checks {
		if got := os.Getenv(key); got != want {
			t.Errorf("%s: got %q, want %q", key, got, want)
		}
	}
}

func TestLoadMissingFileIsNoop(t *testing.T) {
	chdir(t, t.TempDir())
	Load() // must not panic or error
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup. Equivalent to testing.T.Chdir (added in go1.24).
func chdir(t *testing.T, dir string) {
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
