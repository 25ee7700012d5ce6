package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key")
	if err := os.WriteFile(keyFile, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	emptyFile := filepath.Join(dir, "empty")
	if err := os.WriteFile(emptyFile, []byte("\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TEST_SECRET_ENV", " from-env ")

	tests := []struct {
		name    string
		src     Source
		expect  string
		errPart string
	}{
		{name: "file wins", src: Source{Name: "key", File: keyFile, Value: "inline", Env: "TEST_SECRET_ENV"}, expect: "from-file"},
		{name: "value before env", src: Source{Value: " inline ", Env: "TEST_SECRET_ENV"}, expect: "inline"},
		{name: "env fallback", src: Source{Env: "TEST_SECRET_ENV"}, expect: "from-env"},
		{name: "missing file", src: Source{Name: "api key", File: filepath.Join(dir, "nope")}, errPart: "reading api key from file"},
		{name: "empty file", src: Source{Name: "api key", File: emptyFile}, errPart: "is empty"},
		{name: "unset env", src: Source{Name: "api key", Env: "TEST_SECRET_UNSET"}, errPart: "set TEST_SECRET_UNSET"},
		{name: "nothing", src: Source{}, errPart: "secret is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if tt.errPart != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errPart) {
					t.Fatalf("expected error containing %q, got %v", tt.errPart, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}
