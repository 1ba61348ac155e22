package startup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
	if info.OS == "" || info.Arch == "" {
		t.Errorf("Expected OS and Arch to be set, got %q/%q", info.OS, info.Arch)
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
		setEnv       bool
	}{
		{"Returns default when env var not set", "TEST_UNSET_VAR", "default", "", "default", false},
		{"Returns env value when set", "TEST_SET_VAR", "default", "custom", "custom", true},
		{"Treats empty env var as unset", "TEST_EMPTY_VAR", "default", "", "default", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setEnv {
				t.Setenv(tt.key, tt.envValue)
			} else {
				os.Unsetenv(tt.key)
			}

			if got := getEnv(tt.key, tt.defaultValue); got != tt.want {
				t.Errorf("getEnv(%q, %q) = %q, want %q", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestGetRoutesWalksRouter(t *testing.T) {
	router := mux.NewRouter()
	router.Path("/api/records").Methods("GET", "POST").Name("records")
	router.Path("/health").Methods("GET").Name("health")

	routes, err := GetRoutes(router)
	if err != nil {
		t.Fatalf("GetRoutes: %v", err)
	}
	if len(routes) != 3 {
		t.Fatalf("Expected 3 method/path entries, got %d", len(routes))
	}

	seen := make(map[string]string)
	for _, r := range routes {
		seen[r.Method+" "+r.Path] = r.Name
	}
	if seen["GET /api/records"] != "records" || seen["POST /api/records"] != "records" {
		t.Errorf("records route missing or misnamed: %v", seen)
	}
	if seen["GET /health"] != "health" {
		t.Errorf("health route missing or misnamed: %v", seen)
	}
}

func TestEnsureWritableDir(t *testing.T) {
	base := t.TempDir()

	t.Run("creates missing directory", func(t *testing.T) {
		dir := filepath.Join(base, "frames")
		if err := ensureWritableDir(dir, "frames"); err != nil {
			t.Fatalf("ensureWritableDir: %v", err)
		}
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("Expected directory at %s, err=%v", dir, err)
		}
	})

	t.Run("accepts existing directory", func(t *testing.T) {
		if err := ensureWritableDir(base, "cache"); err != nil {
			t.Fatalf("ensureWritableDir on existing dir: %v", err)
		}
	})

	t.Run("rejects regular file", func(t *testing.T) {
		file := filepath.Join(base, "not-a-dir")
		if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := ensureWritableDir(file, "uploads"); err == nil {
			t.Error("Expected error for path that is a regular file")
		}
	})

	t.Run("removes write marker", func(t *testing.T) {
		dir := filepath.Join(base, "previews")
		if err := ensureWritableDir(dir, "previews"); err != nil {
			t.Fatalf("ensureWritableDir: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, ".write-test")); !os.IsNotExist(err) {
			t.Error("Expected write marker to be cleaned up")
		}
	})
}
