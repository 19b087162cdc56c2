package startup

import (
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.OS == "" || info.Arch == "" {
		t.Error("Expected OS and Arch to be set")
	}
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_SET_VAR", "custom")
	if got := getEnv("TEST_SET_VAR", "default"); got != "custom" {
		t.Errorf("getEnv = %q, want custom", got)
	}
	t.Setenv("TEST_EMPTY_VAR", "")
	if got := getEnv("TEST_EMPTY_VAR", "default"); got != "default" {
		t.Errorf("getEnv on empty = %q, want default", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value        string
		defaultValue bool
		want         bool
	}{
		{"", true, true},
		{"true", false, true},
		{"0", true, false},
		{"T", false, true},
		{"FALSE", true, false},
		{"not-a-bool", true, true},
	}

	for _, tt := range tests {
		t.Setenv("TEST_BOOL", tt.value)
		if got := getEnvBool("TEST_BOOL", tt.defaultValue); got != tt.want {
			t.Errorf("getEnvBool(%q, %v) = %v, want %v", tt.value, tt.defaultValue, got, tt.want)
		}
	}
}

func TestGetEnvTyped(t *testing.T) {
	t.Setenv("TEST_INT", " 12 ")
	if got := getEnvInt("TEST_INT", 3); got != 12 {
		t.Errorf("getEnvInt = %d", got)
	}
	t.Setenv("TEST_INT", "twelve")
	if got := getEnvInt("TEST_INT", 3); got != 3 {
		t.Errorf("getEnvInt on invalid = %d", got)
	}

	t.Setenv("TEST_FLOAT", "90.5")
	if got := getEnvFloat("TEST_FLOAT", 1); got != 90.5 {
		t.Errorf("getEnvFloat = %v", got)
	}

	t.Setenv("TEST_DURATION", "90s")
	if got := getEnvDuration("TEST_DURATION", time.Second); got != 90*time.Second {
		t.Errorf("getEnvDuration = %v", got)
	}
	t.Setenv("TEST_DURATION", "-5s")
	if got := getEnvDuration("TEST_DURATION", time.Second); got != time.Second {
		t.Errorf("negative duration should fall back, got %v", got)
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("TEST_LIST", "direct, proxy,,\nscrape")
	want := []string{"direct", "proxy", "scrape"}
	if got := getEnvList("TEST_LIST", nil); !reflect.DeepEqual(got, want) {
		t.Errorf("getEnvList = %v, want %v", got, want)
	}

	t.Setenv("TEST_LIST", "   ")
	if got := getEnvList("TEST_LIST", []string{"x"}); !reflect.DeepEqual(got, []string{"x"}) {
		t.Errorf("blank list should use default, got %v", got)
	}
}

func setDirs(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("ENV_FILE", filepath.Join(root, "absent.env"))
	t.Setenv("WORK_DIR", filepath.Join(root, "work"))
	t.Setenv("OUTPUT_DIR", filepath.Join(root, "outputs"))
	t.Setenv("DATA_DIR", filepath.Join(root, "db"))
	t.Setenv("CREDENTIALS_DIR", filepath.Join(root, "creds"))
	return root
}

func TestLoadConfigDefaultsAndDirectories(t *testing.T) {
	root := setDirs(t)
	t.Setenv("PUBLIC_BASE_URL", "https://clips.example.com/")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	for _, dir := range []string{cfg.WorkDir, cfg.OutputDir, cfg.DataDir, cfg.CredentialsDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("directory %s not created: %v", dir, err)
		}
	}
	if cfg.DatabasePath != filepath.Join(root, "db", "credentials.db") {
		t.Errorf("DatabasePath = %s", cfg.DatabasePath)
	}
	if cfg.PublicBaseURL != "https://clips.example.com" {
		t.Errorf("PublicBaseURL = %s", cfg.PublicBaseURL)
	}
	if cfg.CredentialsBackend != BackendFile || cfg.RetryMaxAttempts != 3 || cfg.AttemptTimeout != 5*time.Minute {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if strings.Join(cfg.DownloadStrategies, ",") != "direct,headless,scrape,credential,proxy" {
		t.Errorf("DownloadStrategies = %v", cfg.DownloadStrategies)
	}
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	setDirs(t)
	t.Setenv("CREDENTIALS_BACKEND", "vault")

	if _, err := LoadConfig(); err == nil || !strings.Contains(err.Error(), "CREDENTIALS_BACKEND") {
		t.Errorf("LoadConfig() error = %v", err)
	}
}

func TestLoadConfigReadsEnvFile(t *testing.T) {
	root := setDirs(t)
	envFile := filepath.Join(root, "test.env")
	content := "OUTPUT_FPS=24\nPROXY_URLS=http://p1:8080,http://p2:8080\n"
	if err := os.WriteFile(envFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_FILE", envFile)
	// Cleared after the test; godotenv sets these with os.Setenv.
	t.Setenv("OUTPUT_FPS", "")
	t.Setenv("PROXY_URLS", "")
	os.Unsetenv("OUTPUT_FPS")
	os.Unsetenv("PROXY_URLS")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.OutputFPS != 24 {
		t.Errorf("OutputFPS = %d, want 24 from env file", cfg.OutputFPS)
	}
	if len(cfg.ProxyURLs) != 2 {
		t.Errorf("ProxyURLs = %v", cfg.ProxyURLs)
	}
}

func TestLoadConfigFailsOnFileInPlaceOfDir(t *testing.T) {
	root := setDirs(t)
	blocker := filepath.Join(root, "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WORK_DIR", blocker)

	if _, err := LoadConfig(); err == nil {
		t.Error("expected error when WORK_DIR is a file")
	}
}

func TestGetRoutes(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/api/jobs", func(_ http.ResponseWriter, _ *http.Request) {}).Methods("POST").Name("createJob")
	r.PathPrefix("/outputs/").Handler(nil)

	routes, err := GetRoutes(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(routes) != 2 {
		t.Fatalf("routes = %+v", routes)
	}
	if routes[0] != (RouteInfo{Method: "POST", Path: "/api/jobs", Name: "createJob"}) {
		t.Errorf("routes[0] = %+v", routes[0])
	}
	if routes[1].Method != "*" {
		t.Errorf("prefix route method = %q", routes[1].Method)
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := map[string]string{
		"/api/jobs/{id}": "api/jobs",
		"/health":        "health",
		"/":              "",
		"/outputs/":      "outputs",
	}
	for in, want := range tests {
		if got := getRouteGroup(in); got != want {
			t.Errorf("getRouteGroup(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMissingRequired(t *testing.T) {
	tools := []Tool{
		{Name: "ffmpeg", Required: true, Available: true},
		{Name: "ffprobe", Required: true},
		{Name: "yt-dlp"},
	}
	if got := MissingRequired(tools); !reflect.DeepEqual(got, []string{"ffprobe"}) {
		t.Errorf("MissingRequired = %v", got)
	}

	if tool := CheckTool("nothing", "definitely-not-a-real-binary-xyz", false); tool.Available {
		t.Error("missing binary reported available")
	}
}
