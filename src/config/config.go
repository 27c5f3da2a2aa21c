package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIKeyPath  = "/run/secrets/api_keys/gemini"
	APIKeyPathEnvVar   = "GEMINI_API_KEY_FILE"
	DisplayModeEnvVar  = "DISPLAY_MODE"
	DisplayModeToken   = "token"
	DisplayModePreview = "preview"
	DefaultModel       = "gemini-1.5-flash"
)

type LoadOptions struct {
	APIKeyPathOverride  string
	DisplayModeOverride string
}

type Config struct {
	APIKey            string
	APIKeyPath        string
	Model             string
	Endpoint          string
	EnableFileLogging bool
	Hotkey            string
	DisplayMode       string
	ReplyLogDir       string
	// WindowTitleMarkers identify the application's own main window
	// among all visible top-level windows (local dev-server origin or
	// the packaged app's window title).
	WindowTitleMarkers []string
	SettleDelayMs      int
	OverlayDismissSec  int
	AnswerDeadlineSec  int
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Load configuration from sources in priority order:
	// 1) .env in the application (executable) directory
	// 2) If not found, use SCREEN_MCQ_LLM env var as a path to a config file
	envPath := resolveEnvPath()
	dotenvValues := readDotenvValues(envPath)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	}

	apiKeyPath := resolveAPIKeyPath(opts, dotenvValues)

	cfg := &Config{
		APIKey:             resolveAPIKey(apiKeyPath),
		APIKeyPath:         apiKeyPath,
		Model:              getEnvWithDefault("MODEL", DefaultModel),
		Endpoint:           os.Getenv("ENDPOINT"),
		EnableFileLogging:  strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")) == "true",
		Hotkey:             getEnvWithDefault("HOTKEY", "Ctrl+Alt+A"),
		DisplayMode:        resolveDisplayModeValue(opts),
		ReplyLogDir:        getEnvWithDefault("REPLY_LOG_DIR", "logs"),
		WindowTitleMarkers: parseTitleMarkers(os.Getenv("WINDOW_TITLE_MARKERS")),
		SettleDelayMs:      getEnvNonNegInt("SETTLE_DELAY_MS", 500),
		OverlayDismissSec:  getEnvInt("OVERLAY_DISMISS_SEC", 6),
		AnswerDeadlineSec:  getEnvInt("ANSWER_DEADLINE_SEC", 20),
	}

	return cfg, nil
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}

	execDir := filepath.Dir(execPath)
	exeEnv := filepath.Join(execDir, ".env")
	if _, err := os.Stat(exeEnv); err == nil {
		return exeEnv
	}

	if alt := os.Getenv("SCREEN_MCQ_LLM"); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func readDotenvValues(envPath string) map[string]string {
	if envPath == "" {
		return map[string]string{}
	}

	values, err := godotenv.Read(envPath)
	if err != nil {
		return map[string]string{}
	}

	return values
}

func resolveAPIKeyPath(opts LoadOptions, dotenvValues map[string]string) string {
	keyPath := DefaultAPIKeyPath

	if envPath := strings.TrimSpace(os.Getenv(APIKeyPathEnvVar)); envPath != "" {
		keyPath = envPath
	}

	if dotenvPath := strings.TrimSpace(dotenvValues[APIKeyPathEnvVar]); dotenvPath != "" {
		keyPath = dotenvPath
	}

	if overridePath := strings.TrimSpace(opts.APIKeyPathOverride); overridePath != "" {
		keyPath = overridePath
	}

	return keyPath
}

func resolveAPIKey(keyPath string) string {
	if data, err := os.ReadFile(keyPath); err == nil {
		if fileKey := strings.TrimSpace(string(data)); fileKey != "" {
			return fileKey
		}
	}

	return os.Getenv("GEMINI_API_KEY")
}

func parseTitleMarkers(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{"localhost:", "Screen MCQ"}
	}

	var markers []string
	for _, marker := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(marker); trimmed != "" {
			markers = append(markers, trimmed)
		}
	}
	return markers
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

// getEnvNonNegInt accepts zero, for delays that may be disabled
// outright.
func getEnvNonNegInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return defaultValue
}

func resolveDisplayMode(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "full", DisplayModePreview:
		return DisplayModePreview
	case DisplayModeToken:
		return DisplayModeToken
	default:
		return DisplayModeToken
	}
}

func resolveDisplayModeValue(opts LoadOptions) string {
	if override := strings.TrimSpace(opts.DisplayModeOverride); override != "" {
		return resolveDisplayMode(override)
	}
	return resolveDisplayMode(os.Getenv(DisplayModeEnvVar))
}
