package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "MEDIAVAULT_"

// Duration is a time.Duration that reads and writes as "6h", "90s", ...
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Settings holds all configuration options.
type Settings struct {
	// Backend endpoints
	APIBaseURL   string `json:"api_base_url" yaml:"api_base_url" env:"API_BASE_URL"`
	AppOrigin    string `json:"app_origin" yaml:"app_origin" env:"APP_ORIGIN"`
	GalleryPath  string `json:"gallery_path" yaml:"gallery_path" env:"GALLERY_PATH"`
	GalleryScope string `json:"gallery_scope" yaml:"gallery_scope" env:"GALLERY_SCOPE"`
	ProxyPath    string `json:"proxy_path" yaml:"proxy_path" env:"PROXY_PATH"`
	PresignPath  string `json:"presign_path" yaml:"presign_path" env:"PRESIGN_PATH"`
	UserAgent    string `json:"user_agent" yaml:"user_agent" env:"USER_AGENT"`

	// RequestTimeout of zero leaves timeouts to the transport and the caller's context.
	RequestTimeout Duration `json:"request_timeout" yaml:"request_timeout" env:"REQUEST_TIMEOUT"`

	// Auth
	TokenPath string `json:"token_path" yaml:"token_path" env:"TOKEN_PATH"`

	// Local state
	StatePath      string `json:"state_path" yaml:"state_path" env:"STATE_PATH"`
	StorageBackend string `json:"storage_backend" yaml:"storage_backend" env:"STORAGE_BACKEND"` // file, sqlite, memory

	// Cache lifetimes
	URLCacheTTL       Duration `json:"url_cache_ttl" yaml:"url_cache_ttl" env:"URL_CACHE_TTL"`
	GalleryCacheTTL   Duration `json:"gallery_cache_ttl" yaml:"gallery_cache_ttl" env:"GALLERY_CACHE_TTL"`
	SignatureLifetime Duration `json:"signature_lifetime" yaml:"signature_lifetime" env:"SIGNATURE_LIFETIME"`

	// Download settings
	DownloadsPath          string `json:"downloads_path" yaml:"downloads_path" env:"DOWNLOADS_PATH"`
	MaxConcurrentDownloads int    `json:"max_concurrent_downloads" yaml:"max_concurrent_downloads" env:"MAX_CONCURRENT_DOWNLOADS"`
	AskDestination         bool   `json:"ask_destination" yaml:"ask_destination" env:"ASK_DESTINATION"`
	SaveThumbnails         bool   `json:"save_thumbnails" yaml:"save_thumbnails" env:"SAVE_THUMBNAILS"`
	ThumbnailMaxSize       int    `json:"thumbnail_max_size" yaml:"thumbnail_max_size" env:"THUMBNAIL_MAX_SIZE"`

	// Viewer
	PageSize int `json:"page_size" yaml:"page_size" env:"PAGE_SIZE"`

	// Observability
	LogLevel    string `json:"log_level" yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat   string `json:"log_format" yaml:"log_format" env:"LOG_FORMAT"` // console, json
	MetricsAddr string `json:"metrics_addr" yaml:"metrics_addr" env:"METRICS_ADDR"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	return &Settings{
		APIBaseURL:   "http://localhost:8080",
		GalleryPath:  "/api/gallery/images",
		GalleryScope: "generated",
		ProxyPath:    "/api/download/proxy",
		PresignPath:  "/api/media/{id}/presign",
		UserAgent:    "mediavault",

		TokenPath: filepath.Join(homeDir, ".config", "mediavault", "token"),

		StatePath:      filepath.Join(homeDir, ".cache", "mediavault"),
		StorageBackend: "file",

		URLCacheTTL:       Duration(6 * time.Hour),
		GalleryCacheTTL:   Duration(24 * time.Hour),
		SignatureLifetime: Duration(7 * time.Hour),

		DownloadsPath:          filepath.Join(homeDir, "Downloads", "mediavault"),
		MaxConcurrentDownloads: 4,
		AskDestination:         false,
		SaveThumbnails:         false,
		ThumbnailMaxSize:       320,

		PageSize: 12,

		LogLevel:  "info",
		LogFormat: "console",
	}
}

// DefaultConfigPath returns ~/.config/mediavault/config.yaml, or "" when the
// home directory is unknown.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "mediavault", "config.yaml")
}

// Load reads settings from a JSON or YAML file and applies environment
// overrides. A missing file yields the defaults (plus overrides).
func Load(path string) (*Settings, error) {
	settings := DefaultSettings()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := unmarshal(path, data, settings); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	if err := settings.ApplyEnv(); err != nil {
		return nil, err
	}
	return settings, nil
}

// ApplyEnv overrides fields from MEDIAVAULT_* environment variables.
func (s *Settings) ApplyEnv() error {
	if err := env.ParseWithOptions(s, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Save writes settings to a JSON or YAML file, chosen by extension.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(s)
	} else {
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate reports configuration errors that would make the caches or the
// pipeline misbehave.
func (s *Settings) Validate() error {
	var errs []error

	if _, err := s.APIOrigin(); err != nil {
		errs = append(errs, err)
	}
	if s.AppOrigin != "" {
		if _, err := originOf(s.AppOrigin); err != nil {
			errs = append(errs, fmt.Errorf("app_origin: %w", err))
		}
	}
	if s.URLCacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("url_cache_ttl must be positive"))
	}
	if s.SignatureLifetime > 0 && s.URLCacheTTL >= s.SignatureLifetime {
		errs = append(errs, fmt.Errorf("url_cache_ttl (%s) must be shorter than signature_lifetime (%s)",
			s.URLCacheTTL.Std(), s.SignatureLifetime.Std()))
	}
	if s.GalleryCacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("gallery_cache_ttl must be positive"))
	}
	if s.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("page_size must be positive"))
	}
	if s.MaxConcurrentDownloads <= 0 {
		errs = append(errs, fmt.Errorf("max_concurrent_downloads must be positive"))
	}
	if strings.TrimSpace(s.DownloadsPath) == "" {
		errs = append(errs, fmt.Errorf("downloads_path is required"))
	}
	return errors.Join(errs...)
}

// APIOrigin returns scheme://host[:port] of APIBaseURL.
func (s *Settings) APIOrigin() (string, error) {
	origin, err := originOf(s.APIBaseURL)
	if err != nil {
		return "", fmt.Errorf("api_base_url: %w", err)
	}
	return origin, nil
}

// Endpoint joins APIBaseURL with an endpoint path.
func (s *Settings) Endpoint(path string) string {
	return strings.TrimSuffix(s.APIBaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

// GalleryURL is the absolute gallery endpoint.
func (s *Settings) GalleryURL() string { return s.Endpoint(s.GalleryPath) }

// ProxyURL is the absolute download proxy endpoint, or "" when proxy_path
// is blank and downloads have no proxy fallback.
func (s *Settings) ProxyURL() string {
	if strings.TrimSpace(s.ProxyPath) == "" {
		return ""
	}
	return s.Endpoint(s.ProxyPath)
}

// PresignTemplate is the absolute presign endpoint with its "{id}"
// placeholder left in place, or "" when presign_path is blank.
func (s *Settings) PresignTemplate() string {
	if strings.TrimSpace(s.PresignPath) == "" {
		return ""
	}
	return s.Endpoint(s.PresignPath)
}

func originOf(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%q is not an absolute URL", raw)
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func unmarshal(path string, data []byte, s *Settings) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, s)
	}
	return json.Unmarshal(data, s)
}
