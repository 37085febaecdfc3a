// internal/config/config.go
//
// This package handles configuration and the .redline directory structure.
// Every project that uses redline gets a .redline/ folder created in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// RedlineDir is the name of the directory we create in each project
	RedlineDir = ".redline"

	defaultServerURL = "http://localhost:5000"

	// DefaultMaxUploadBytes mirrors the pipeline's server-side upload cap.
	// The server stays authoritative; this only gates the picker locally.
	DefaultMaxUploadBytes = 16 << 20
)

// DefaultAcceptedFormats lists the document and image extensions the
// pipeline accepts for upload.
var DefaultAcceptedFormats = []string{".pdf", ".docx", ".jpg", ".jpeg", ".png"}

const defaultProjectConfigYAML = `# redline project configuration
version: 1

server:
  # Base URL of the document-review pipeline. REDLINE_SERVER overrides this.
  url: http://localhost:5000

upload:
  # Display-side limits; the server enforces its own.
  max_bytes: 16777216
  accepted_formats: [.pdf, .docx, .jpg, .jpeg, .png]

meeting:
  # Pre-filled into the notification email field on the meeting screen.
  default_notification_email: ""
`

// ServerConfig points at the review pipeline.
type ServerConfig struct {
	URL string `yaml:"url"`
}

// UploadConfig captures the display-side upload limits.
type UploadConfig struct {
	MaxBytes        int64    `yaml:"max_bytes"`
	AcceptedFormats []string `yaml:"accepted_formats,omitempty"`
}

// MeetingConfig captures meeting-screen preferences.
type MeetingConfig struct {
	DefaultNotificationEmail string `yaml:"default_notification_email,omitempty"`
}

// ProjectConfig models .redline/config.yaml.
type ProjectConfig struct {
	Version int           `yaml:"version"`
	Server  ServerConfig  `yaml:"server"`
	Upload  UploadConfig  `yaml:"upload"`
	Meeting MeetingConfig `yaml:"meeting"`
}

// Config holds the runtime configuration for redline.
type Config struct {
	// ProjectDir is the directory where the user ran `redline` from
	ProjectDir string

	// RedlineProjectDir is ProjectDir/.redline
	RedlineProjectDir string

	Project ProjectConfig
}

// InitRedlineDir creates the .redline directory structure in the given
// project directory. This is called when the TUI starts up.
//
// Structure created:
// .redline/
// ├── logs/         <- Journey log for the current review session
// └── config.yaml   <- Project configuration
func InitRedlineDir(projectDir string) error {
	redlineDir := filepath.Join(projectDir, RedlineDir)

	if err := os.MkdirAll(filepath.Join(redlineDir, "logs"), 0755); err != nil {
		return err
	}

	return ensureProjectConfig(filepath.Join(redlineDir, "config.yaml"))
}

// NewConfig creates a new Config instance populated with project settings.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:        projectDir,
		RedlineProjectDir: filepath.Join(projectDir, RedlineDir),
		Project:           defaultProjectConfig(),
	}

	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}

	// REDLINE_SERVER wins over the project file so a session can be pointed
	// at a staging pipeline without editing config.yaml.
	if env := strings.TrimSpace(os.Getenv("REDLINE_SERVER")); env != "" {
		cfg.Project.Server.URL = strings.TrimRight(env, "/")
	}
	if err := cfg.Project.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.RedlineProjectDir, "logs")
}

// CredentialsPath returns the on-disk location of the persisted bearer token.
func (c *Config) CredentialsPath() string {
	return filepath.Join(c.RedlineProjectDir, "credentials")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.RedlineProjectDir, "config.yaml")
}

// ServerURL returns the base URL of the review pipeline.
func (c *Config) ServerURL() string {
	return c.Project.Server.URL
}

// MaxUploadBytes returns the display-side upload size cap.
func (c *Config) MaxUploadBytes() int64 {
	return c.Project.Upload.MaxBytes
}

// AcceptedFormats returns the lowercased extensions accepted for upload.
func (c *Config) AcceptedFormats() []string {
	return c.Project.Upload.AcceptedFormats
}

// AcceptsFormat reports whether the given filename carries an accepted
// extension.
func (c *Config) AcceptsFormat(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, accepted := range c.Project.Upload.AcceptedFormats {
		if ext == accepted {
			return true
		}
	}
	return false
}

// DefaultNotificationEmail returns the configured meeting email default.
func (c *Config) DefaultNotificationEmail() string {
	return c.Project.Meeting.DefaultNotificationEmail
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		Server:  ServerConfig{URL: defaultServerURL},
		Upload: UploadConfig{
			MaxBytes:        DefaultMaxUploadBytes,
			AcceptedFormats: append([]string(nil), DefaultAcceptedFormats...),
		},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Server.URL) == "" {
		pc.Server.URL = defaultServerURL
	}
	if pc.Upload.MaxBytes == 0 {
		pc.Upload.MaxBytes = DefaultMaxUploadBytes
	}
	if len(pc.Upload.AcceptedFormats) == 0 {
		pc.Upload.AcceptedFormats = append([]string(nil), DefaultAcceptedFormats...)
	}
}

func (pc *ProjectConfig) normalize() {
	pc.Server.URL = strings.TrimRight(strings.TrimSpace(pc.Server.URL), "/")
	pc.Meeting.DefaultNotificationEmail = strings.TrimSpace(pc.Meeting.DefaultNotificationEmail)
	formats := make([]string, 0, len(pc.Upload.AcceptedFormats))
	for _, format := range pc.Upload.AcceptedFormats {
		trimmed := strings.ToLower(strings.TrimSpace(format))
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, ".") {
			trimmed = "." + trimmed
		}
		formats = append(formats, trimmed)
	}
	pc.Upload.AcceptedFormats = formats
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	parsed, err := url.Parse(pc.Server.URL)
	if err != nil {
		return fmt.Errorf("server.url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("server.url must be an http(s) URL, got %q", pc.Server.URL)
	}
	if pc.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload.max_bytes must be positive")
	}
	if len(pc.Upload.AcceptedFormats) == 0 {
		return fmt.Errorf("upload.accepted_formats must not be empty")
	}
	return nil
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0644)
}
