package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Tiliavir/penguin-meds/internal/logging"
	"github.com/Tiliavir/penguin-meds/internal/storage"
)

// Config is the root configuration for pmeds, stored in $PMEDS_HOME/config.json.
// The file supports single-line // comments for documentation purposes.
type Config struct {
	Storage  StorageConfig `json:"storage"`
	Events   EventsConfig  `json:"events"`
	Sheets   SheetsConfig  `json:"sheets"`
	Timezone string        `json:"timezone"`
	LogLevel string        `json:"log_level"`

	// Home is the directory the config was loaded from. Not part of the file.
	Home string `json:"-"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Backend is one of file, sqlite, postgres, memory.
	Backend     string `json:"backend"`
	Dir         string `json:"dir"`
	SQLitePath  string `json:"sqlite_path"`
	PostgresDSN string `json:"postgres_dsn"`
}

// EventsConfig enables change publication. Empty AMQPURL disables it.
type EventsConfig struct {
	AMQPURL    string `json:"amqp_url"`
	Exchange   string `json:"exchange"`
	RoutingKey string `json:"routing_key"`
}

// SheetsConfig holds the Google Sheets export settings.
type SheetsConfig struct {
	SpreadsheetID string `json:"spreadsheet_id"`
	SheetName     string `json:"sheet_name"`
	ClientFile    string `json:"client_file"`
	TokenFile     string `json:"token_file"`
}

const (
	DefaultBackend    = storage.KindFile
	DefaultExchange   = "pmeds"
	DefaultRoutingKey = "pmeds.entries"
	DefaultSheetName  = "Totals"
	DefaultLogLevel   = "warn"
)

// defaultConfig returns a Config pre-filled with defaults relative to home.
func defaultConfig(home string) Config {
	return Config{
		Storage: StorageConfig{
			Backend:    DefaultBackend,
			Dir:        filepath.Join(home, "data"),
			SQLitePath: filepath.Join(home, "pmeds.db"),
		},
		Events: EventsConfig{
			Exchange:   DefaultExchange,
			RoutingKey: DefaultRoutingKey,
		},
		Sheets: SheetsConfig{
			SheetName:  DefaultSheetName,
			ClientFile: filepath.Join(home, "auth", "google_client.json"),
			TokenFile:  filepath.Join(home, "auth", "google_token.json"),
		},
		LogLevel: DefaultLogLevel,
		Home:     home,
	}
}

// configTemplate is the annotated config written on first run.
// Lines whose trimmed content starts with // are stripped before JSON parsing,
// allowing human-readable documentation inside the file.
const configTemplate = `// pmeds configuration – $PMEDS_HOME/config.json (default ~/.pmeds)
//
// All settings are optional. Relative paths are resolved against this
// directory. Every value can be overridden with a PMEDS_* environment
// variable or a .env file in the working directory.
{
  // ── Storage ─────────────────────────────────────────────────────────────
  "storage": {
    // file     – one JSON file per category and day under "dir" (default)
    // sqlite   – single database file at "sqlite_path"
    // postgres – shared database at "postgres_dsn"
    // memory   – nothing is kept after the command exits
    "backend": "file",
    "dir": "data",
    "sqlite_path": "pmeds.db",
    "postgres_dsn": ""
  },

  // ── Change events (RabbitMQ) ────────────────────────────────────────────
  // Leave amqp_url empty to disable publishing.
  "events": {
    "amqp_url": "",
    "exchange": "pmeds",
    "routing_key": "pmeds.entries"
  },

  // ── Google Sheets export (pmeds sheets push) ────────────────────────────
  "sheets": {
    "spreadsheet_id": "",
    "sheet_name": "Totals",
    "client_file": "auth/google_client.json",
    "token_file": "auth/google_token.json"
  },

  // IANA timezone whose calendar days group entries, e.g. "Europe/Berlin".
  // Leave empty to use the system zone.
  "timezone": "",

  // debug, info, warn or error
  "log_level": "warn"
}
`

// HomeDir returns $PMEDS_HOME, or ~/.pmeds when unset.
func HomeDir() (string, error) {
	if h := strings.TrimSpace(os.Getenv("PMEDS_HOME")); h != "" {
		return h, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".pmeds"), nil
}

// stripLineComments removes lines whose leading non-whitespace content starts
// with //. Only full-line comments are handled; inline comments are not stripped.
func stripLineComments(data []byte) []byte {
	var out []byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimLeft(line, " \t"), []byte("//")) {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}

// Load loads a .env file if present, then reads the config from HomeDir.
func Load() (Config, error) {
	_ = godotenv.Load()
	home, err := HomeDir()
	if err != nil {
		return defaultConfig(""), err
	}
	return LoadFrom(home)
}

// LoadFrom reads home/config.json, creating it with annotated defaults on
// first run, then applies PMEDS_* environment overrides.
func LoadFrom(home string) (Config, error) {
	path := filepath.Join(home, "config.json")
	cfg := defaultConfig(home)

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// First run: write the annotated template so users can discover options.
		if writeErr := writeDefault(path); writeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config file %s: %v\n", path, writeErr)
		}
	case err != nil:
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	default:
		var file Config
		if err := json.Unmarshal(stripLineComments(data), &file); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
		}
		cfg.merge(file)
	}

	cfg.applyEnv()
	cfg.resolvePaths()
	return cfg, nil
}

// merge copies the non-zero fields of f over c.
func (c *Config) merge(f Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Storage.Backend, f.Storage.Backend)
	set(&c.Storage.Dir, f.Storage.Dir)
	set(&c.Storage.SQLitePath, f.Storage.SQLitePath)
	set(&c.Storage.PostgresDSN, f.Storage.PostgresDSN)
	set(&c.Events.AMQPURL, f.Events.AMQPURL)
	set(&c.Events.Exchange, f.Events.Exchange)
	set(&c.Events.RoutingKey, f.Events.RoutingKey)
	set(&c.Sheets.SpreadsheetID, f.Sheets.SpreadsheetID)
	set(&c.Sheets.SheetName, f.Sheets.SheetName)
	set(&c.Sheets.ClientFile, f.Sheets.ClientFile)
	set(&c.Sheets.TokenFile, f.Sheets.TokenFile)
	set(&c.Timezone, f.Timezone)
	set(&c.LogLevel, f.LogLevel)
}

var envOverrides = []struct {
	name  string
	field func(*Config) *string
}{
	{"PMEDS_STORAGE_BACKEND", func(c *Config) *string { return &c.Storage.Backend }},
	{"PMEDS_STORAGE_DIR", func(c *Config) *string { return &c.Storage.Dir }},
	{"PMEDS_SQLITE_PATH", func(c *Config) *string { return &c.Storage.SQLitePath }},
	{"PMEDS_POSTGRES_DSN", func(c *Config) *string { return &c.Storage.PostgresDSN }},
	{"PMEDS_AMQP_URL", func(c *Config) *string { return &c.Events.AMQPURL }},
	{"PMEDS_AMQP_EXCHANGE", func(c *Config) *string { return &c.Events.Exchange }},
	{"PMEDS_AMQP_ROUTING_KEY", func(c *Config) *string { return &c.Events.RoutingKey }},
	{"PMEDS_SHEETS_ID", func(c *Config) *string { return &c.Sheets.SpreadsheetID }},
	{"PMEDS_SHEETS_NAME", func(c *Config) *string { return &c.Sheets.SheetName }},
	{"PMEDS_GOOGLE_CLIENT_FILE", func(c *Config) *string { return &c.Sheets.ClientFile }},
	{"PMEDS_GOOGLE_TOKEN_FILE", func(c *Config) *string { return &c.Sheets.TokenFile }},
	{"PMEDS_TIMEZONE", func(c *Config) *string { return &c.Timezone }},
	{"PMEDS_LOG_LEVEL", func(c *Config) *string { return &c.LogLevel }},
}

func (c *Config) applyEnv() {
	for _, o := range envOverrides {
		if v, ok := os.LookupEnv(o.name); ok && strings.TrimSpace(v) != "" {
			*o.field(c) = strings.TrimSpace(v)
		}
	}
}

func (c *Config) resolvePaths() {
	for _, p := range []*string{&c.Storage.Dir, &c.Storage.SQLitePath, &c.Sheets.ClientFile, &c.Sheets.TokenFile} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(c.Home, *p)
		}
	}
}

// Location returns the configured zone, or time.Local when unset.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// StorageOptions maps the storage section onto storage.Open options.
func (c Config) StorageOptions() storage.Options {
	return storage.Options{
		Kind:        c.Storage.Backend,
		Dir:         c.Storage.Dir,
		SQLitePath:  c.Storage.SQLitePath,
		PostgresDSN: c.Storage.PostgresDSN,
	}
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var problems []string

	switch c.Storage.Backend {
	case storage.KindFile:
		if c.Storage.Dir == "" {
			problems = append(problems, "storage.dir cannot be empty when using the file backend")
		}
	case storage.KindSQLite:
		if c.Storage.SQLitePath == "" {
			problems = append(problems, "storage.sqlite_path cannot be empty when using the sqlite backend")
		}
	case storage.KindPostgres:
		if c.Storage.PostgresDSN == "" {
			problems = append(problems, "storage.postgres_dsn is required when using the postgres backend")
		}
	case storage.KindMemory:
	default:
		problems = append(problems, fmt.Sprintf("invalid storage backend %q: must be one of file, sqlite, postgres, memory", c.Storage.Backend))
	}

	if c.Events.AMQPURL != "" {
		if u, err := url.Parse(c.Events.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL %q: %v", c.Events.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme %q: must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.Events.Exchange == "" {
			problems = append(problems, "events.exchange cannot be empty when events.amqp_url is set")
		}
	}

	if _, err := c.Location(); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// ValidateSheets checks the settings needed by the spreadsheet export.
func (c Config) ValidateSheets() error {
	var problems []string
	if c.Sheets.SpreadsheetID == "" {
		problems = append(problems, "sheets.spreadsheet_id is required")
	}
	if c.Sheets.ClientFile == "" {
		problems = append(problems, "sheets.client_file is required")
	} else if _, err := os.Stat(c.Sheets.ClientFile); err != nil {
		problems = append(problems, fmt.Sprintf("sheets.client_file %s: %v", c.Sheets.ClientFile, err))
	}
	if c.Sheets.TokenFile == "" {
		problems = append(problems, "sheets.token_file is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("sheets configuration incomplete:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
