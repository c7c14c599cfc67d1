package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DatabaseProfile is one configured Oracle backend, keyed by its
// logical name. Immutable after configuration load.
type DatabaseProfile struct {
	Name        string `json:"name"`
	User        string `json:"user"`
	Password    string `json:"password"`
	DSN         string `json:"dsn"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	ServiceName string `json:"service_name"`
	SID         string `json:"sid"`
	Mode        string `json:"mode"`
	Charset     string `json:"encoding"`
}

// Privileged reports whether the profile requires a dedicated SYSDBA
// connection per use instead of a shared pool.
func (p *DatabaseProfile) Privileged() bool {
	return strings.EqualFold(p.Mode, "SYSDBA")
}

// ConnectString derives the Oracle connect string from the profile.
// An explicit DSN wins; otherwise host/port plus service name (EZConnect)
// or SID (full descriptor).
func (p *DatabaseProfile) ConnectString() string {
	if p.DSN != "" {
		return p.DSN
	}
	port := p.Port
	if port == 0 {
		port = 1521
	}
	if p.ServiceName != "" {
		return fmt.Sprintf("%s:%d/%s", p.Host, port, p.ServiceName)
	}
	if p.SID != "" {
		return fmt.Sprintf("(DESCRIPTION=(ADDRESS=(PROTOCOL=TCP)(HOST=%s)(PORT=%d))(CONNECT_DATA=(SID=%s)))",
			p.Host, port, p.SID)
	}
	return ""
}

// GlobalSettings holds process-wide configuration shared by all
// profiles.
type GlobalSettings struct {
	DefaultDatabase string
	ClientLibDir    string
	ExportDirectory string
	LogLevel        string
	LogFile         string
	PoolMin         int
	PoolMax         int
	PoolIncrement   int
	MaxRowsDisplay  int
}

// Config is the process-wide configuration state: profiles in
// configured order plus a name index.
type Config struct {
	Profiles []*DatabaseProfile
	Global   GlobalSettings

	byName map[string]*DatabaseProfile
}

// Profile returns the profile for a logical name.
func (c *Config) Profile(name string) (*DatabaseProfile, bool) {
	p, ok := c.byName[name]
	return p, ok
}

// Names returns the logical names in configured order.
func (c *Config) Names() []string {
	names := make([]string, len(c.Profiles))
	for i, p := range c.Profiles {
		names[i] = p.Name
	}
	return names
}

// Resolve maps an optional logical database name to the name to use.
// Empty input resolves to the configured default. An unknown name falls
// back to the first configured profile, but only when no profile named
// "default" exists; otherwise it is a configuration error. Profile
// order is the JSON array order, so the fallback is stable across runs.
func (c *Config) Resolve(name string) (string, error) {
	if name == "" {
		name = c.Global.DefaultDatabase
	}
	if _, ok := c.byName[name]; ok {
		return name, nil
	}
	if _, hasDefault := c.byName["default"]; !hasDefault && len(c.Profiles) > 0 {
		return c.Profiles[0].Name, nil
	}
	return "", &ConfigurationError{Name: name, Known: c.Names()}
}

// addProfile appends a profile preserving insertion order.
func (c *Config) addProfile(p *DatabaseProfile) {
	if p.Name == "" || c.byName[p.Name] != nil {
		return
	}
	c.Profiles = append(c.Profiles, p)
	c.byName[p.Name] = p
}

// jsonConfig mirrors the oracle_config.json layout. The same structure
// may also be embedded in an mcp_config.json under
// mcpServers.oracle-server.oracleConfig.
type jsonConfig struct {
	GlobalSettings jsonGlobalSettings `json:"global_settings"`
	Databases      []*DatabaseProfile `json:"databases"`
}

type jsonGlobalSettings struct {
	OracleClientPath string `json:"oracle_client_path"`
	DefaultDatabase  string `json:"default_database"`
	ExportDirectory  string `json:"export_directory"`
	LogLevel         string `json:"log_level"`
	LogFile          string `json:"log_file"`
	PoolMin          *int   `json:"pool_min"`
	PoolMax          *int   `json:"pool_max"`
	PoolIncrement    *int   `json:"pool_increment"`
	MaxRowsDisplay   *int   `json:"max_rows_display"`
}

type mcpWrapperConfig struct {
	McpServers map[string]struct {
		OracleConfig *jsonConfig `json:"oracleConfig"`
	} `json:"mcpServers"`
}

// LoadConfig reads configuration once at startup. A JSON file takes
// precedence; .env variables back a single default profile otherwise.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{byName: make(map[string]*DatabaseProfile)}
	cfg.Global = globalFromEnv()

	if path := findConfigFile(); path != "" {
		if err := loadConfigFile(cfg, path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to load config from %s: %v. Falling back to environment\n", path, err)
		}
	}

	if len(cfg.Profiles) == 0 {
		if p := profileFromEnv(); p != nil {
			cfg.addProfile(p)
		}
	}

	return cfg, nil
}

func findConfigFile() string {
	if path := os.Getenv("ORACLE_CONFIG_FILE"); path != "" {
		return path
	}
	dir := os.Getenv("ORACLE_CONFIG_DIR")
	if dir == "" {
		dir, _ = os.Getwd()
	}
	candidate := filepath.Join(dir, "oracle_config.json")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

func loadConfigFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var jc jsonConfig
	if err = json.Unmarshal(data, &jc); err != nil {
		return err
	}
	if len(jc.Databases) == 0 {
		// Embedded layout inside mcp_config.json
		var wrapper mcpWrapperConfig
		if err = json.Unmarshal(data, &wrapper); err == nil {
			if sc, ok := wrapper.McpServers["oracle-server"]; ok && sc.OracleConfig != nil {
				jc = *sc.OracleConfig
			}
		}
	}

	g := jc.GlobalSettings
	if g.OracleClientPath != "" {
		cfg.Global.ClientLibDir = g.OracleClientPath
	}
	if g.DefaultDatabase != "" {
		cfg.Global.DefaultDatabase = g.DefaultDatabase
	}
	if g.ExportDirectory != "" {
		cfg.Global.ExportDirectory = g.ExportDirectory
	}
	if g.LogLevel != "" {
		cfg.Global.LogLevel = g.LogLevel
	}
	if g.LogFile != "" {
		cfg.Global.LogFile = g.LogFile
	}
	if g.PoolMin != nil {
		cfg.Global.PoolMin = *g.PoolMin
	}
	if g.PoolMax != nil {
		cfg.Global.PoolMax = *g.PoolMax
	}
	if g.PoolIncrement != nil {
		cfg.Global.PoolIncrement = *g.PoolIncrement
	}
	if g.MaxRowsDisplay != nil {
		cfg.Global.MaxRowsDisplay = *g.MaxRowsDisplay
	}

	for _, db := range jc.Databases {
		if db.Name == "" || db.ConnectString() == "" {
			continue
		}
		cfg.addProfile(db)
	}
	return nil
}

// profileFromEnv builds the single default profile from ORACLE_*
// variables, or nil if the required ones are missing.
func profileFromEnv() *DatabaseProfile {
	p := &DatabaseProfile{
		Name:        "default",
		User:        os.Getenv("ORACLE_USER"),
		Password:    os.Getenv("ORACLE_PASSWORD"),
		DSN:         os.Getenv("ORACLE_DSN"),
		Host:        os.Getenv("ORACLE_HOST"),
		Port:        envInt("ORACLE_PORT", 1521),
		ServiceName: os.Getenv("ORACLE_SERVICE_NAME"),
		SID:         os.Getenv("ORACLE_SID"),
		Mode:        os.Getenv("ORACLE_MODE"),
	}
	if p.User == "" || p.Password == "" || p.ConnectString() == "" {
		return nil
	}
	return p
}

func globalFromEnv() GlobalSettings {
	exportDir := os.Getenv("EXPORT_DIRECTORY")
	if exportDir == "" {
		exportDir, _ = os.Getwd()
	}
	return GlobalSettings{
		DefaultDatabase: "default",
		ClientLibDir:    os.Getenv("ORACLE_CLIENT_PATH"),
		ExportDirectory: exportDir,
		LogLevel:        envStr("LOG_LEVEL", "INFO"),
		LogFile:         envStr("LOG_FILE", "mcp_oracle.log"),
		PoolMin:         envInt("POOL_MIN", DefaultPoolMin),
		PoolMax:         envInt("POOL_MAX", DefaultPoolMax),
		PoolIncrement:   envInt("POOL_INCREMENT", DefaultPoolIncrement),
		MaxRowsDisplay:  envInt("MAX_ROWS_DISPLAY", DefaultMaxRowsDisplay),
	}
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}
