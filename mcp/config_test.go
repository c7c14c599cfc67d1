package mcp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(defaultName string, profiles ...*DatabaseProfile) *Config {
	cfg := &Config{byName: make(map[string]*DatabaseProfile)}
	cfg.Global = GlobalSettings{
		DefaultDatabase: defaultName,
		PoolMin:         DefaultPoolMin,
		PoolMax:         DefaultPoolMax,
		PoolIncrement:   DefaultPoolIncrement,
		MaxRowsDisplay:  DefaultMaxRowsDisplay,
	}
	for _, p := range profiles {
		cfg.addProfile(p)
	}
	return cfg
}

func testProfile(name string) *DatabaseProfile {
	return &DatabaseProfile{Name: name, User: "scott", Password: "tiger", DSN: "localhost:1521/XEPDB1"}
}

func TestResolveEmptyUsesDefault(t *testing.T) {
	cfg := newTestConfig("default", testProfile("default"), testProfile("reporting"))

	name, err := cfg.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "default", name)
}

func TestResolveKnownName(t *testing.T) {
	cfg := newTestConfig("default", testProfile("default"), testProfile("reporting"))

	name, err := cfg.Resolve("reporting")
	require.NoError(t, err)
	assert.Equal(t, "reporting", name)
}

func TestResolveUnknownFallsBackToFirstProfile(t *testing.T) {
	cfg := newTestConfig("default", testProfile("erp"), testProfile("crm"))

	// No profile is literally named "default", so unknown names fall
	// back to the first configured profile. Repeated resolution must be
	// stable.
	for i := 0; i < 10; i++ {
		name, err := cfg.Resolve("nonexistent")
		require.NoError(t, err)
		assert.Equal(t, "erp", name)
	}

	name, err := cfg.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "erp", name)
}

func TestResolveUnknownErrorsWhenDefaultExists(t *testing.T) {
	cfg := newTestConfig("default", testProfile("default"), testProfile("erp"))

	_, err := cfg.Resolve("nonexistent")
	require.Error(t, err)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "nonexistent", cfgErr.Name)
	assert.Equal(t, []string{"default", "erp"}, cfgErr.Known)
}

func TestResolveNoProfiles(t *testing.T) {
	cfg := newTestConfig("default")

	_, err := cfg.Resolve("")
	require.Error(t, err)
}

func TestAddProfileIgnoresDuplicates(t *testing.T) {
	cfg := newTestConfig("default", testProfile("erp"))
	cfg.addProfile(testProfile("erp"))
	cfg.addProfile(&DatabaseProfile{Name: ""})

	assert.Equal(t, []string{"erp"}, cfg.Names())
}

func TestConnectString(t *testing.T) {
	tests := []struct {
		name    string
		profile DatabaseProfile
		want    string
	}{
		{
			"explicit dsn wins",
			DatabaseProfile{DSN: "tns_alias", Host: "db1", Port: 1521, ServiceName: "XE"},
			"tns_alias",
		},
		{
			"service name ezconnect",
			DatabaseProfile{Host: "db1", Port: 1522, ServiceName: "XEPDB1"},
			"db1:1522/XEPDB1",
		},
		{
			"default port",
			DatabaseProfile{Host: "db1", ServiceName: "XEPDB1"},
			"db1:1521/XEPDB1",
		},
		{
			"sid descriptor",
			DatabaseProfile{Host: "db1", Port: 1521, SID: "ORCL"},
			"(DESCRIPTION=(ADDRESS=(PROTOCOL=TCP)(HOST=db1)(PORT=1521))(CONNECT_DATA=(SID=ORCL)))",
		},
		{
			"nothing configured",
			DatabaseProfile{},
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.profile.ConnectString())
		})
	}
}

func TestPrivileged(t *testing.T) {
	assert.True(t, (&DatabaseProfile{Mode: "SYSDBA"}).Privileged())
	assert.True(t, (&DatabaseProfile{Mode: "sysdba"}).Privileged())
	assert.False(t, (&DatabaseProfile{Mode: ""}).Privileged())
	assert.False(t, (&DatabaseProfile{Mode: "normal"}).Privileged())
}

func TestLoadConfigFilePlainLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oracle_config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"global_settings": {
			"default_database": "erp",
			"pool_max": 20,
			"max_rows_display": 25
		},
		"databases": [
			{"name": "erp", "user": "scott", "password": "tiger", "host": "db1", "service_name": "ERP"},
			{"name": "crm", "user": "scott", "password": "tiger", "dsn": "db2:1521/CRM", "mode": "SYSDBA"},
			{"name": "broken"}
		]
	}`), 0o600))

	cfg := newTestConfig("default")
	require.NoError(t, loadConfigFile(cfg, path))

	assert.Equal(t, "erp", cfg.Global.DefaultDatabase)
	assert.Equal(t, 20, cfg.Global.PoolMax)
	assert.Equal(t, 25, cfg.Global.MaxRowsDisplay)
	assert.Equal(t, DefaultPoolMin, cfg.Global.PoolMin, "unset fields keep defaults")

	// The profile without credentials or target is skipped.
	assert.Equal(t, []string{"erp", "crm"}, cfg.Names())

	crm, ok := cfg.Profile("crm")
	require.True(t, ok)
	assert.True(t, crm.Privileged())
}

func TestLoadConfigFileWrapperLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcp_config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"mcpServers": {
			"oracle-server": {
				"oracleConfig": {
					"global_settings": {"default_database": "main"},
					"databases": [
						{"name": "main", "user": "app", "password": "secret", "host": "db1", "service_name": "MAIN"}
					]
				}
			}
		}
	}`), 0o600))

	cfg := newTestConfig("default")
	require.NoError(t, loadConfigFile(cfg, path))

	assert.Equal(t, "main", cfg.Global.DefaultDatabase)
	assert.Equal(t, []string{"main"}, cfg.Names())
}
