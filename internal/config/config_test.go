package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_EmptyYieldsDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "sqlite", cfg.Driver)
	assert.Equal(t, "til.db", cfg.Database)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "all", cfg.DefaultCategory)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
}

func TestDecode_FullFile(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`
driver: http
remote_url: http://localhost:8080
listen: ":9090"
default_category: science
discard_stale: true
http_timeout: 3s
`))
	require.NoError(t, err)
	assert.Equal(t, Config{
		Driver:          DriverHTTP,
		Database:        DefaultDatabase,
		RemoteURL:       "http://localhost:8080",
		Listen:          ":9090",
		DefaultCategory: "science",
		DiscardStale:    true,
		HTTPTimeout:     3 * time.Second,
	}, cfg)
}

func TestDecode_RejectsUnknownKeys(t *testing.T) {
	_, err := Decode(strings.NewReader("drvier: sqlite\n"))
	assert.Error(t, err)
}

func TestDecode_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown driver", "driver: postgres\n"},
		{"mysql without dsn", "driver: mysql\n"},
		{"http without url", "driver: http\n"},
		{"unknown category", "default_category: cooking\n"},
		{"negative timeout", "http_timeout: -1s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "til.yaml")
	require.NoError(t, os.WriteFile(path, []byte("driver: mysql\ndsn: til:til@tcp(localhost:3306)/til\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverMySQL, cfg.Driver)
	assert.Equal(t, "til:til@tcp(localhost:3306)/til", cfg.DSN)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
