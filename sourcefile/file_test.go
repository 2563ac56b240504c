package sourcefile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestFileSource_Load_Env(t *testing.T) {
	envContent := `# service settings
HOST=localhost
PORT=8080
DATABASE__URL="postgres://db:5432/app"
EMPTY=
`
	path := writeTemp(t, "app.env", envContent)

	src := New(path, Options{})
	data, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "localhost", data["host"])
	assert.Equal(t, "8080", data["port"])
	assert.Equal(t, "postgres://db:5432/app", data["database.url"])
	assert.Equal(t, "", data["empty"])
}

func TestFileSource_Load_EnvDuplicateLastWins(t *testing.T) {
	path := writeTemp(t, ".env", "KEY=first\nKEY=second\n")

	src := New(path, Options{})
	data, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second", data["key"])
}

func TestFileSource_Load_YAML(t *testing.T) {
	yamlContent := `
database:
  host: localhost
  port: 5432
  credentials:
    user: admin
    password: secret
server:
  address: 0.0.0.0
  timeout: 30
features:
  - feature1
  - feature2
`
	path := writeTemp(t, "config.yaml", yamlContent)

	src := New(path, Options{})
	data, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "localhost", data["database.host"])
	assert.Equal(t, "5432", data["database.port"])
	assert.Equal(t, "admin", data["database.credentials.user"])
	assert.Equal(t, "secret", data["database.credentials.password"])
	assert.Equal(t, "0.0.0.0", data["server.address"])
	assert.Equal(t, "30", data["server.timeout"])

	// Sequences flatten to index-suffixed keys
	assert.Equal(t, "feature1", data["features_0"])
	assert.Equal(t, "feature2", data["features_1"])
}

func TestFileSource_Load_JSON(t *testing.T) {
	jsonContent := `{
  "database": {
    "host": "db.example.com",
    "port": 3306
  },
  "api": {
    "key": "secret-key",
    "endpoint": "https://api.example.com"
  }
}`
	path := writeTemp(t, "config.json", jsonContent)

	src := New(path, Options{})
	data, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "db.example.com", data["database.host"])
	assert.Equal(t, "3306", data["database.port"])
	assert.Equal(t, "secret-key", data["api.key"])
	assert.Equal(t, "https://api.example.com", data["api.endpoint"])
}

func TestFileSource_Load_TOML(t *testing.T) {
	tomlContent := `
[database]
host = "localhost"
port = 5432

[database.pool]
max_connections = 100
min_connections = 10

[server]
address = "127.0.0.1"
`
	path := writeTemp(t, "config.toml", tomlContent)

	src := New(path, Options{})
	data, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "localhost", data["database.host"])
	assert.Equal(t, "5432", data["database.port"])
	assert.Equal(t, "100", data["database.pool.max_connections"])
	assert.Equal(t, "10", data["database.pool.min_connections"])
	assert.Equal(t, "127.0.0.1", data["server.address"])
}

func TestFileSource_FormatInference(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		expected map[string]string
	}{
		{
			name:     "env extension",
			filename: "app.env",
			content:  "KEY=value",
			expected: map[string]string{"key": "value"},
		},
		{
			name:     "dotenv file",
			filename: ".env",
			content:  "KEY=value",
			expected: map[string]string{"key": "value"},
		},
		{
			name:     "dotenv variant",
			filename: ".env.local",
			content:  "KEY=value",
			expected: map[string]string{"key": "value"},
		},
		{
			name:     "yaml extension",
			filename: "config.yaml",
			content:  "key: value",
			expected: map[string]string{"key": "value"},
		},
		{
			name:     "yml extension",
			filename: "config.yml",
			content:  "key: value",
			expected: map[string]string{"key": "value"},
		},
		{
			name:     "json extension",
			filename: "config.json",
			content:  `{"key": "value"}`,
			expected: map[string]string{"key": "value"},
		},
		{
			name:     "toml extension",
			filename: "config.toml",
			content:  `key = "value"`,
			expected: map[string]string{"key": "value"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTemp(t, tt.filename, tt.content)

			src := New(path, Options{}) // No explicit format
			data, err := src.Load(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, data)
		})
	}
}

func TestFileSource_ExplicitFormat(t *testing.T) {
	// Wrong extension but explicit format
	path := writeTemp(t, "config.txt", "key: value")

	src := New(path, Options{Format: "yaml"})
	data, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "value", data["key"])
}

func TestFileSource_MissingFile_NotRequired(t *testing.T) {
	src := New("/nonexistent/config.yaml", Options{Required: false})
	data, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, data, "should return empty map for missing non-required file")
}

func TestFileSource_MissingFile_Required(t *testing.T) {
	src := New("/nonexistent/config.yaml", Options{Required: true})
	data, err := src.Load(context.Background())
	assert.Error(t, err)
	assert.Nil(t, data)
	assert.Contains(t, err.Error(), "required config file not found")
}

func TestFileSource_InvalidEnv(t *testing.T) {
	path := writeTemp(t, "bad.env", "NOT A VALID LINE\n")

	src := New(path, Options{})
	data, err := src.Load(context.Background())
	assert.Error(t, err)
	assert.Nil(t, data)
	assert.Contains(t, err.Error(), "parse env file")
}

func TestFileSource_InvalidJSON(t *testing.T) {
	path := writeTemp(t, "invalid.json", `{"key": "value"`)

	src := New(path, Options{})
	data, err := src.Load(context.Background())
	assert.Error(t, err)
	assert.Nil(t, data)
	assert.Contains(t, err.Error(), "parse JSON file")
}

func TestFileSource_InvalidTOML(t *testing.T) {
	path := writeTemp(t, "invalid.toml", `[section\nkey = "value"`)

	src := New(path, Options{})
	data, err := src.Load(context.Background())
	assert.Error(t, err)
	assert.Nil(t, data)
	assert.Contains(t, err.Error(), "parse TOML file")
}

func TestFileSource_UnsupportedFormat(t *testing.T) {
	path := writeTemp(t, "config.txt", "some content")

	src := New(path, Options{}) // .txt not recognized
	data, err := src.Load(context.Background())
	assert.Error(t, err)
	assert.Nil(t, data)
	assert.Contains(t, err.Error(), "unsupported file format")
}

func TestFileSource_Name(t *testing.T) {
	src := New("/etc/app/config.yaml", Options{})
	assert.Equal(t, "file:config.yaml", src.Name())
}

func TestFileSource_DeepNesting(t *testing.T) {
	yamlContent := `
level1:
  level2:
    level3:
      level4:
        key: deep-value
`
	path := writeTemp(t, "config.yaml", yamlContent)

	src := New(path, Options{})
	data, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "deep-value", data["level1.level2.level3.level4.key"])
}

func TestFileSource_EmptyFile(t *testing.T) {
	path := writeTemp(t, "empty.yaml", "")

	src := New(path, Options{})
	data, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestFileSource_NestedSequences(t *testing.T) {
	jsonContent := `{
  "servers": [
    {"host": "a.example.com", "port": 1},
    {"host": "b.example.com", "port": 2}
  ]
}`
	path := writeTemp(t, "config.json", jsonContent)

	src := New(path, Options{})
	data, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "a.example.com", data["servers_0.host"])
	assert.Equal(t, "1", data["servers_0.port"])
	assert.Equal(t, "b.example.com", data["servers_1.host"])
	assert.Equal(t, "2", data["servers_1.port"])
}
