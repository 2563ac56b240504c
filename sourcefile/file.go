package sourcefile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Azhovan/envfile"
	"github.com/Azhovan/envfile/internal/codec"
	"github.com/Azhovan/envfile/internal/normalize"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Options configures file source behavior.
type Options struct {
	// Format: "env", "yaml", "json", or "toml". Auto-detected from extension if empty.
	Format string

	// Required: if true, missing files cause an error. Default: false (returns empty map).
	Required bool
}

type fileSource struct {
	path string
	opts Options
}

// New creates a file-based configuration source.
func New(path string, opts Options) envfile.Source {
	return &fileSource{
		path: path,
		opts: opts,
	}
}

// Name returns a human-readable identifier for this source.
func (f *fileSource) Name() string {
	return "file:" + filepath.Base(f.path)
}

// Load reads and parses the file, returning configuration flattened to
// dot-separated string keys and string values.
func (f *fileSource) Load(ctx context.Context) (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			if f.opts.Required {
				return nil, fmt.Errorf("required config file not found: %s: %w", f.path, err)
			}
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("read config file %s: %w", f.path, err)
	}

	format := f.opts.Format
	if format == "" {
		format = inferFormat(f.path)
	}

	if format == "env" {
		return f.loadEnv(data)
	}

	var raw map[string]any
	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse YAML file %s: %w", f.path, err)
		}
	case "json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse JSON file %s: %w", f.path, err)
		}
	case "toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse TOML file %s: %w", f.path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: env, yaml, json, toml)", format)
	}

	// Flatten nested structures to dot-separated keys
	flattened := make(map[string]string)
	flattenInto("", raw, flattened)

	return flattened, nil
}

// loadEnv parses KEY=VALUE text. Later occurrences of a key win.
func (f *fileSource) loadEnv(data []byte) (map[string]string, error) {
	entries, err := codec.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse env file %s: %w", f.path, err)
	}
	result := make(map[string]string, len(entries))
	for _, entry := range entries {
		result[normalize.ToLowerDotPath(entry.Key)] = entry.Value
	}
	return result, nil
}

// flattenInto recursively flattens nested maps to dot-separated keys and
// sequences to index-suffixed keys (servers_0, servers_1, ...).
func flattenInto(prefix string, value any, result map[string]string) {
	switch v := value.(type) {
	case map[string]any:
		for key, val := range v {
			newPrefix := key
			if prefix != "" {
				newPrefix = prefix + "." + key
			}
			flattenInto(newPrefix, val, result)
		}
	case map[any]any:
		for key, val := range v {
			keyStr, ok := key.(string)
			if !ok {
				continue
			}
			newPrefix := keyStr
			if prefix != "" {
				newPrefix = prefix + "." + keyStr
			}
			flattenInto(newPrefix, val, result)
		}
	case []any:
		for i, item := range v {
			flattenInto(prefix+"_"+strconv.Itoa(i), item, result)
		}
	default:
		if prefix != "" {
			result[prefix] = scalarString(value)
		}
	}
}

// scalarString renders a parsed leaf as its textual form.
func scalarString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func inferFormat(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".env":
		return "env"
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	case ".toml":
		return "toml"
	default:
		if strings.HasPrefix(filepath.Base(path), ".env") {
			return "env"
		}
		return ""
	}
}
