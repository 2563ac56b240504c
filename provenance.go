package envfile

import (
	"reflect"
	"sort"
	"sync"

	"github.com/Azhovan/envfile/internal/normalize"
)

// Provenance records which source supplied each configuration key.
type Provenance struct {
	Fields []FieldProvenance
}

// FieldProvenance describes where one key's value came from.
type FieldProvenance struct {
	KeyPath    string // Normalized key (e.g., "database.host")
	SourceName string // Source identifier (e.g., "env", "file:.env")
	Secret     bool   // Whether the key binds a secret-tagged field
}

var provenanceStore sync.Map

// GetProvenance returns provenance metadata for a configuration previously
// returned by Loader.Load. Thread-safe.
func GetProvenance[T any](cfg *T) (*Provenance, bool) {
	if cfg == nil {
		return nil, false
	}

	value, ok := provenanceStore.Load(cfg)
	if !ok {
		return nil, false
	}

	prov, ok := value.(*Provenance)
	return prov, ok
}

func storeProvenance[T any](cfg *T, prov *Provenance) {
	if cfg != nil && prov != nil {
		provenanceStore.Store(cfg, prov)
	}
}

// buildProvenance derives per-key provenance from the merged source data,
// marking keys that bind secret-tagged fields of t.
func buildProvenance(merged map[string]mergedEntry, t reflect.Type) *Provenance {
	secrets := collectSecretKeys(t)

	fields := make([]FieldProvenance, 0, len(merged))
	for key, entry := range merged {
		fields = append(fields, FieldProvenance{
			KeyPath:    key,
			SourceName: entry.sourceName,
			Secret:     secrets[key],
		})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].KeyPath < fields[j].KeyPath })
	return &Provenance{Fields: fields}
}

// collectSecretKeys returns the key paths of all secret-tagged fields of a
// struct type, nested structs included.
func collectSecretKeys(t reflect.Type) map[string]bool {
	secrets := make(map[string]bool)
	collectSecretKeysInto(t, "", secrets)
	return secrets
}

func collectSecretKeysInto(t reflect.Type, prefix string, secrets map[string]bool) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct || t == valueType {
		return
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		tagCfg := parseTag(field.Tag.Get("conf"))
		if tagCfg.skip {
			continue
		}

		if field.Anonymous && field.Type.Kind() == reflect.Struct && !isOptionalType(field.Type) {
			collectSecretKeysInto(field.Type, prefix, secrets)
			continue
		}

		key := tagCfg.name
		if key == "" {
			key = normalize.FieldKey(field.Name)
		}
		keyPath := normalize.ApplyPrefix(prefix, key)

		if tagCfg.secret {
			secrets[keyPath] = true
		}

		fieldType := field.Type
		if isOptionalType(fieldType) {
			fieldType = fieldType.Field(0).Type
		}
		for fieldType.Kind() == reflect.Pointer {
			fieldType = fieldType.Elem()
		}
		if isStructural(fieldType) && fieldType != valueType && fieldType.Kind() == reflect.Struct {
			nested := keyPath
			if tagCfg.prefix != "" {
				nested = normalize.ApplyPrefix(prefix, tagCfg.prefix)
			}
			collectSecretKeysInto(fieldType, nested, secrets)
		}
	}
}
