package config

import (
	"reflect"

	"github.com/ghodss/yaml"
)

// replaceEnvPlaceholders parses raw as generic YAML, walks every
// string field looking for a leading '$', and substitutes it with
// getenv of the remainder, then re-marshals. This mirrors the
// cmd/dex/config_env_replacer.go's reflect-based replaceEnvKeys, but
// operates on the untyped map produced by a first-pass YAML parse,
// so it works uniformly across this package's config structs without
// needing every struct to be walked twice.
func replaceEnvPlaceholders(raw string, getenv func(string) string) (string, error) {
	var generic interface{}
	if err := yaml.Unmarshal([]byte(raw), &generic); err != nil {
		return "", err
	}
	walked := walkEnvPlaceholders(generic, getenv)
	out, err := yaml.Marshal(walked)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func walkEnvPlaceholders(v interface{}, getenv func(string) string) interface{} {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		s := v.(string)
		if len(s) > 1 && s[0] == '$' {
			return getenv(s[1:])
		}
		return s
	case reflect.Map:
		out := make(map[string]interface{}, rv.Len())
		for _, key := range rv.MapKeys() {
			out[key.String()] = walkEnvPlaceholders(rv.MapIndex(key).Interface(), getenv)
		}
		return out
	case reflect.Slice:
		out := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = walkEnvPlaceholders(rv.Index(i).Interface(), getenv)
		}
		return out
	default:
		return v
	}
}
