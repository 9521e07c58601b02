package confloader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "RESONANCE_"

// Sources lists where Load reads from. Zero fields are skipped, except
// EnvPrefix which defaults to EnvPrefix.
type Sources struct {
	// File is a YAML file.
	File string
	// EnvPrefix selects environment variables; "-" disables them.
	EnvPrefix string
	// Overrides are applied last. Keys may be dotted paths.
	Overrides map[string]any
}

// Load layers file, environment and overrides over target. Fields that no
// source mentions keep the value target already holds.
func Load(target any, src Sources) error {
	k := koanf.New(".")

	if src.File != "" {
		if err := k.Load(file.Provider(src.File), yaml.Parser()); err != nil {
			return fmt.Errorf("load config file %s: %w", src.File, err)
		}
	}

	if prefix := src.EnvPrefix; prefix != "-" {
		if prefix == "" {
			prefix = EnvPrefix
		}
		if err := k.Load(env.Provider(prefix, ".", envKeyMapper(prefix)), nil); err != nil {
			return fmt.Errorf("load environment: %w", err)
		}
	}

	if len(src.Overrides) > 0 {
		if err := k.Load(overrides(src.Overrides), nil); err != nil {
			return fmt.Errorf("load overrides: %w", err)
		}
	}

	if err := k.Unmarshal("", target); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// envKeyMapper turns PREFIX_GATEWAY__SOCKET_PATH into gateway.socket_path.
func envKeyMapper(prefix string) func(string) string {
	return func(name string) string {
		name = strings.ToLower(strings.TrimPrefix(name, prefix))
		return strings.ReplaceAll(name, "__", ".")
	}
}

// overrides is a koanf provider over an in-memory map.
type overrides map[string]any

func (o overrides) Read() (map[string]any, error) {
	return maps.Unflatten(o, "."), nil
}

func (o overrides) ReadBytes() ([]byte, error) {
	return nil, errors.New("confloader: overrides are not serialized")
}
