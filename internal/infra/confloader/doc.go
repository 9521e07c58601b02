// Package confloader loads layered configuration with koanf.
//
// Sources, lowest to highest priority:
//
//  1. Defaults already present in the target struct
//  2. YAML configuration file
//  3. RESONANCE_* environment variables
//  4. Sources.Overrides, typically from command-line flags
//
// Environment variables use a double underscore to separate sections so
// that keys may keep single underscores:
//
//	RESONANCE_PROVISION__MAX_ATTEMPTS=3  ->  provision.max_attempts
//
// Watcher reports changes to a configuration file via fsnotify.
package confloader
