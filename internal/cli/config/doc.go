// Package config holds the resonance-cli configuration, ~/.resonance/cli.yaml.
//
// The stored password is sealed with pkg/crypto/adaptive under a key kept
// in ~/.resonance/key, using the handle as additional data so a sealed
// password cannot be moved to another account entry.
package config
