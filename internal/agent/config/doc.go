// Package config defines the resonance-agent configuration.
//
// The configuration is loaded with confloader (file, RESONANCE_* env,
// flag overrides) on top of Default(), then checked with Verify.
package config
