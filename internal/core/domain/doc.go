// Package domain defines the core domain models for Resonance.
//
// Domain models are pure value objects without any IO dependencies
// or framework coupling. This package contains:
//
//   - Session: token pair and identity of an authenticated account
//   - Credentials: handle/password pair and its "handle:password" encoding
//   - PublishRequest and RecordKeyGenerator: repository write payloads
//   - Handle rules: label validation and custom handle derivation
//   - Errors: the client error taxonomy and server error classification
package domain
