// Package token provides credential and identifier generation utilities.
//
// Generated values:
//
//   - Password: 24 characters from the 62-symbol alphanumeric alphabet
//   - Digest: short lower-case hex prefix of a SHA-256 hash, used to
//     derive throwaway handle names
//
// Security:
//
//   - Uses crypto/rand for CSPRNG
//   - Passwords map random bytes onto the alphabet with byte % 62, which
//     slightly favours the first 8 symbols (256 = 4*62 + 8); acceptable for
//     generated account passwords, not a uniform sampler
package token
