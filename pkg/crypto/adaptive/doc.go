// Package adaptive seals small local secrets, such as a stored account
// password, with an AEAD chosen for the platform.
//
// AES-256-GCM is used where the CPU accelerates AES and
// XChaCha20-Poly1305 elsewhere. Sealed strings name their cipher, so a
// value sealed on one machine opens on any other holding the same key.
//
//	key, err := adaptive.LoadOrCreateKey(path)
//	c, err := adaptive.New(key)
//	sealed, err := adaptive.Seal(c, []byte(password), []byte(handle))
//	plain, err := adaptive.Open(key, sealed, []byte(handle))
package adaptive
