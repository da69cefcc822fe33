// Package license implements offline verification of self-contained license
// tokens against a shared symmetric key.
//
// # Token Format
//
// A token is standard base64 of a JSON record:
//
//	{"email":"a@b.com","created_at":1000,"license_type":"pro","sign":"<hex>"}
//
// created_at is milliseconds since the Unix epoch. sign is lowercase hex of a
// ciphertext whose length is a positive multiple of 16 bytes.
//
// # Verification Flow
//
//	1. Decode the token (base64, JSON schema, hex signature)
//	2. Canonicalize email, created_at and license_type
//	3. Hash the canonical payload with SHA-256
//	4. Decrypt the signature block by block with AES-128 (no IV, no chaining)
//	5. Compare the hex digest with the hex of the decrypted blocks
//	6. Require 0 <= now - created_at < one year
//
// Decode and decrypt errors never leave the Verifier: VerifyToken reports
// only Valid == false, so callers cannot tell a forged token from an expired
// or malformed one.
//
// # Key Material
//
// DefaultKey is compiled in. Holding it is enough to mint tokens (see Issuer),
// so deployments override it through configuration.
package license
