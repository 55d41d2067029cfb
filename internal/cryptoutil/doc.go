// Package cryptoutil provides the hashing and signing primitives used when
// publishing site documents.
//
// It supports:
//   - SHA-256 content addressing and constant-time hash comparison
//   - KMS-backed ECDSA P-256 signing with local verification against the
//     cached KMS public key
package cryptoutil
