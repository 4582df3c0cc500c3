/*
Package crypto implements chunk-level encryption for the upload pipeline.

Every chunk is sealed with AES-256-GCM before being handed to the backend
pool; the nonce is prepended to the ciphertext so no side channel is needed
to recover it on download.

# Architecture

	┌──────────────────────────────────────────────┐
	│                 crypto.Engine                 │
	│                                                │
	│  Encrypt(plaintext) -> nonce || ciphertext    │
	│  Decrypt(nonce || ciphertext) -> plaintext    │
	└──────────────────────────────────────────────┘

The encryption key is configured once at startup as an operator
passphrase (VAULTMESH_ENCRYPTION_KEY); NewEngineFromPassphrase derives the
32-byte key from it via SHA-256, while NewEngine takes raw key bytes. A single
key is shared across all chunks of a deployment; there is no per-file key
derivation, matching the spec's "one cipher suite, one key" model.

# Usage

	engine, err := crypto.NewEngine(key)
	ciphertext, err := engine.Encrypt(chunk)
	plaintext, err := engine.Decrypt(ciphertext)

# Integration Points

  - pkg/aggregator: encrypts each chunk before dispatch, decrypts on download
  - pkg/integrity: computes CRC-32 over the ciphertext this package produces
  - pkg/config: loads the configured passphrase and rejects an empty one at startup

# Security

Never logs plaintext, key material, or ciphertext contents. Decrypt returns
a generic authentication-failure error rather than distinguishing tampering
from corruption, to avoid leaking oracle information.
*/
package crypto
