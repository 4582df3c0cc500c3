/*
Package backend implements the Chunk Backend Client against a single SFTP
storage endpoint, grounded on the teacher's pattern of opening a fresh
transport per operation and tearing it down on every exit path (compare
pkg/runtime's per-call containerd namespace scoping).

# Architecture

	┌─────────────────────────── Client ───────────────────────────┐
	│                                                                │
	│  Put(endpoint, path, bytes):                                  │
	│      dial -> MkdirAll(parent) -> Create -> io.Copy -> close   │
	│                                                                │
	│  Get(endpoint, path) -> bytes:                                │
	│      dial -> Open -> io.Copy -> close                         │
	│                                                                │
	│  Delete(endpoint, path):                                      │
	│      dial -> Remove -> close                                  │
	│                                                                │
	└────────────────────────────────────────────────────────────────┘

Every call authenticates with golang.org/x/crypto/ssh and layers
github.com/pkg/sftp on top for the file operations — the standard Go
pairing for SFTP. A missing remote path on Get/Delete surfaces as
vmerr.KindNotFound; any other failure (dial, auth, transfer interruption)
surfaces as vmerr.KindTransport, matching spec.md's TransportError /
PathError taxonomy collapsed onto vaultmesh's shared error kinds.
*/
package backend
