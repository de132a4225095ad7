// Package persist is the opaque key→JSON blob store PawPrint survives
// restarts with. The core calls Save after every durable mutation and Load
// at startup; what the bytes mean is the caller's business.
package persist

import "errors"

// ErrNotFound is returned by Load when no blob exists under the name.
// First runs hit this for every store; it is not a failure.
var ErrNotFound = errors.New("persist: blob not found")

// Store is the persistence collaborator contract.
type Store interface {
	// Load returns the blob saved under name, or ErrNotFound.
	Load(name string) ([]byte, error)

	// Save durably replaces the blob under name.
	Save(name string, data []byte) error
}
