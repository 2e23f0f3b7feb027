package store

import "errors"

var (
	// ErrClientExists is returned when adding a client whose id is taken.
	ErrClientExists = errors.New("client already exists")

	// ErrClientNotFound is returned when no client matches the id.
	ErrClientNotFound = errors.New("client not found")

	// ErrAccountNotFound is returned for an unknown account number or an
	// out-of-range account index.
	ErrAccountNotFound = errors.New("account not found")

	// ErrDuplicateAccount is returned when an account number is already
	// taken on the client.
	ErrDuplicateAccount = errors.New("account number already exists")

	// ErrSnapshotWrite is returned when the snapshot could not be
	// persisted; the in-memory mutation has been rolled back.
	ErrSnapshotWrite = errors.New("snapshot write failed")
)
