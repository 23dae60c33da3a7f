// Package account implements the allocation of fixed-size records at
// deterministic addresses of a store.
//
// An address holds at most one record. Allocating an address already in use
// fails, which is what makes a derived address usable as a lock: two
// transactions cannot create the same record.
package account

import (
	"golang.org/x/xerrors"

	"go.dedis.ch/ballot/core/store"
)

var (
	// ErrInUse is returned when allocating an address that already holds a
	// record.
	ErrInUse = xerrors.New("account already in use")

	// ErrNotFound is returned when loading an address that holds no record.
	ErrNotFound = xerrors.New("account not found")

	// ErrSpaceExceeded is returned when a record is bigger than the space
	// reserved for its kind.
	ErrSpaceExceeded = xerrors.New("account space exceeded")
)

// Allocate writes the record at the address if, and only if, the address is
// not in use.
func Allocate(snap store.Snapshot, addr []byte, data []byte, space int) error {
	current, err := snap.Get(addr)
	if err != nil {
		return xerrors.Errorf("failed to read account: %v", err)
	}

	if current != nil {
		return xerrors.Errorf("%#x: %w", addr, ErrInUse)
	}

	err = Store(snap, addr, data, space)
	if err != nil {
		return xerrors.Errorf("failed to allocate: %w", err)
	}

	return nil
}

// Load returns the record stored at the address.
func Load(r store.Readable, addr []byte) ([]byte, error) {
	data, err := r.Get(addr)
	if err != nil {
		return nil, xerrors.Errorf("failed to read account: %v", err)
	}

	if data == nil {
		return nil, xerrors.Errorf("%#x: %w", addr, ErrNotFound)
	}

	return data, nil
}

// Store writes the record at the address whether it exists or not.
func Store(snap store.Snapshot, addr []byte, data []byte, space int) error {
	if len(data) > space {
		return xerrors.Errorf("%d > %d: %w", len(data), space, ErrSpaceExceeded)
	}

	err := snap.Set(addr, data)
	if err != nil {
		return xerrors.Errorf("failed to write account: %v", err)
	}

	return nil
}
