// Package entityid mints fresh, process-unique entity identifiers.
//
// Entity identifier minting is deliberately out of THE CORE's scope — the
// store treats it as an external collaborator. This package supplies the
// minimal concrete default a runnable module needs; callers that already
// have their own minter (a network-wide UID service, a save-game loader
// restoring ids) can ignore it and hand the store raw EntityId values
// straight from spawn.
package entityid

import "sync/atomic"

// EntityId is an opaque, 64-bit, globally-unique-for-the-run identifier.
// The zero value never refers to a real entity.
type EntityId uint64

// Minter hands out fresh EntityIds. The zero Minter is ready to use.
type Minter struct {
	next atomic.Uint64
}

// NewMinter returns a Minter whose first Mint call returns EntityId(1).
func NewMinter() *Minter {
	return &Minter{}
}

// Mint returns a fresh EntityId, never returned before by this Minter.
func (m *Minter) Mint() EntityId {
	return EntityId(m.next.Add(1))
}
