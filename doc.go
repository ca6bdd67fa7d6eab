/*
Package slabstore implements the component store at the heart of a small
interactive simulation's Entity-Component-System runtime.

The store maps opaque entity identifiers to heterogeneous per-type
component values, gives O(1) access by (entity, type), reuses slots as
entities come and go, and periodically compacts each per-type array so
iteration over live components stays dense.

Core Concepts:

  - TypeKey: a runtime token identifying a component type.
  - TypedSlab: a per-TypeKey array of Occupied/Empty/Absent cells.
  - IndexSet: per-TypeKey index allocation and recycling.
  - OwnershipMap: the (entity, TypeKey) -> index binding.
  - Level: the façade that ties all of the above together.

Basic Usage:

	level := slabstore.NewLevel()
	position := slabstore.RegisterComponent[Position](level)

	e := level.Spawn()
	if err := slabstore.Give(level, e, position, Position{X: 1, Y: 2}); err != nil {
		// handle err
	}

	pos, err := slabstore.Read[Position](level, e, position)

Entity identifier minting, archetype-based iteration of components by
system, and scheduling across systems are outside this package's scope —
it is a storage layer, not a full ECS runtime.
*/
package slabstore
