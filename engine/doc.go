// Package engine is the reactive rendering core of Quartz: the binding and
// slot model that maps values onto DOM parts, the template compiler that
// turns a tagged-template skeleton into parts and child nodes, the hook
// state machine and render session that back functional components, and
// the lane-based scheduler that drives prioritized, coalesced re-renders
// through a three-phase commit.
//
// None of the packages under engine talk to a concrete DOM. Everything that
// touches an actual document (parsing a tagged template, resolving a raw
// value to a primitive, committing an effect queue, yielding to a host
// event loop) is abstracted behind the Backend interface (backend.go) and
// supplied by a host package such as backend/wsbackend.
package engine
