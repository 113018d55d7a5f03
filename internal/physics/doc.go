// Package physics implements the bonded force laws of a bead-spring chain.
//
// Two variants satisfy [ForceField]:
//
//   - [FreeChain]: nearest-neighbor harmonic bonds, both ends free
//   - [AnchoredChain]: bead 0 pinned, constant pull along +z on the last bead
//
// The variant is picked at run construction with [New].
package physics
