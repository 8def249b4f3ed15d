// Package selection tracks which part of a changes bundle is being looked at.
//
// A [State] has N+1 positions for a bundle of N commits: position 0 shows the
// change set of the whole request and positions 1..N show one commit each, in
// post-order. Every transition keeps the position in range.
package selection
