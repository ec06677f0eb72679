// Package decision implements the weighted decision scoring engine.
//
// An Analysis holds a title, an ordered list of Options and a shared
// WeightVector. Every Option carries one Rating per Factor; every Factor
// carries one Weight. The aggregate score of an option is
//
//	score = Σ rating[f] * weight[f]   for f in Factors()
//
// No normalization is applied. Rank orders options by score descending and
// keeps the input order between equal scores.
//
// Ratings and weights are validated at the mutation boundary:
//   - Rating: integer in [1, 5]
//   - Weight: real in [0.5, 3.0], multiple of 0.5
//
// Missing coverage (an option or weight vector without an entry for a
// recognized factor) makes ComputeScore and Rank fail with ErrMissingFactor
// instead of substituting a default.
//
// Everything in this package is pure and synchronous. It performs no I/O and
// is safe to call on every local mutation.
package decision
