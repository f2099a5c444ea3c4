// Package ops provides the primitive bioinformatics sequence operations
// benchmarked by seqbench, each implemented for several execution
// backends behind a single dispatch point.
//
// Backends:
//   - scalar: portable baseline loops, the correctness reference
//   - table: 256-entry lookup-table kernels
//   - packed: 2-bit encoded kernels working on packed bytes
//   - parallel: chunked across goroutines on top of the best serial kernel
//
// Every backend of an operation must produce output equal to the scalar
// backend; the bench package enforces this cross-check on every run.
package ops
