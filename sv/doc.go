/*Package sv holds the structural-variant interval model and the consensus
  merge engine.

  Per-tool calls are first merged within each tool (MergeTool), then pooled
  across tools and merged until a fixed point is reached (MergeRecursively).
  ValidationPass marks calls supported by several tools, and KeepLength drops
  calls outside the reportable size range.  Two intervals merge when they are
  on the same contig, have the same type, both breakpoints agree within the
  larger of their wiggles, and their reciprocal overlap reaches the configured
  ratio.  Insertions skip the overlap test.
*/
package sv
