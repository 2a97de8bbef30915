// Package simulate reproduces a follower's trajectory behind an observed
// leader by integrating the IDM forward over the recorded time axis.
//
// One call to Simulator.Run owns its buffers from start to finish; runs
// share nothing and may execute concurrently. Within a run every step
// depends on the previous one, so the loop is strictly sequential.
//
// Segment boundaries (a new leader or a new follower between consecutive
// rows) re-seed the simulated state from the observation. A step whose
// integrated speed would go negative is treated as a stop and its gap is
// recomputed from the closed-form stopping distance before any reset is
// applied.
package simulate
