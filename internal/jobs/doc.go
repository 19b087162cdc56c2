// Package jobs owns the in-memory job table and runs each job through
// download, composition and publishing on a fixed-size worker pool.
//
// Submit validates a request and enqueues it without blocking. Workers take
// jobs in FIFO order and run one job at a time: both sources are downloaded
// in order, the composition plan is rendered, and the outputs are moved to
// OutputDir/<job id>/. Any failure marks the job failed with a readable
// summary. Intermediate files are tracked by a staging.Scope and removed
// before the terminal status becomes visible.
//
// Status only moves forward:
//
//	queued → downloading → composing → publishing → completed
//
// with failed reachable from every non-terminal status.
package jobs
