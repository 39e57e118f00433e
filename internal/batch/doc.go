// Package batch runs compression and extraction jobs one at a time against an
// external transcoder.
//
// Run re-checks each output right before invoking the transcoder and skips
// jobs whose output already exists. A failed job has its output removed and
// the batch moves on. A cancelled context stops the batch: the in-flight
// job's output is deleted, later jobs are left for a future run, and outputs
// of finished jobs are never touched.
package batch
