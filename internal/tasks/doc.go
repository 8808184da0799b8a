// Package tasks runs long-lived operations against a proxy with progress reporting.
//
// [Warmer] pre-resolves a batch of video identifiers so later /stream requests are cache hits.
// Work fans out over a bounded errgroup and per-identifier failures are collected in the
// [WarmResult] rather than aborting the batch.
//
// # Progress Reporting
//
// Operations accept an optional channel of [ProgressUpdate]. Sends never block: when the
// receiver falls behind, updates are dropped.
package tasks
