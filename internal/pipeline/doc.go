// Package pipeline runs split jobs.
//
// SplitFile takes one input through the format gate, an existence check, the
// lazy model load, decoding, separation and the stem writer. Every failure is
// captured in the JobResult rather than returned, so callers report outcomes
// uniformly. SplitDir drives SplitFile sequentially over a directory.
//
// Uploading, history and notifications run after the job outcome is decided;
// their failures are logged as warnings and never change the result.
package pipeline
