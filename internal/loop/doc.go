// Package loop drives the recurring broadcast cycle.
//
// Each iteration provisions a fresh YouTube broadcast and ingest
// stream, points OBS at the new ingest key, streams for the configured
// hold window, then stops the output and starts over. The loop runs
// until one of its termination bounds is hit:
//   - Iteration count
//   - Total running duration
//   - A wall-clock expiration time
//
// A failed iteration never stops the loop; it is logged and retried
// after a backoff without advancing the iteration counter.
package loop
