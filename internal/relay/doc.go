// Package relay implements the two ends of a one-way framed TCP stream.
//
// Ownership boundary:
// - receiver: bind retry, single accept, idle watchdog, frame-to-sink copy
// - sender: bounded connect retry, chunk-to-frame copy
//
// Both ends are single-threaded around one working buffer. Every failure is
// fatal to the run; the only retries are bind (bounded by the watchdog) and
// connect (bounded by the connect window).
package relay
