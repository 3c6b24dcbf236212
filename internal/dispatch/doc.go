// Package dispatch matches pending jobs to worker capacity. The dispatcher
// scans pending jobs oldest first, claims a slot on the least loaded active
// worker through the store's atomic claim, and hands each claimed job to an
// executor goroutine. A timer drives the scan; a second sweep fails
// processing jobs whose executor stopped heartbeating.
package dispatch
