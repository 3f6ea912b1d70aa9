// Package queue persists submitted queries and their lifecycle state so the
// daemon can report progress and reclaim interrupted work after a restart.
package queue
