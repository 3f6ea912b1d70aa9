// Package daemon hosts the long-running marquee process: it enforces
// single-instance execution via a lock file, owns the pipeline coordinator's
// lifecycle, and serves the HTTP control API.
package daemon
