// Package tmdb implements the remote movie-database client used for
// candidate search and full metadata lookup, with request rate limiting and
// a cached genre name table.
package tmdb
