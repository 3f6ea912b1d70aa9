// Package catalog persists the pipeline's three durable key-value tables:
// the metadata cache (confirmed movie records indexed by external ID and by
// every normalized query that resolved to them), the poster asset index, and
// the publication log. All mutation happens through the store's atomic
// operations; entries carry timestamps for TTL evaluation.
package catalog
