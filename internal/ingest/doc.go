// Package ingest turns raw inbound movie references into normalized lookup
// queries. Inputs arrive as free text, media filenames, or image captions;
// normalization strips release noise, extracts a plausible year, and fails
// when nothing usable remains.
package ingest
