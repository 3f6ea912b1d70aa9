// Package services provides the shared error taxonomy and context helpers
// used across pipeline stages. Errors are tagged with sentinel markers so the
// coordinator can classify failures without inspecting message text.
package services
