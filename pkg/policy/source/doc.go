// Package source loads compiled policy documents into the engine and keeps
// them fresh. Policies arrive two ways: YAML documents in a watched directory
// (reloaded on change via fsnotify, debounced) and documents submitted over
// the API, which are persisted to a SQLite registry and replayed at startup.
package source
