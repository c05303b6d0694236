package ir

// Version constants for the rule schema and the watcher.
const (
	// SchemaVersion is the rule record schema version stored with persisted entries.
	SchemaVersion = "1"

	// WatcherVersion is the edgewatch watcher version.
	WatcherVersion = "0.1.0"
)
