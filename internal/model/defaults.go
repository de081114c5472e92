package model

import "time"

// Shared defaults used by the server binary and its subsystems.
const (
	DefaultStoreURL      = "http://localhost:8041"
	DefaultArchivePolicy = "low"
	DefaultFilterProject = "metricbridge"

	// DefaultSelfStorageResourceType is the resource type whose samples are
	// treated as the store's own object-storage account activity when their
	// resource id equals the service owner id.
	DefaultSelfStorageResourceType = "storage_account"

	DefaultBatchSize     = 2000
	DefaultFlushInterval = 100 * time.Millisecond
)
