package backend

// CleanupState names the outcome of the best-effort object removal that
// precedes a row delete.
type CleanupState string

const (
	// CleanupComplete means the object and the row are both gone.
	CleanupComplete CleanupState = "complete"
	// CleanupSkipped means there was no object key to remove.
	CleanupSkipped CleanupState = "skipped"
	// CleanupOrphanedObject means the row is gone but the object may remain.
	CleanupOrphanedObject CleanupState = "orphaned_object"
)
