// Package services defines the shared error taxonomy and context carriers used
// across the ingestion, dispatch, and encode components.
package services
