// Package event defines the raw and canonical event records flowing through
// the ingestion pipeline, along with the registered kennel groups they resolve
// against and the date normalization shared by all source adapters.
package event
