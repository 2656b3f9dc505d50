// Package feed runs submitted entries through their form's Drip feeds and
// manages the stored feed configurations.
//
// Processor walks one (feed, entry) pair through
//
//	Gated -> CredentialsChecked -> Mapped -> Sent -> Succeeded | Failed
//
// with Skipped as the quiet exit when the feed condition does not match.
// Failures are recorded against the entry and logged; they are never
// returned to the caller and never affect other feeds.
//
// Service holds the feed CRUD rules and depends on the Repository interface
// defined in repository.go.
package feed
