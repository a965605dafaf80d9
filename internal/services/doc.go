// Package services defines the shared error taxonomy for resumeup flows.
//
// Sentinel markers classify failures at flow boundaries: gate failures
// (insufficient credits, concurrent flow), transport failures (network,
// non-success status, timeout), permission failures (storage access denied),
// and parse failures (malformed artifact payloads). Wrap tags an error with a
// marker plus component/operation context so callers can classify with
// errors.Is while keeping a readable message.
package services
