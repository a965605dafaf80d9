// Package delivery moves finished artifacts from the backend to the user.
//
// Three targets exist: browser hands the retrieval URL to the system opener,
// scoped storage saves into the user-chosen download directory, and unscoped
// storage fetches to a private temp file and hands it to the share surface.
// The target is picked once from configuration; callers hold a Deliverer and
// never branch on platform again.
//
// Artifacts are never cached. Every delivery fetches fresh bytes, and a
// failed delivery leaves no partial file behind and never touches the
// registry.
package delivery
