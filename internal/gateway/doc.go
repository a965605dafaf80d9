// Package gateway wraps every interaction with the resume processing backend.
//
// The client exposes typed operations for template listing, resume upload,
// progress lookup, artifact download, and readiness checks. Failures are
// classified onto the shared sentinel errors so callers can branch on
// transport loss versus timeout without inspecting HTTP details. Upload uses
// its own long deadline because backend processing happens inline with the
// request; every other call uses the short request timeout.
package gateway
