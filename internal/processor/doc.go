// Package processor orchestrates the resume improvement flow end to end:
// credit gate, optimistic placeholder, upload, and resolution.
//
// The flow is single-flight. A file lock under the state directory rejects a
// second invocation (including from another process) while one is active, and
// the registry's processing pointer enforces the same inside the process.
// Exactly one terminal transition happens per flow: Commit on success, Abort
// on any failure, including cancellation. The credit is consumed only after
// the backend reports success, so a failed flow never costs a credit.
//
// The backend performs the whole improvement inline with the upload request
// and issues the job identifier in its response, so there is nothing to poll
// mid-flight. Progress shown during the wait is a locally generated staged
// estimate that only moves forward.
package processor
