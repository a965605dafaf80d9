// Command resumeup is the CLI client for the resume improvement backend.
// It uploads resumes for processing, tracks a local history with a credit
// balance, and delivers finished artifacts to the browser, the download
// directory, or the platform share surface.
package main
