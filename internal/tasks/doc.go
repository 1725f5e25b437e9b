// Package tasks runs the client's user-facing operations with real-time progress reporting.
//
// # Upload Analysis
//
// [UploadController.Submit] takes one image through the analysis workflow:
//
//  1. Decode a local preview (concurrently with the steps below)
//  2. Check the persisted session; without one, surface "Please login first." and redirect
//  3. POST the image to the analysis endpoint with the bearer token
//  4. Apply the outcome to the controller [Snapshot]
//
// The preview decode and the network submit run in one errgroup. They write different
// snapshot fields (Preview and Result), so neither can overwrite the other; within a field the
// last writer wins. Each submission is tagged with an ID and bound to the caller's context:
// once the context is done, or [UploadController.Reset] has run, its writes are dropped.
//
// Outcomes:
//   - 401: the session is cleared, the result is hidden, the user is sent to the login view
//   - other failures: the error is classified and surfaced; a prior result is kept
//   - success (2xx or a true success flag): the result is replaced
//
// Only one submission runs at a time. A second call while one is in flight returns
// [ErrSubmissionInFlight].
//
// # Login
//
// [LoginTask] exchanges credentials for a token and persists the session. Failures are
// classified in the login context, so a 401 reads "Incorrect password. Please try again."
//
// # Progress Reporting
//
// Operations accept an optional chan<- [ProgressUpdate]. Sends use select with default and
// never block; a slow or absent reader only misses updates.
package tasks
