// Package models defines the domain types shared by the birdseye client.
//
// The package contains three groups of types:
//
// 1. Session state owned by the session manager
//   - [Session] : bearer token plus the identity it was issued to
//
// 2. Upload workflow values
//   - [UploadRequest] : the image blob and its content type, discarded after submission
//   - [Preview] : local decode of the selected image
//   - [AnalysisResult] : wet-litter percentage and processed image returned by the service
//   - [UploadState] : Idle → Reading → Submitting → Idle
//
// 3. Derived classifications, never persisted
//   - [Severity] : Safe / Moderate / Critical band for a percentage
//   - [ErrorCategory] : user-facing category of a failed request
package models
