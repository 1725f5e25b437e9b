// Package services implements the HTTP client for the wet-litter analysis service.
//
// The service is a FastAPI application with three endpoints the client uses:
//
//   - GET / : health probe, replies {"message": "Birdseye API is running"}
//   - POST /auth/login : OAuth2 password grant (form encoded), replies {"access_token": ...}
//   - POST /imageprocessing/manualupload : multipart "file" part with a bearer token
//
// [APIService] returns raw responses; deciding what a status code means is left to callers
// (see the classify package). Transport failures wrap [shared.ErrServiceUnavailable] and a
// non-2xx login reply is returned as a [*ResponseError].
//
// Every request waits on a shared [rate.Limiter] first, so a user hammering the analyze
// command or the dashboard cannot flood the service.
package services
