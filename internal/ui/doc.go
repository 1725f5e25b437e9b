// Package ui implements the terminal dashboard using bubbletea's Elm architecture.
//
// Two views:
//  1. [LoginView] : identity and password form
//  2. [DashboardView] : image path input, live progress, the latest result with its
//     severity band and intervention card, and the analyses made this session
//
// The dashboard is protected. Entering it without a session, or any 401 while it is open,
// switches to the login view. Leaving the dashboard cancels the view context, so a
// submission still in flight is discarded instead of applied.
//
// The upload controller reports redirects and notices from its own goroutine. [Bridge]
// forwards them into the running program as messages.
package ui
