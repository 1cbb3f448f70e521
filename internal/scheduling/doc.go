// Package scheduling drives the third-party scheduling widget for each browser
// session: a modal shell that appears immediately, an API preload step, and an
// iframe that is only offered once the preload has succeeded. Preload failures
// leave the controller in an error state with a retry path; panics from the
// widget client trip a Guard that surfaces a reload fallback instead.
//
// Controllers are held in a Registry keyed by a session cookie and the widget
// namespace, so independent embeds on the same page never share state.
package scheduling
