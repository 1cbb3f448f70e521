// Package loader simulates the first-visit loading animation.
//
// The animation is decorative: progress is a fixed-shape simulation with
// random jitter, not a measure of real resource readiness. A Driver moves
// through three phases:
//
//	running    -> each tick nudges a target value upward and eases the
//	              displayed value toward it
//	completing -> displayed progress reached 99.5, snapped to 100, held briefly
//	finished   -> the page-ready flag is raised; after a second delay the
//	              driver unmounts
//
// Rendering is left to callers: the HTTP server streams frames over SSE and
// the CLI renders them in a terminal.
package loader
