// Package task runs background work outside the request path. Tasks are
// persisted before they are queued so that a restart can rebuild and resume
// anything left pending or processing. Study marks and essay grading are the
// two task types the application registers.
package task
