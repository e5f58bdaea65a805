// Package events decouples services from the task runner. A service emits a
// TaskRequestEvent naming a task type and its JSON payload; the task package
// registers a handler that turns it into persisted background work.
package events
