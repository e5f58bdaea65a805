// Package domain defines the catalog (subjects, subtopics, flashcards), the
// accounts that study it, per-card mastery and uploaded essays. It has no
// storage or transport dependencies.
package domain
