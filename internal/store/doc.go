// Package store declares the persistence contracts for the catalog (subjects,
// subtopics, flashcards), accounts, per-card mastery and essays. Services
// depend on these interfaces; internal/platform/postgres implements them.
package store
