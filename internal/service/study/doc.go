// Package study runs study sessions for HTTP clients. It keeps at most one
// session per user, builds decks for the subject, subtopic, random and
// missed modes, and turns each mark into a background mastery update.
package study
