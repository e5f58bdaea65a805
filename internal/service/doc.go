// Package service contains the application use cases. It orchestrates domain
// objects and the repositories defined in internal/store to fulfil the
// features exposed by the HTTP API and the operator CLI.
//
// Key components:
//
//  1. CatalogService: subjects, subtopics and flashcards, including display
//     order maintenance and the plain-text export.
//  2. UserService: registration, verification, login, logout, password
//     reset and the admin user listings.
//  3. EssayService: essay uploads and the hand-off to background grading.
//  4. MasteryService: per-subject mastery summaries for the dashboard.
//
// Study sessions live in the study subpackage; token handling lives in auth.
//
// Services receive their dependencies through constructor injection and
// depend on store interfaces, never on a concrete database.
package service
