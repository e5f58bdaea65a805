// Package gemini grades essays with Google's Gemini API. The essay image or
// PDF is sent inline next to a grading prompt and the model's text reply is
// returned as feedback.
package gemini
