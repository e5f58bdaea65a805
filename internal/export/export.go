// Package export renders catalog and account data for download.
package export

import (
	"bufio"
	"cmp"
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/domain"
)

const (
	unknownSubject  = "Unknown Subject"
	unknownSubtopic = "Unknown Subtopic"
)

func compareNames(a, b string) int {
	if c := cmp.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return cmp.Compare(a, b)
}

// FlashcardsText writes every card grouped by subject then subtopic, both
// sorted by name, with cards numbered from 1 within each subtopic in display
// order.
func FlashcardsText(w io.Writer, subjects []domain.Subject, subtopics []domain.Subtopic, cards []domain.Flashcard) error {
	subjectNames := make(map[uuid.UUID]string, len(subjects))
	for _, s := range subjects {
		subjectNames[s.ID] = s.Name
	}
	subtopicNames := make(map[uuid.UUID]string, len(subtopics))
	for _, st := range subtopics {
		subtopicNames[st.ID] = st.Name
	}

	grouped := map[string]map[string][]domain.Flashcard{}
	for _, c := range cards {
		subject, ok := subjectNames[c.SubjectID]
		if !ok {
			subject = unknownSubject
		}
		subtopic, ok := subtopicNames[c.SubtopicID]
		if !ok {
			subtopic = unknownSubtopic
		}
		if grouped[subject] == nil {
			grouped[subject] = map[string][]domain.Flashcard{}
		}
		grouped[subject][subtopic] = append(grouped[subject][subtopic], c)
	}

	bw := bufio.NewWriter(w)
	subjectKeys := sortedKeys(grouped)
	for _, subject := range subjectKeys {
		fmt.Fprintf(bw, "=== %s ===\n\n", subject)
		for _, subtopic := range sortedKeys(grouped[subject]) {
			fmt.Fprintf(bw, "--- %s ---\n\n", subtopic)
			group := grouped[subject][subtopic]
			slices.SortStableFunc(group, domain.CompareFlashcards)
			for i, c := range group {
				fmt.Fprintf(bw, "Card %d:\nFront: %s\nBack: %s\n\n", i+1, c.Front, c.Back)
			}
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareNames)
	return keys
}

// UsersCSV writes one row per user under the header
// Email,Signup Date,Email Verified.
func UsersCSV(w io.Writer, users []domain.User) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Email", "Signup Date", "Email Verified"}); err != nil {
		return err
	}
	for _, u := range users {
		verified := "No"
		if u.EmailVerified {
			verified = "Yes"
		}
		if err := cw.Write([]string{u.Email, u.CreatedAt.UTC().Format(time.DateOnly), verified}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// UsersCSVFilename names an export taken at now.
func UsersCSVFilename(now time.Time) string {
	return "users-" + now.UTC().Format(time.DateOnly) + ".csv"
}

// EmailList joins the users' addresses one per line.
func EmailList(users []domain.User) string {
	emails := make([]string, len(users))
	for i, u := range users {
		emails[i] = u.Email
	}
	return strings.Join(emails, "\n")
}
