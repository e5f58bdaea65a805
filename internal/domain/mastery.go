package domain

import (
	"time"

	"github.com/google/uuid"
)

// CardMastery tracks one user's history with one flashcard. It only feeds
// the dashboard; no scheduling is derived from it.
type CardMastery struct {
	UserID             uuid.UUID `json:"user_id"`
	CardID             uuid.UUID `json:"card_id"`
	ConsecutiveCorrect int       `json:"consecutive_correct"`
	TimesCorrect       int       `json:"times_correct"`
	TimesWrong         int       `json:"times_wrong"`
	LastStudiedAt      time.Time `json:"last_studied_at"`
}

// NewCardMastery returns an empty record for a card the user has not studied yet.
func NewCardMastery(userID, cardID uuid.UUID) *CardMastery {
	return &CardMastery{UserID: userID, CardID: cardID}
}

// Record applies one mark.
func (m *CardMastery) Record(correct bool, at time.Time) {
	if correct {
		m.ConsecutiveCorrect++
		m.TimesCorrect++
	} else {
		m.ConsecutiveCorrect = 0
		m.TimesWrong++
	}
	m.LastStudiedAt = at.UTC()
}

// IsMastered reports whether the streak has reached threshold.
func (m *CardMastery) IsMastered(threshold int) bool {
	return m.ConsecutiveCorrect >= threshold
}

// SubjectMastery summarises a subject for the dashboard.
type SubjectMastery struct {
	SubjectID   uuid.UUID `json:"subject_id"`
	SubjectName string    `json:"subject_name"`
	TotalCards  int       `json:"total_cards"`
	Mastered    int       `json:"mastered"`
	Learning    int       `json:"learning"`
	New         int       `json:"new"`
}

// Percent is the share of mastered cards, rounded down.
func (s SubjectMastery) Percent() int {
	if s.TotalCards == 0 {
		return 0
	}
	return s.Mastered * 100 / s.TotalCards
}

// SummarizeMastery classifies every card of a subject using the user's records.
func SummarizeMastery(subject Subject, cards []Flashcard, records map[uuid.UUID]*CardMastery, threshold int) SubjectMastery {
	out := SubjectMastery{SubjectID: subject.ID, SubjectName: subject.Name, TotalCards: len(cards)}
	for _, c := range cards {
		rec, ok := records[c.ID]
		switch {
		case !ok || (rec.TimesCorrect == 0 && rec.TimesWrong == 0):
			out.New++
		case rec.IsMastered(threshold):
			out.Mastered++
		default:
			out.Learning++
		}
	}
	return out
}
