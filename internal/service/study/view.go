package study

import (
	"github.com/google/uuid"
	studysession "github.com/phrazzld/cramdeck/internal/domain/study"
)

// Face is the side of the current card being shown.
type Face struct {
	CardID     uuid.UUID `json:"card_id"`
	SubjectID  uuid.UUID `json:"subject_id"`
	SubtopicID uuid.UUID `json:"subtopic_id"`
	Side       string    `json:"side"`
	Text       string    `json:"text"`
}

// Result summarises a completed round.
type Result struct {
	Correct int  `json:"correct"`
	Total   int  `json:"total"`
	Missed  int  `json:"missed"`
	Perfect bool `json:"perfect"`
}

// View is a read-only snapshot of a session for clients.
type View struct {
	Status      studysession.Status `json:"status"`
	Scope       Scope               `json:"scope"`
	CardNumber  int                 `json:"card_number"`
	CardCount   int                 `json:"card_count"`
	Progress    int                 `json:"progress"`
	ReviewRound bool                `json:"review_round"`
	Card        *Face               `json:"card,omitempty"`
	Result      *Result             `json:"result,omitempty"`
}

func newView(s *studysession.Session, scope Scope) View {
	active := s.ActiveCards()
	v := View{
		Status:      s.Status(),
		Scope:       scope,
		CardCount:   len(active),
		ReviewRound: s.IsReviewRound(),
	}

	switch v.Status {
	case studysession.StatusInProgress:
		card := s.Current()
		face := &Face{CardID: card.ID, SubjectID: card.SubjectID, SubtopicID: card.SubtopicID, Side: "front", Text: card.Front}
		if s.Flipped() {
			face.Side, face.Text = "back", card.Back
		}
		v.Card = face
		v.CardNumber = s.Position() + 1
		v.Progress = s.Progress()
	case studysession.StatusComplete:
		v.CardNumber = len(active)
		v.Progress = 100
		if score, err := s.Score(); err == nil {
			v.Result = &Result{
				Correct: score.Correct,
				Total:   score.Total,
				Missed:  score.Missed(),
				Perfect: score.Perfect(),
			}
		}
	}
	return v
}
