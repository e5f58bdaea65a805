package service

import (
	"context"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/domain"
	"github.com/phrazzld/cramdeck/internal/store"
)

// MasteryService summarises a user's progress.
type MasteryService interface {
	// Summary returns one entry per subject, sorted by subject name.
	Summary(ctx context.Context, userID uuid.UUID) ([]domain.SubjectMastery, error)
}

// MasteryServiceImpl implements MasteryService.
type MasteryServiceImpl struct {
	subjects  store.SubjectStore
	cards     store.FlashcardStore
	mastery   store.MasteryStore
	threshold int
	logger    *slog.Logger
}

// NewMasteryService creates a MasteryService. A card is mastered once it
// has been answered correctly threshold times in a row.
func NewMasteryService(
	subjects store.SubjectStore,
	cards store.FlashcardStore,
	mastery store.MasteryStore,
	threshold int,
	logger *slog.Logger,
) MasteryService {
	return &MasteryServiceImpl{
		subjects:  subjects,
		cards:     cards,
		mastery:   mastery,
		threshold: threshold,
		logger:    logger.With("component", "mastery_service"),
	}
}

func (s *MasteryServiceImpl) Summary(ctx context.Context, userID uuid.UUID) ([]domain.SubjectMastery, error) {
	subjects, err := s.subjects.List(ctx)
	if err != nil {
		return nil, NewServiceError("mastery", "summary", err)
	}
	cards, err := s.cards.List(ctx, store.FlashcardFilter{})
	if err != nil {
		return nil, NewServiceError("mastery", "summary", err)
	}
	records, err := s.mastery.ListByUser(ctx, userID)
	if err != nil {
		return nil, NewServiceError("mastery", "summary", err)
	}

	bySubject := make(map[uuid.UUID][]domain.Flashcard, len(subjects))
	for _, c := range cards {
		bySubject[c.SubjectID] = append(bySubject[c.SubjectID], c)
	}

	slices.SortFunc(subjects, compareSubjects)
	out := make([]domain.SubjectMastery, 0, len(subjects))
	for _, subject := range subjects {
		out = append(out, domain.SummarizeMastery(subject, bySubject[subject.ID], records, s.threshold))
	}
	s.logger.Debug("mastery summary built", "user_id", userID, "subjects", len(out), "records", len(records))
	return out, nil
}
