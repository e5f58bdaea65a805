package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/deckfile"
	"github.com/phrazzld/cramdeck/internal/domain"
	"github.com/phrazzld/cramdeck/internal/export"
	"github.com/phrazzld/cramdeck/internal/redact"
	"github.com/phrazzld/cramdeck/internal/store"
)

// Direction moves an item one place within its siblings.
type Direction int

const (
	Up Direction = iota
	Down
)

// ParseDirection accepts "up" and "down".
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(s) {
	case "up":
		return Up, true
	case "down":
		return Down, true
	}
	return 0, false
}

// FlashcardQuery narrows ListFlashcards. Zero fields do not filter.
type FlashcardQuery struct {
	SubjectID  uuid.UUID
	SubtopicID uuid.UUID
	// Search is matched case-insensitively against both faces.
	Search string
}

// FlashcardInput carries the editable fields of a flashcard.
type FlashcardInput struct {
	SubjectID  uuid.UUID
	SubtopicID uuid.UUID
	Front      string
	Back       string
}

// ImportResult counts what ImportDeck created.
type ImportResult struct {
	Subjects  int
	Subtopics int
	Cards     int
}

// CatalogService manages subjects, subtopics and flashcards.
type CatalogService interface {
	ListSubjects(ctx context.Context) ([]domain.Subject, error)
	CreateSubject(ctx context.Context, name string) (*domain.Subject, error)
	RenameSubject(ctx context.Context, id uuid.UUID, name string) error
	DeleteSubject(ctx context.Context, id uuid.UUID) error

	// ListSubtopics returns the subject's subtopics in display order.
	ListSubtopics(ctx context.Context, subjectID uuid.UUID) ([]domain.Subtopic, error)
	CreateSubtopic(ctx context.Context, subjectID uuid.UUID, name string) (*domain.Subtopic, error)
	RenameSubtopic(ctx context.Context, id uuid.UUID, name string) error
	DeleteSubtopic(ctx context.Context, id uuid.UUID) error
	MoveSubtopic(ctx context.Context, id uuid.UUID, dir Direction) error
	// ReorderSubtopics assigns positions 0..n-1 following ids, which must
	// name every subtopic of the subject once.
	ReorderSubtopics(ctx context.Context, subjectID uuid.UUID, ids []uuid.UUID) error

	// ListFlashcards returns matching cards in display order.
	ListFlashcards(ctx context.Context, q FlashcardQuery) ([]domain.Flashcard, error)
	GetFlashcard(ctx context.Context, id uuid.UUID) (*domain.Flashcard, error)
	CreateFlashcard(ctx context.Context, in FlashcardInput) (*domain.Flashcard, error)
	UpdateFlashcard(ctx context.Context, id uuid.UUID, in FlashcardInput) (*domain.Flashcard, error)
	DeleteFlashcard(ctx context.Context, id uuid.UUID) error
	MoveFlashcard(ctx context.Context, id uuid.UUID, dir Direction) error
	ReorderFlashcards(ctx context.Context, subtopicID uuid.UUID, ids []uuid.UUID) error

	// ExportText writes every card grouped by subject and subtopic.
	ExportText(ctx context.Context, w io.Writer) error
	// ImportDeck merges a deck file into the catalog in one transaction.
	// Subjects and subtopics are matched by name; cards are appended.
	ImportDeck(ctx context.Context, deck *deckfile.Deck) (ImportResult, error)
}

// CatalogServiceImpl implements CatalogService.
type CatalogServiceImpl struct {
	subjects  store.SubjectStore
	subtopics store.SubtopicStore
	cards     store.FlashcardStore
	caps      store.CapabilityProvider
	db        store.TxBeginner
	logger    *slog.Logger
}

// NewCatalogService creates a CatalogService.
func NewCatalogService(
	subjects store.SubjectStore,
	subtopics store.SubtopicStore,
	cards store.FlashcardStore,
	caps store.CapabilityProvider,
	db store.TxBeginner,
	logger *slog.Logger,
) CatalogService {
	return &CatalogServiceImpl{
		subjects:  subjects,
		subtopics: subtopics,
		cards:     cards,
		caps:      caps,
		db:        db,
		logger:    logger.With("component", "catalog_service"),
	}
}

func (s *CatalogServiceImpl) fail(op string, err error) error {
	return NewServiceError("catalog", op, err)
}

func (s *CatalogServiceImpl) displayOrderSupported(ctx context.Context) (bool, error) {
	caps, err := s.caps.Capabilities(ctx)
	if err != nil {
		return false, err
	}
	return caps.DisplayOrder, nil
}

func compareSubjects(a, b domain.Subject) int {
	if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
		return c
	}
	return strings.Compare(a.ID.String(), b.ID.String())
}

// ListSubjects returns every subject sorted by name.
func (s *CatalogServiceImpl) ListSubjects(ctx context.Context) ([]domain.Subject, error) {
	subjects, err := s.subjects.List(ctx)
	if err != nil {
		return nil, s.fail("list subjects", err)
	}
	slices.SortFunc(subjects, compareSubjects)
	return subjects, nil
}

func (s *CatalogServiceImpl) CreateSubject(ctx context.Context, name string) (*domain.Subject, error) {
	subject, err := domain.NewSubject(name)
	if err != nil {
		return nil, err
	}
	if err := s.subjects.Create(ctx, subject); err != nil {
		return nil, s.fail("create subject", err)
	}
	s.logger.Info("subject created", "subject_id", subject.ID, "name", subject.Name)
	return subject, nil
}

func (s *CatalogServiceImpl) RenameSubject(ctx context.Context, id uuid.UUID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.NewValidationError("name", "cannot be empty", domain.ErrEmptyName)
	}
	if err := s.subjects.Rename(ctx, id, name); err != nil {
		return s.fail("rename subject", err)
	}
	return nil
}

func (s *CatalogServiceImpl) DeleteSubject(ctx context.Context, id uuid.UUID) error {
	if err := s.subjects.Delete(ctx, id); err != nil {
		return s.fail("delete subject", err)
	}
	s.logger.Info("subject deleted", "subject_id", id)
	return nil
}

func (s *CatalogServiceImpl) ListSubtopics(ctx context.Context, subjectID uuid.UUID) ([]domain.Subtopic, error) {
	if _, err := s.subjects.GetByID(ctx, subjectID); err != nil {
		return nil, s.fail("list subtopics", err)
	}
	list, err := s.subtopics.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, s.fail("list subtopics", err)
	}
	slices.SortFunc(list, domain.CompareSubtopics)
	return list, nil
}

func (s *CatalogServiceImpl) CreateSubtopic(ctx context.Context, subjectID uuid.UUID, name string) (*domain.Subtopic, error) {
	subtopic, err := domain.NewSubtopic(subjectID, name)
	if err != nil {
		return nil, err
	}
	if _, err := s.subjects.GetByID(ctx, subjectID); err != nil {
		return nil, s.fail("create subtopic", err)
	}
	if err := s.assignSubtopicOrder(ctx, s.subtopics, subtopic); err != nil {
		return nil, s.fail("create subtopic", err)
	}
	if err := s.subtopics.Create(ctx, subtopic); err != nil {
		return nil, s.fail("create subtopic", err)
	}
	return subtopic, nil
}

// assignSubtopicOrder places subtopic after its siblings when the schema
// supports ordering.
func (s *CatalogServiceImpl) assignSubtopicOrder(ctx context.Context, st store.SubtopicStore, subtopic *domain.Subtopic) error {
	ok, err := s.displayOrderSupported(ctx)
	if err != nil || !ok {
		return err
	}
	siblings, err := st.ListBySubject(ctx, subtopic.SubjectID)
	if err != nil {
		return err
	}
	orders := make([]domain.DisplayOrder, len(siblings))
	for i, sib := range siblings {
		orders[i] = sib.DisplayOrder
	}
	subtopic.DisplayOrder = domain.NextDisplayOrder(orders)
	return nil
}

func (s *CatalogServiceImpl) assignCardOrder(ctx context.Context, cs store.FlashcardStore, card *domain.Flashcard) error {
	ok, err := s.displayOrderSupported(ctx)
	if err != nil || !ok {
		return err
	}
	siblings, err := cs.List(ctx, store.FlashcardFilter{SubtopicID: card.SubtopicID})
	if err != nil {
		return err
	}
	orders := make([]domain.DisplayOrder, 0, len(siblings))
	for _, sib := range siblings {
		if sib.ID != card.ID {
			orders = append(orders, sib.DisplayOrder)
		}
	}
	card.DisplayOrder = domain.NextDisplayOrder(orders)
	return nil
}

func (s *CatalogServiceImpl) RenameSubtopic(ctx context.Context, id uuid.UUID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.NewValidationError("name", "cannot be empty", domain.ErrEmptyName)
	}
	if err := s.subtopics.Rename(ctx, id, name); err != nil {
		return s.fail("rename subtopic", err)
	}
	return nil
}

func (s *CatalogServiceImpl) DeleteSubtopic(ctx context.Context, id uuid.UUID) error {
	if err := s.subtopics.Delete(ctx, id); err != nil {
		return s.fail("delete subtopic", err)
	}
	return nil
}

func (s *CatalogServiceImpl) MoveSubtopic(ctx context.Context, id uuid.UUID, dir Direction) error {
	subtopic, err := s.subtopics.GetByID(ctx, id)
	if err != nil {
		return s.fail("move subtopic", err)
	}
	siblings, err := s.ListSubtopics(ctx, subtopic.SubjectID)
	if err != nil {
		return err
	}
	ids := subtopicIDs(siblings)
	if !swapNeighbour(ids, id, dir) {
		return nil
	}
	return s.writeSubtopicOrder(ctx, siblings, ids)
}

func (s *CatalogServiceImpl) ReorderSubtopics(ctx context.Context, subjectID uuid.UUID, ids []uuid.UUID) error {
	siblings, err := s.ListSubtopics(ctx, subjectID)
	if err != nil {
		return err
	}
	if !samePermutation(subtopicIDs(siblings), ids) {
		return ErrInvalidOrder
	}
	return s.writeSubtopicOrder(ctx, siblings, ids)
}

// writeSubtopicOrder issues one update per subtopic whose position changes.
// The updates are independent; failures are joined and earlier writes stay.
func (s *CatalogServiceImpl) writeSubtopicOrder(ctx context.Context, current []domain.Subtopic, ids []uuid.UUID) error {
	ok, err := s.displayOrderSupported(ctx)
	if err != nil {
		return s.fail("reorder subtopics", err)
	}
	if !ok {
		return store.ErrDisplayOrderUnsupported
	}
	existing := make(map[uuid.UUID]domain.DisplayOrder, len(current))
	for _, st := range current {
		existing[st.ID] = st.DisplayOrder
	}

	var errs []error
	for i, id := range ids {
		if idx, ordered := existing[id].Index(); ordered && idx == i {
			continue
		}
		if err := s.subtopics.SetDisplayOrder(ctx, id, i); err != nil {
			errs = append(errs, fmt.Errorf("subtopic %s: %w", id, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Warn("subtopic reorder partially failed", "failures", len(errs), "error", redact.Error(err))
		return s.fail("reorder subtopics", err)
	}
	return nil
}

func (s *CatalogServiceImpl) ListFlashcards(ctx context.Context, q FlashcardQuery) ([]domain.Flashcard, error) {
	cards, err := s.cards.List(ctx, store.FlashcardFilter{SubjectID: q.SubjectID, SubtopicID: q.SubtopicID})
	if err != nil {
		return nil, s.fail("list flashcards", err)
	}
	if strings.TrimSpace(q.Search) != "" {
		cards = slices.DeleteFunc(cards, func(c domain.Flashcard) bool { return !c.Matches(q.Search) })
	}
	slices.SortFunc(cards, domain.CompareFlashcards)
	return cards, nil
}

func (s *CatalogServiceImpl) GetFlashcard(ctx context.Context, id uuid.UUID) (*domain.Flashcard, error) {
	card, err := s.cards.GetByID(ctx, id)
	if err != nil {
		return nil, s.fail("get flashcard", err)
	}
	return card, nil
}

// checkPlacement verifies that the subtopic exists under the subject.
func (s *CatalogServiceImpl) checkPlacement(ctx context.Context, st store.SubtopicStore, subjectID, subtopicID uuid.UUID) error {
	subtopic, err := st.GetByID(ctx, subtopicID)
	if err != nil {
		return err
	}
	if subtopic.SubjectID != subjectID {
		return ErrSubtopicMismatch
	}
	return nil
}

func (s *CatalogServiceImpl) CreateFlashcard(ctx context.Context, in FlashcardInput) (*domain.Flashcard, error) {
	card, err := domain.NewFlashcard(in.SubjectID, in.SubtopicID, in.Front, in.Back)
	if err != nil {
		return nil, err
	}
	if err := s.checkPlacement(ctx, s.subtopics, in.SubjectID, in.SubtopicID); err != nil {
		return nil, s.fail("create flashcard", err)
	}
	if err := s.assignCardOrder(ctx, s.cards, card); err != nil {
		return nil, s.fail("create flashcard", err)
	}
	if err := s.cards.Create(ctx, card); err != nil {
		return nil, s.fail("create flashcard", err)
	}
	return card, nil
}

// UpdateFlashcard rewrites faces and placement. A card moved to another
// subtopic goes to the end of it.
func (s *CatalogServiceImpl) UpdateFlashcard(ctx context.Context, id uuid.UUID, in FlashcardInput) (*domain.Flashcard, error) {
	card, err := s.cards.GetByID(ctx, id)
	if err != nil {
		return nil, s.fail("update flashcard", err)
	}
	moved := card.SubtopicID != in.SubtopicID

	card.Front = strings.TrimSpace(in.Front)
	card.Back = strings.TrimSpace(in.Back)
	card.SubjectID = in.SubjectID
	card.SubtopicID = in.SubtopicID
	if err := card.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkPlacement(ctx, s.subtopics, card.SubjectID, card.SubtopicID); err != nil {
		return nil, s.fail("update flashcard", err)
	}
	if moved {
		if err := s.assignCardOrder(ctx, s.cards, card); err != nil {
			return nil, s.fail("update flashcard", err)
		}
	}
	if err := s.cards.Update(ctx, card); err != nil {
		return nil, s.fail("update flashcard", err)
	}
	return card, nil
}

func (s *CatalogServiceImpl) DeleteFlashcard(ctx context.Context, id uuid.UUID) error {
	if err := s.cards.Delete(ctx, id); err != nil {
		return s.fail("delete flashcard", err)
	}
	return nil
}

func (s *CatalogServiceImpl) siblingCards(ctx context.Context, subtopicID uuid.UUID) ([]domain.Flashcard, error) {
	cards, err := s.cards.List(ctx, store.FlashcardFilter{SubtopicID: subtopicID})
	if err != nil {
		return nil, s.fail("list flashcards", err)
	}
	slices.SortFunc(cards, domain.CompareFlashcards)
	return cards, nil
}

func (s *CatalogServiceImpl) MoveFlashcard(ctx context.Context, id uuid.UUID, dir Direction) error {
	card, err := s.cards.GetByID(ctx, id)
	if err != nil {
		return s.fail("move flashcard", err)
	}
	siblings, err := s.siblingCards(ctx, card.SubtopicID)
	if err != nil {
		return err
	}
	ids := cardIDs(siblings)
	if !swapNeighbour(ids, id, dir) {
		return nil
	}
	return s.writeCardOrder(ctx, siblings, ids)
}

func (s *CatalogServiceImpl) ReorderFlashcards(ctx context.Context, subtopicID uuid.UUID, ids []uuid.UUID) error {
	if _, err := s.subtopics.GetByID(ctx, subtopicID); err != nil {
		return s.fail("reorder flashcards", err)
	}
	siblings, err := s.siblingCards(ctx, subtopicID)
	if err != nil {
		return err
	}
	if !samePermutation(cardIDs(siblings), ids) {
		return ErrInvalidOrder
	}
	return s.writeCardOrder(ctx, siblings, ids)
}

func (s *CatalogServiceImpl) writeCardOrder(ctx context.Context, current []domain.Flashcard, ids []uuid.UUID) error {
	ok, err := s.displayOrderSupported(ctx)
	if err != nil {
		return s.fail("reorder flashcards", err)
	}
	if !ok {
		return store.ErrDisplayOrderUnsupported
	}
	existing := make(map[uuid.UUID]domain.DisplayOrder, len(current))
	for _, c := range current {
		existing[c.ID] = c.DisplayOrder
	}

	var errs []error
	for i, id := range ids {
		if idx, ordered := existing[id].Index(); ordered && idx == i {
			continue
		}
		if err := s.cards.SetDisplayOrder(ctx, id, i); err != nil {
			errs = append(errs, fmt.Errorf("flashcard %s: %w", id, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Warn("flashcard reorder partially failed", "failures", len(errs), "error", redact.Error(err))
		return s.fail("reorder flashcards", err)
	}
	return nil
}

func (s *CatalogServiceImpl) ExportText(ctx context.Context, w io.Writer) error {
	subjects, err := s.subjects.List(ctx)
	if err != nil {
		return s.fail("export", err)
	}
	subtopics, err := s.subtopics.ListAll(ctx)
	if err != nil {
		return s.fail("export", err)
	}
	cards, err := s.cards.List(ctx, store.FlashcardFilter{})
	if err != nil {
		return s.fail("export", err)
	}
	return export.FlashcardsText(w, subjects, subtopics, cards)
}

func (s *CatalogServiceImpl) ImportDeck(ctx context.Context, deck *deckfile.Deck) (ImportResult, error) {
	var result ImportResult
	if err := deck.Validate(); err != nil {
		return result, err
	}

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		subjects := s.subjects.WithTx(tx)
		subtopics := s.subtopics.WithTx(tx)
		cards := s.cards.WithTx(tx)
		result = ImportResult{}

		existing, err := subjects.List(ctx)
		if err != nil {
			return err
		}
		byName := make(map[string]domain.Subject, len(existing))
		for _, subj := range existing {
			byName[strings.ToLower(subj.Name)] = subj
		}

		for _, ds := range deck.Subjects {
			subject, ok := byName[strings.ToLower(strings.TrimSpace(ds.Name))]
			if !ok {
				created, err := domain.NewSubject(ds.Name)
				if err != nil {
					return err
				}
				if err := subjects.Create(ctx, created); err != nil {
					return fmt.Errorf("subject %q: %w", ds.Name, err)
				}
				subject = *created
				result.Subjects++
			}

			siblings, err := subtopics.ListBySubject(ctx, subject.ID)
			if err != nil {
				return err
			}
			for _, dt := range ds.Subtopics {
				subtopic, err := s.importSubtopic(ctx, subtopics, subject.ID, dt.Name, siblings)
				if err != nil {
					return err
				}
				if !slices.ContainsFunc(siblings, func(x domain.Subtopic) bool { return x.ID == subtopic.ID }) {
					siblings = append(siblings, *subtopic)
					result.Subtopics++
				}

				for _, dc := range dt.Cards {
					card, err := domain.NewFlashcard(subject.ID, subtopic.ID, dc.Front, dc.Back)
					if err != nil {
						return err
					}
					if err := s.assignCardOrder(ctx, cards, card); err != nil {
						return err
					}
					if err := cards.Create(ctx, card); err != nil {
						return fmt.Errorf("card %q: %w", dc.Front, err)
					}
					result.Cards++
				}
			}
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, s.fail("import deck", err)
	}

	s.logger.Info("deck imported",
		"subjects", result.Subjects,
		"subtopics", result.Subtopics,
		"cards", result.Cards)
	return result, nil
}

// importSubtopic returns the sibling named name or creates it.
func (s *CatalogServiceImpl) importSubtopic(ctx context.Context, st store.SubtopicStore, subjectID uuid.UUID, name string, siblings []domain.Subtopic) (*domain.Subtopic, error) {
	for _, sib := range siblings {
		if strings.EqualFold(sib.Name, strings.TrimSpace(name)) {
			return &sib, nil
		}
	}
	subtopic, err := domain.NewSubtopic(subjectID, name)
	if err != nil {
		return nil, err
	}
	if err := s.assignSubtopicOrder(ctx, st, subtopic); err != nil {
		return nil, err
	}
	if err := st.Create(ctx, subtopic); err != nil {
		return nil, fmt.Errorf("subtopic %q: %w", name, err)
	}
	return subtopic, nil
}

func subtopicIDs(list []domain.Subtopic) []uuid.UUID {
	ids := make([]uuid.UUID, len(list))
	for i, st := range list {
		ids[i] = st.ID
	}
	return ids
}

func cardIDs(list []domain.Flashcard) []uuid.UUID {
	ids := make([]uuid.UUID, len(list))
	for i, c := range list {
		ids[i] = c.ID
	}
	return ids
}

// swapNeighbour swaps id with the item above or below it in place. It
// reports false when id is absent or already at that edge.
func swapNeighbour(ids []uuid.UUID, id uuid.UUID, dir Direction) bool {
	i := slices.Index(ids, id)
	if i < 0 {
		return false
	}
	j := i - 1
	if dir == Down {
		j = i + 1
	}
	if j < 0 || j >= len(ids) {
		return false
	}
	ids[i], ids[j] = ids[j], ids[i]
	return true
}

func samePermutation(have, want []uuid.UUID) bool {
	if len(have) != len(want) {
		return false
	}
	seen := make(map[uuid.UUID]bool, len(want))
	for _, id := range want {
		if seen[id] {
			return false
		}
		seen[id] = true
	}
	for _, id := range have {
		if !seen[id] {
			return false
		}
	}
	return true
}
