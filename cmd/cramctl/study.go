package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/domain"
	"github.com/phrazzld/cramdeck/internal/events"
	"github.com/phrazzld/cramdeck/internal/platform/postgres"
	"github.com/phrazzld/cramdeck/internal/platform/redis"
	"github.com/phrazzld/cramdeck/internal/redact"
	"github.com/phrazzld/cramdeck/internal/service/study"
	"github.com/phrazzld/cramdeck/internal/store"
	"github.com/phrazzld/cramdeck/internal/task"
	"github.com/phrazzld/cramdeck/internal/tui"
	"github.com/spf13/cobra"
)

var errNoScope = errors.New("one of --subject, --subtopic, --random or --missed is required")

// studyFlags selects a deck. Subjects and subtopics may be given by id or
// by name.
type studyFlags struct {
	email    string
	subject  string
	subtopic string
	random   bool
	missed   bool
}

// catalogLookup is the part of the catalog used to resolve names.
type catalogLookup interface {
	ListSubjects(ctx context.Context) ([]domain.Subject, error)
	ListSubtopics(ctx context.Context, subjectID uuid.UUID) ([]domain.Subtopic, error)
}

// scope turns the flags into a study scope. A subtopic given by name needs
// its subject.
func (f studyFlags) scope(ctx context.Context, catalog catalogLookup) (study.Scope, error) {
	var (
		subjectID uuid.UUID
		err       error
	)
	if f.subject != "" {
		subjectID, err = resolveSubject(ctx, catalog, f.subject)
		if err != nil {
			return study.Scope{}, err
		}
	}

	switch {
	case f.subtopic != "":
		subtopicID, err := resolveSubtopic(ctx, catalog, subjectID, f.subtopic)
		if err != nil {
			return study.Scope{}, err
		}
		return study.Scope{Mode: study.ModeSubtopic, SubjectID: subjectID, SubtopicID: subtopicID}, nil
	case f.random:
		return study.Scope{Mode: study.ModeRandom, SubjectID: subjectID}, nil
	case f.missed:
		return study.Scope{Mode: study.ModeMissed, SubjectID: subjectID}, nil
	case subjectID != uuid.Nil:
		return study.Scope{Mode: study.ModeSubject, SubjectID: subjectID}, nil
	}
	return study.Scope{}, errNoScope
}

func resolveSubject(ctx context.Context, catalog catalogLookup, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	subjects, err := catalog.ListSubjects(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	for _, s := range subjects {
		if strings.EqualFold(s.Name, strings.TrimSpace(ref)) {
			return s.ID, nil
		}
	}
	return uuid.Nil, fmt.Errorf("subject %q: %w", ref, store.ErrSubjectNotFound)
}

func resolveSubtopic(ctx context.Context, catalog catalogLookup, subjectID uuid.UUID, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	if subjectID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("subtopic %q: --subject is required to look up a subtopic by name", ref)
	}
	subtopics, err := catalog.ListSubtopics(ctx, subjectID)
	if err != nil {
		return uuid.Nil, err
	}
	for _, st := range subtopics {
		if strings.EqualFold(st.Name, strings.TrimSpace(ref)) {
			return st.ID, nil
		}
	}
	return uuid.Nil, fmt.Errorf("subtopic %q: %w", ref, store.ErrSubtopicNotFound)
}

// title labels the session in the terminal header.
func title(scope study.Scope, f studyFlags) string {
	parts := []string{"cramdeck"}
	if f.subject != "" {
		parts = append(parts, f.subject)
	}
	if f.subtopic != "" {
		parts = append(parts, f.subtopic)
	}
	if scope.Mode == study.ModeRandom || scope.Mode == study.ModeMissed {
		parts = append(parts, string(scope.Mode))
	}
	return strings.Join(parts, " · ")
}

func newStudyCmd(opts *rootOptions) *cobra.Command {
	var flags studyFlags

	cmd := &cobra.Command{
		Use:   "study",
		Short: "Study flashcards in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			// Anything below error would draw over the terminal UI.
			quiet := *opts
			if quiet.logLevel == "" {
				quiet.logLevel = "error"
			}
			e, err := openEnv(ctx, &quiet, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			user, err := e.userStore().GetByEmail(ctx, flags.email)
			if err != nil {
				return fmt.Errorf("%s: %w", flags.email, err)
			}

			catalog := e.catalog()
			scope, err := flags.scope(ctx, catalog)
			if err != nil {
				return err
			}

			sessions, closeRedis := e.studyService(ctx)
			defer closeRedis()

			initial, err := sessions.NewSession(ctx, user.ID, scope)
			if err != nil {
				return err
			}
			return tui.Run(ctx, sessions, user.ID, title(scope, flags), initial,
				teaIO(cmd)...)
		},
	}
	cmd.Flags().StringVar(&flags.email, "email", "", "account that studies; marks count toward its mastery")
	cmd.Flags().StringVar(&flags.subject, "subject", "", "subject id or name")
	cmd.Flags().StringVar(&flags.subtopic, "subtopic", "", "subtopic id or name (by name needs --subject)")
	cmd.Flags().BoolVar(&flags.random, "random", false, "random deck, from --subject when given")
	cmd.Flags().BoolVar(&flags.missed, "missed", false, "study the account's missed cards")
	_ = cmd.MarkFlagRequired("email")
	cmd.MarkFlagsMutuallyExclusive("subtopic", "random", "missed")
	return cmd
}

// studyService builds a session service whose marks are recorded before the
// action returns. Redis is optional here: without it the missed list is
// disabled and only mastery is recorded.
func (e *env) studyService(ctx context.Context) (*study.Service, func()) {
	caps := postgres.NewSchemaCapabilities(e.db, e.logger)
	cards := postgres.NewPostgresFlashcardStore(e.db, caps, e.logger)
	subtopics := postgres.NewPostgresSubtopicStore(e.db, caps, e.logger)
	mastery := postgres.NewPostgresMasteryStore(e.db, e.logger)

	var (
		missedTracker task.MissedTracker
		missedList    study.MissedList
		closeRedis    = func() {}
	)
	rdb, err := redis.NewClient(ctx, e.cfg.Redis.URL, e.logger)
	if err != nil {
		e.logger.Warn("redis unavailable, missed cards will not be tracked", "error", redact.Error(err))
	} else {
		tracker := redis.NewMissedCardTracker(rdb, e.logger)
		missedTracker, missedList = tracker, tracker
		closeRedis = func() { _ = rdb.Close() }
	}

	registry := task.NewRegistry()
	registry.Register(task.TaskTypeStudyMark, task.StudyMarkBuilder(mastery, missedTracker, e.logger))
	emitter := events.NewInMemoryEventEmitter(e.logger)
	emitter.RegisterHandler(task.NewTaskFactoryEventHandler(registry, task.NewInlineSubmitter(e.logger), e.logger))

	svc := study.NewService(cards, subtopics, missedList, emitter, study.Config{
		RandomDeckSize: e.cfg.Study.RandomDeckSize,
	}, e.logger)
	return svc, closeRedis
}

func teaIO(cmd *cobra.Command) []tea.ProgramOption {
	return []tea.ProgramOption{
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
		tea.WithAltScreen(),
	}
}
