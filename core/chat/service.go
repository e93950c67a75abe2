package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/course"
)

const (
	historyLimit       = 100
	docRetrievalLimit  = 3
	courseSearchLimit  = 5
	docSnippetMaxChars = 200
)

type (
	// Assistant generates a reply to a prompt, keeping conversation state per
	// session. An empty sessionID starts a new conversation; the returned
	// sessionID identifies it on subsequent calls.
	Assistant interface {
		Answer(ctx context.Context, sessionID, prompt string) (answer, sid string, err error)
	}

	Repository interface {
		CreateInteraction(ctx context.Context, in Interaction) (Interaction, error)
		// FilterInteractions returns a user's interactions, newest first,
		// optionally narrowed to one session.
		FilterInteractions(ctx context.Context, userID, sessionID string, limit int) ([]Interaction, error)
		CreateFeedback(ctx context.Context, fb Feedback) (Feedback, error)
	}

	Service interface {
		Ask(ctx context.Context, userID string, msg NewMessage) (Answer, error)
		History(ctx context.Context, userID, sessionID string) ([]Interaction, error)
		SubmitFeedback(ctx context.Context, userID string, nf NewFeedback) (Feedback, error)
	}

	service struct {
		repo      Repository
		assistant Assistant
		store     core.VectorStore
		courseSvc course.Service
		logger    core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, assistant Assistant, store core.VectorStore, courseSvc course.Service, logger core.Logger) Service {
	return &service{
		repo:      repo,
		assistant: assistant,
		store:     store,
		courseSvc: courseSvc,
		logger:    logger,
	}
}

// Ask runs the retrieval pipeline for a question: the user's enrolled
// courses, the closest chunks from their uploaded documents and the shared
// library, and a catalogue search all go into the prompt context. Retrieval
// failures degrade the context instead of failing the question.
func (svc *service) Ask(ctx context.Context, userID string, msg NewMessage) (Answer, error) {
	question := msg.Message

	enrolled, err := svc.courseSvc.MyCourses(ctx, userID)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("chat: fetching enrolled courses: %v", err))
	}
	chunks, err := svc.store.Search(ctx, question, []string{userID, core.LibraryScope}, docRetrievalLimit)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("chat: searching documents: %v", err))
	}
	matches, err := svc.courseSvc.Search(ctx, question, courseSearchLimit)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("chat: searching courses: %v", err))
	}

	prompt := buildPrompt(question, enrolled, chunks, matches)
	answer, sid, err := svc.assistant.Answer(ctx, msg.SessionID, prompt)
	if err != nil {
		return Answer{}, errors.Wrap(err, "generating answer")
	}

	in := Interaction{
		UserID:    userID,
		SessionID: sid,
		Query:     truncate(question, maxQueryLen),
		Response:  truncate(answer, maxResponseLen),
		CreatedAt: time.Now().UTC(),
	}
	if _, err = svc.repo.CreateInteraction(ctx, in); err != nil {
		svc.logger.Error(fmt.Sprintf("chat: saving interaction: %v", err))
	}
	return Answer{Response: answer, SessionID: sid, Sources: chunks}, nil
}

func (svc *service) History(ctx context.Context, userID, sessionID string) ([]Interaction, error) {
	return svc.repo.FilterInteractions(ctx, userID, core.CleanString(sessionID), historyLimit)
}

func (svc *service) SubmitFeedback(ctx context.Context, userID string, nf NewFeedback) (Feedback, error) {
	return svc.repo.CreateFeedback(ctx, Feedback{
		UserID:    userID,
		Query:     nf.Query,
		Response:  nf.Response,
		Helpful:   nf.Helpful,
		Comment:   nf.Comment,
		CreatedAt: time.Now().UTC(),
	})
}

// buildPrompt assembles the full context block the assistant answers from.
// Questions mentioning a young audience get a simplified storytelling variant.
func buildPrompt(question string, enrolled []course.EnrolledCourse, chunks []core.DocChunk, matches []course.Course) string {
	var sb strings.Builder

	sb.WriteString("User's enrolled courses:\n")
	if len(enrolled) == 0 {
		sb.WriteString("The user has not enrolled in any courses yet.")
	} else {
		for i, ec := range enrolled {
			if i > 0 {
				sb.WriteString("\n")
			}
			fmt.Fprintf(&sb, "Course: %s\nSubject: %s\nDescription: %s", ec.Title, ec.Subject, ec.Description)
		}
	}

	sb.WriteString("\n\nUser Uploaded Documents:\n")
	if len(chunks) == 0 {
		sb.WriteString("No relevant user documents found.")
	} else {
		for i, chunk := range chunks {
			if i > 0 {
				sb.WriteString("\n\n")
			}
			fmt.Fprintf(&sb, "User Document: %s...", truncate(chunk.Text, docSnippetMaxChars))
		}
	}

	sb.WriteString("\n\nAvailable Courses:\n")
	if len(matches) == 0 {
		sb.WriteString("No relevant courses found.")
	} else {
		for i, crs := range matches {
			if i > 0 {
				sb.WriteString("\n\n")
			}
			fmt.Fprintf(&sb, "Course: %s\nSubject: %s\nLevel: %s\nDescription: %s\nPrice: $%.2f\nSubscribers: %d",
				crs.Title, crs.Subject, crs.Level, crs.Description, crs.Price, crs.Subscribers)
		}
	}
	context := sb.String()

	lq := strings.ToLower(question)
	if strings.Contains(lq, "six-year-old") || strings.Contains(lq, "child") {
		return fmt.Sprintf(`You're a friendly teacher talking to a six-year-old. Use this context to answer:
%s

Question: %s
Explain it in a super simple way, like you're telling a story with toys, animals, or fun games a six-year-old would love:`, context, question)
	}
	return fmt.Sprintf(`You're an educational assistant. Use this context to answer:
%s

Question: %s
Provide a detailed response incorporating user-uploaded materials and course information:`, context, question)
}
