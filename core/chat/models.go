package chat

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

// persistence caps, anything longer is truncated
const (
	maxQueryLen    = 500
	maxResponseLen = 2000
)

type (
	// Interaction is one question/answer exchange with the assistant.
	Interaction struct {
		ID        int64     `json:"id"`
		UserID    string    `json:"user_id"`
		SessionID string    `json:"session_id"`
		Query     string    `json:"query"`
		Response  string    `json:"response"`
		CreatedAt time.Time `json:"created_at"`
	}

	NewMessage struct {
		Message   string `json:"message" validate:"required,max=2000"`
		SessionID string `json:"session_id"`
	}

	// Answer is the assistant's reply. SessionID carries the conversation
	// across requests; Sources are the document chunks the answer drew on.
	Answer struct {
		Response  string          `json:"response"`
		SessionID string          `json:"session_id"`
		Sources   []core.DocChunk `json:"sources,omitempty"`
	}

	NewFeedback struct {
		Query    string `json:"query" validate:"required"`
		Response string `json:"response" validate:"required"`
		Helpful  bool   `json:"helpful"`
		Comment  string `json:"comment" validate:"max=1000"`
	}

	Feedback struct {
		ID        int64     `json:"id"`
		UserID    string    `json:"user_id"`
		Query     string    `json:"query"`
		Response  string    `json:"response"`
		Helpful   bool      `json:"helpful"`
		Comment   string    `json:"comment"`
		CreatedAt time.Time `json:"created_at"`
	}
)

func (nm *NewMessage) Validate(validate *validator.Validate) error {
	nm.Message = core.CleanString(nm.Message)
	nm.SessionID = core.CleanString(nm.SessionID)
	return validate.Struct(nm)
}

func (nf *NewFeedback) Validate(validate *validator.Validate) error {
	nf.Comment = core.CleanString(nf.Comment)
	nf.Query = truncate(core.CleanString(nf.Query), maxQueryLen)
	nf.Response = truncate(core.CleanString(nf.Response), maxResponseLen)
	return validate.Struct(nf)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
