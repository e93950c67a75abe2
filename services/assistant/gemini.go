package assistantsvc

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"google.golang.org/genai"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/chat"
)

const systemPrompt = `You are a learning assistant for an online education platform.
You answer student questions using the provided context: their enrolled courses,
excerpts from documents they uploaded, and matching courses from the catalogue.
Stay on educational topics, be encouraging, and when a catalogue course is
relevant, mention it by title. If the context does not cover the question,
answer from general knowledge and say so.`

// GeminiAssistant keeps one Gemini chat per session so follow-up questions
// retain conversation history. Sessions live in memory only.
type GeminiAssistant struct {
	client   *genai.Client
	model    string
	sessions map[string]*genai.Chat
	mu       sync.Mutex
}

var _ chat.Assistant = (*GeminiAssistant)(nil)

func NewGeminiAssistant(ctx context.Context, conf *core.Config) (*GeminiAssistant, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  conf.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating gemini client")
	}
	return &GeminiAssistant{
		client:   client,
		model:    conf.GeminiChatModel,
		sessions: make(map[string]*genai.Chat),
	}, nil
}

func (a *GeminiAssistant) Answer(ctx context.Context, sessionID, prompt string) (string, string, error) {
	session, sid, err := a.getSession(ctx, sessionID)
	if err != nil {
		return "", "", err
	}

	result, err := session.SendMessage(ctx, genai.Part{Text: prompt})
	if err != nil {
		return "", "", errors.Wrap(err, "gemini api call failed")
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "I'm sorry, I couldn't generate a response.", sid, nil
	}

	var sb strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		if p.Text != "" {
			sb.WriteString(p.Text)
		}
	}
	return sb.String(), sid, nil
}

// getSession finds the session or starts a new one. An unknown ID (e.g. after
// a server restart) also starts fresh.
func (a *GeminiAssistant) getSession(ctx context.Context, sessionID string) (*genai.Chat, string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if sessionID != "" {
		if session, ok := a.sessions[sessionID]; ok {
			return session, sessionID, nil
		}
	}

	session, err := a.client.Chats.Create(ctx, a.model, &genai.GenerateContentConfig{
		SystemInstruction: genai.Text(systemPrompt)[0],
	}, nil)
	if err != nil {
		return nil, "", errors.Wrap(err, "could not start new chat session")
	}
	sid := uuid.New().String()
	a.sessions[sid] = session
	return session, sid, nil
}

// GeminiEmbedder generates embedding vectors with the Gemini embeddings API.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

var _ core.Embedder = (*GeminiEmbedder)(nil)

func NewGeminiEmbedder(ctx context.Context, conf *core.Config) (*GeminiEmbedder, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  conf.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating gemini client")
	}
	return &GeminiEmbedder{client: client, model: conf.GeminiEmbedModel}, nil
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), nil)
	if err != nil {
		return nil, errors.Wrap(err, "gemini embedding call failed")
	}
	if len(res.Embeddings) == 0 {
		return nil, errors.New("gemini returned no embeddings")
	}
	return res.Embeddings[0].Values, nil
}
