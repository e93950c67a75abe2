package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/chat"
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/user"
)

func Test_chatApi_ask(t *testing.T) {
	app := initApp(t)

	student := createUser(t, app.userRepo, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)
	token := getToken(t, student)

	crs := createCourse(t, app.crsRepo, "Complete Python Bootcamp", "Programming", course.LevelBeginner, true)
	if _, err := app.courseSvc.Enroll(context.Background(), student.ID, crs.ID); err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	if err := app.store.Add(context.Background(), core.DocChunk{
		ID:       "doc1_0",
		Text:     "photosynthesis turns light into sugar",
		Metadata: map[string]interface{}{"user_id": student.ID, "source": "notes.txt"},
	}); err != nil {
		t.Fatalf("store.Add() failed: %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "message required", token: token, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"message": "this field is required"}),
		},
		{
			name: "answered", token: token, wantCode: http.StatusOK,
			body: marchallObj(t, chat.NewMessage{Message: "what are my python courses about?"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/chat"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.server.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var answer chat.Answer
				if err := json.Unmarshal(rec.Body.Bytes(), &answer); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if answer.Response != app.assistant.answer {
					t.Errorf("response = %q; want %q", answer.Response, app.assistant.answer)
				}
				if answer.SessionID == "" {
					t.Error("failed! empty sessionID")
				}
				if len(answer.Sources) == 0 {
					t.Error("failed! no sources")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	// the assistant was given the student's context
	prompt := app.assistant.lastPrompt
	if !strings.Contains(prompt, "User's enrolled courses:") || !strings.Contains(prompt, crs.Title) {
		t.Errorf("prompt missing enrolled courses:\n%s", prompt)
	}
	if !strings.Contains(prompt, "User Uploaded Documents:") || !strings.Contains(prompt, "photosynthesis") {
		t.Errorf("prompt missing uploaded documents:\n%s", prompt)
	}
}

func Test_chatApi_history(t *testing.T) {
	app := initApp(t)

	student := createUser(t, app.userRepo, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)
	token := getToken(t, student)

	questions := []string{"what is gravity?", "who discovered it?"}
	for _, q := range questions {
		req, rec := newAuthRequest(http.MethodPost, "/v1/chat", token, marchallObj(t, chat.NewMessage{Message: q}))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("ask failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	}

	req, rec := newAuthRequest(http.MethodGet, "/v1/chat/history", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v", rec.Code)
	}

	var interactions []chat.Interaction
	if err := json.Unmarshal(rec.Body.Bytes(), &interactions); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if len(interactions) != 2 {
		t.Fatalf("len = %v; want 2", len(interactions))
	}
	// newest first
	if interactions[0].Query != questions[1] || interactions[1].Query != questions[0] {
		t.Errorf("unexpected order: %+v", interactions)
	}

	// session filter
	req, rec = newAuthRequest(http.MethodGet, "/v1/chat/history?session_id="+interactions[0].SessionID, token)
	app.server.ServeHTTP(rec, req)
	var filtered []chat.Interaction
	if err := json.Unmarshal(rec.Body.Bytes(), &filtered); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if len(filtered) != 2 {
		t.Errorf("filtered len = %v; want 2", len(filtered))
	}
	req, rec = newAuthRequest(http.MethodGet, "/v1/chat/history?session_id=nope", token)
	app.server.ServeHTTP(rec, req)
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("unknown session history = %s; want []", body)
	}

	// another user's history is empty
	other := createUser(t, app.userRepo, "Other", "other1", "other@test.cd", "", []string{user.RoleStudent}, true)
	req, rec = newAuthRequest(http.MethodGet, "/v1/chat/history", getToken(t, other))
	app.server.ServeHTTP(rec, req)
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("other's history = %s; want []", body)
	}
}

func Test_chatApi_feedback(t *testing.T) {
	app := initApp(t)

	student := createUser(t, app.userRepo, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)
	token := getToken(t, student)

	tests := []httpTest{
		{
			name: "query and response required", token: token, wantCode: http.StatusBadRequest,
			body: marchallObj(t, chat.NewFeedback{Comment: "meh"}),
			wantData: marchallObj(t, map[string]string{
				"query":    "this field is required",
				"response": "this field is required",
			}),
		},
		{
			name: "created", token: token, wantCode: http.StatusCreated,
			body: marchallObj(t, chat.NewFeedback{
				Query:    "what is gravity?",
				Response: "a force of attraction",
				Helpful:  true,
				Comment:  "clear answer",
			}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/chat/feedback"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.server.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var fb chat.Feedback
				if err := json.Unmarshal(rec.Body.Bytes(), &fb); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if fb.UserID != student.ID || !fb.Helpful {
					t.Errorf("feedback = %+v", fb)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}
