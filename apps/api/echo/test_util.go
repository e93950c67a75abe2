package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/chat"
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/document"
	"github.com/darasahq/darasa/core/user"
	emailsvc "github.com/darasahq/darasa/services/email"
	logsvc "github.com/darasahq/darasa/services/logger"
	inmemdb "github.com/darasahq/darasa/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	server    Server
	conf      *core.Config
	userRepo  user.Repository
	crsRepo   course.Repository
	docRepo   document.Repository
	chatRepo  chat.Repository
	userSvc   user.Service
	courseSvc course.Service
	store     *fakeVectorStore
	assistant *fakeAssistant
}

func initApp(t *testing.T) *testApp {
	t.Helper()

	conf := &core.Config{
		TestMode:                  true,
		AppName:                   "Darasa",
		SecretKey:                 "secret",
		MaxUploadSize:             1 << 20,
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: core.ServerConfig{
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}

	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags), conf)
	logger.Enable(false)

	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)

	db := inmemdb.NewDB()
	userRepo := inmemdb.NewUserRepository(db)
	crsRepo := inmemdb.NewCourseRepository(db)
	docRepo := inmemdb.NewDocumentRepository(db)
	chatRepo := inmemdb.NewChatRepository(db)

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	userSvc := user.NewServiceMock(userRepo, mailSvc, conf)
	courseSvc := course.NewService(crsRepo)
	store := &fakeVectorStore{}
	assistant := &fakeAssistant{answer: "Of course! Here is what I found."}
	docSvc := document.NewService(docRepo, store, &fakeExtractor{}, conf, logger)
	chatSvc := chat.NewService(chatRepo, assistant, store, courseSvc, logger)

	server := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		UserSvc:        userSvc,
		CourseSvc:      courseSvc,
		DocumentSvc:    docSvc,
		ChatSvc:        chatSvc,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})

	return &testApp{
		server:    server,
		conf:      conf,
		userRepo:  userRepo,
		crsRepo:   crsRepo,
		docRepo:   docRepo,
		chatRepo:  chatRepo,
		userSvc:   userSvc,
		courseSvc: courseSvc,
		store:     store,
		assistant: assistant,
	}
}

// Fakes

type fakeAssistant struct {
	answer     string
	lastPrompt string
}

func (a *fakeAssistant) Answer(_ context.Context, sessionID, prompt string) (string, string, error) {
	a.lastPrompt = prompt
	if sessionID == "" {
		sessionID = "session-1"
	}
	return a.answer, sessionID, nil
}

type fakeVectorStore struct {
	chunks []core.DocChunk
}

func (s *fakeVectorStore) Add(_ context.Context, chunks ...core.DocChunk) error {
	s.chunks = append(s.chunks, chunks...)
	return nil
}

func (s *fakeVectorStore) Search(_ context.Context, _ string, scopes []string, limit int) ([]core.DocChunk, error) {
	var res []core.DocChunk
	for _, chunk := range s.chunks {
		for _, scope := range scopes {
			if chunk.Metadata["user_id"] == scope {
				res = append(res, chunk)
				break
			}
		}
		if len(res) == limit {
			break
		}
	}
	return res, nil
}

func (s *fakeVectorStore) DeleteWhere(_ context.Context, key, value string) error {
	kept := s.chunks[:0]
	for _, chunk := range s.chunks {
		if chunk.Metadata[key] != value {
			kept = append(kept, chunk)
		}
	}
	s.chunks = kept
	return nil
}

func (s *fakeVectorStore) IndexedSources(_ context.Context, scope string) (map[string]string, error) {
	sources := make(map[string]string)
	for _, chunk := range s.chunks {
		if chunk.Metadata["user_id"] != scope {
			continue
		}
		src, _ := chunk.Metadata["source"].(string)
		hash, _ := chunk.Metadata["hash"].(string)
		sources[src] = hash
	}
	return sources, nil
}

type fakeExtractor struct{}

func (e *fakeExtractor) Supports(contentType string) bool {
	return strings.HasPrefix(contentType, "text/")
}

func (e *fakeExtractor) Extract(_ context.Context, data []byte, _ string) (string, error) {
	return string(data), nil
}

// Helpers

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func createUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func createCourse(t *testing.T, repo course.Repository, title, subject, level string, published bool) course.Course {
	now := time.Now().UTC()
	crs, err := repo.CreateCourse(context.Background(), course.Course{
		Title:       title,
		Description: "Learn about " + strings.ToLower(title),
		Subject:     subject,
		Level:       level,
		Published:   published,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("createCourse() failed: %v", err)
	}
	return crs
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
