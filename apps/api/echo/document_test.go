package echoapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/darasahq/darasa/core/document"
	"github.com/darasahq/darasa/core/user"
)

func newUploadRequest(t *testing.T, path, token, filename, contentType, content string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	hdr.Set("Content-Type", contentType)
	part, err := writer.CreatePart(hdr)
	if err != nil {
		t.Fatalf("newUploadRequest() failed: %v", err)
	}
	if _, err = part.Write([]byte(content)); err != nil {
		t.Fatalf("newUploadRequest() failed: %v", err)
	}
	if err = writer.Close(); err != nil {
		t.Fatalf("newUploadRequest() failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func Test_documentApi_upload(t *testing.T) {
	app := initApp(t)

	student := createUser(t, app.userRepo, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)
	token := getToken(t, student)

	// auth required
	req, rec := newRequest(http.MethodPost, "/v1/documents")
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("code = %v; wantCode %v", rec.Code, http.StatusUnauthorized)
	}

	// missing file field
	req, rec = newAuthRequest(http.MethodPost, "/v1/documents", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
	}

	// unsupported content type
	req, rec = newUploadRequest(t, "/v1/documents", token, "img.png", "image/png", "not really a png")
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %v; wantCode %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
	}

	// upload
	req, rec = newUploadRequest(t, "/v1/documents", token, "notes.txt", "text/plain", "photosynthesis turns light into sugar")
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %v; wantCode %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var doc document.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if doc.OwnerID != student.ID {
		t.Errorf("ownerID = %v; want %v", doc.OwnerID, student.ID)
	}
	if doc.Status != document.StatusIndexed {
		t.Errorf("status = %v; want %v", doc.Status, document.StatusIndexed)
	}
	if doc.ChunkCount == 0 {
		t.Error("chunkCount = 0; want > 0")
	}

	// chunks landed in the vector index under the owner's scope
	if len(app.store.chunks) == 0 {
		t.Fatal("no chunks indexed")
	}
	if got := app.store.chunks[0].Metadata["user_id"]; got != student.ID {
		t.Errorf("chunk user_id = %v; want %v", got, student.ID)
	}

	// duplicate upload is rejected
	req, rec = newUploadRequest(t, "/v1/documents", token, "notes.txt", "text/plain", "photosynthesis turns light into sugar")
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate: code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
	}

	// oversized upload is rejected
	req, rec = newUploadRequest(t, "/v1/documents", token, "big.txt", "text/plain", strings.Repeat("a", int(app.conf.MaxUploadSize)+1))
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized: code = %v; wantCode %v", rec.Code, http.StatusRequestEntityTooLarge)
	}
}

func Test_documentApi_listAndDelete(t *testing.T) {
	app := initApp(t)

	student := createUser(t, app.userRepo, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)
	other := createUser(t, app.userRepo, "Other", "other1", "other@test.cd", "", []string{user.RoleStudent}, true)
	token := getToken(t, student)

	req, rec := newUploadRequest(t, "/v1/documents", token, "notes.txt", "text/plain", "mitochondria is the powerhouse of the cell")
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var doc document.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}

	// list
	req, rec = newAuthRequest(http.MethodGet, "/v1/documents", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list failed! code = %v", rec.Code)
	}
	var docs []document.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &docs); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if len(docs) != 1 || docs[0].ID != doc.ID {
		t.Errorf("docs = %+v; want [%v]", docs, doc.ID)
	}

	// another user cannot see it
	req, rec = newAuthRequest(http.MethodGet, "/v1/documents/"+doc.ID, getToken(t, other))
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("not owner: code = %v; wantCode %v", rec.Code, http.StatusNotFound)
	}

	// delete removes the row and its chunks
	req, rec = newAuthRequest(http.MethodDelete, "/v1/documents/"+doc.ID, token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	for _, chunk := range app.store.chunks {
		if chunk.Metadata["document_id"] == doc.ID {
			t.Error("chunks not removed from vector index")
			break
		}
	}
	req, rec = newAuthRequest(http.MethodGet, "/v1/documents/"+doc.ID, token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("after delete: code = %v; wantCode %v", rec.Code, http.StatusNotFound)
	}
}
