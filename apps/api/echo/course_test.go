package echoapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/darasahq/darasa/core/chat"
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/document"
	"github.com/darasahq/darasa/core/user"
)

func Test_courseApi_query(t *testing.T) {
	app := initApp(t)

	student := createUser(t, app.userRepo, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)
	teacher := createUser(t, app.userRepo, "Teacher", "teach1", "teach@test.cd", "", []string{user.RoleTeacher}, true)

	python := createCourse(t, app.crsRepo, "Complete Python Bootcamp", "Programming", course.LevelBeginner, true)
	golang := createCourse(t, app.crsRepo, "Go In Practice", "Programming", course.LevelIntermediate, true)
	finance := createCourse(t, app.crsRepo, "Business Finance 101", "Business Finance", course.LevelAll, true)
	draft := createCourse(t, app.crsRepo, "Unreleased Course", "Programming", course.LevelAdvanced, false)

	studentToken := getToken(t, student)
	teacherToken := getToken(t, teacher)

	path := func(search, subject string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if subject != "" {
			v.Add("subject", subject)
		}
		return "/v1/courses?" + v.Encode()
	}
	page := func(count int, results ...interface{}) []byte {
		return marchallObj(t, PaginatedResponse{Count: count, Page: 1, PageSize: 10, Results: results})
	}

	tests := []httpTest{
		{name: "Auth required", path: "/v1/courses", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Students see published only", path: "/v1/courses", token: studentToken,
			wantData: page(3, finance, python, golang),
		},
		{
			name: "Staff see unpublished too", path: "/v1/courses", token: teacherToken,
			wantData: page(4, finance, python, golang, draft),
		},
		{name: "search", path: path("python", ""), token: studentToken, wantData: page(1, python)},
		{name: "search (unknown)", path: path("lol", ""), token: studentToken, wantData: page(0)},
		{
			name: "filter by subject", path: path("", "Business Finance"), token: studentToken,
			wantData: page(1, finance),
		},
		{
			name: "subjects", path: "/v1/courses/subjects", token: studentToken,
			wantData: marchallObj(t, []string{"Business Finance", "Programming"}),
		},
		{
			name: "retrieve", path: fmt.Sprintf("/v1/courses/%d", golang.ID), token: studentToken,
			wantData: marchallObj(t, golang),
		},
		{
			name: "retrieve unpublished hidden from students", path: fmt.Sprintf("/v1/courses/%d", draft.ID), token: studentToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "retrieve unpublished as staff", path: fmt.Sprintf("/v1/courses/%d", draft.ID), token: teacherToken,
			wantData: marchallObj(t, draft),
		},
		{
			name: "retrieve (unknown)", path: "/v1/courses/999", token: studentToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_create(t *testing.T) {
	app := initApp(t)

	student := createUser(t, app.userRepo, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)
	teacher := createUser(t, app.userRepo, "Teacher", "teach1", "teach@test.cd", "", []string{user.RoleTeacher}, true)

	newCourse := course.NewCourse{
		Title:     "Intro to Algebra",
		Subject:   "Mathematics",
		Level:     course.LevelBeginner,
		Published: true,
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Staff required", token: getToken(t, student), body: marchallObj(t, newCourse),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "level is checked", token: getToken(t, teacher),
			body:     marchallObj(t, course.NewCourse{Title: "Meh", Subject: "Misc", Level: "Expert"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"level": "invalid course level"}),
		},
		{name: "Created by teacher", token: getToken(t, teacher), body: marchallObj(t, newCourse), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/courses"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.server.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var crs course.Course
				if err := json.Unmarshal(rec.Body.Bytes(), &crs); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if crs.CreatedBy != teacher.ID {
					t.Errorf("failed! createdBy = %v; want %v", crs.CreatedBy, teacher.ID)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_enrollment(t *testing.T) {
	app := initApp(t)

	student := createUser(t, app.userRepo, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)
	crs := createCourse(t, app.crsRepo, "Complete Python Bootcamp", "Programming", course.LevelBeginner, true)
	draft := createCourse(t, app.crsRepo, "Unreleased Course", "Programming", course.LevelAdvanced, false)

	token := getToken(t, student)

	// enroll
	req, rec := newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/courses/%d/enroll", crs.ID), token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("enroll failed! code = %v; body %s", rec.Code, rec.Body.String())
	}

	// enrolling twice is rejected
	req, rec = newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/courses/%d/enroll", crs.ID), token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate enroll: code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
	}

	// unpublished courses cannot be enrolled in
	req, rec = newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/courses/%d/enroll", draft.ID), token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unpublished enroll: code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
	}

	// progress
	req, rec = newAuthRequest(
		http.MethodPut, fmt.Sprintf("/v1/courses/%d/progress", crs.ID), token,
		marchallObj(t, course.UpdateProgress{Progress: 60}),
	)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("progress failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var enr course.Enrollment
	if err := json.Unmarshal(rec.Body.Bytes(), &enr); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if enr.Progress != 60 {
		t.Errorf("progress = %v; want 60", enr.Progress)
	}

	// progress on a course we're not enrolled in
	req, rec = newAuthRequest(
		http.MethodPut, fmt.Sprintf("/v1/courses/%d/progress", draft.ID), token,
		marchallObj(t, course.UpdateProgress{Progress: 10}),
	)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("not enrolled progress: code = %v; wantCode %v", rec.Code, http.StatusNotFound)
	}

	// my courses
	req, rec = newAuthRequest(http.MethodGet, "/v1/courses/mine", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("mine failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var mine []course.EnrolledCourse
	if err := json.Unmarshal(rec.Body.Bytes(), &mine); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if len(mine) != 1 || mine[0].ID != crs.ID || mine[0].Progress != 60 {
		t.Errorf("mine = %+v; want 1 enrollment in %d at 60%%", mine, crs.ID)
	}

	// subscriber count was bumped
	got, err := app.courseSvc.GetByID(context.Background(), crs.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if got.Subscribers != crs.Subscribers+1 {
		t.Errorf("subscribers = %v; want %v", got.Subscribers, crs.Subscribers+1)
	}
}

func Test_dashboardApi_retrieve(t *testing.T) {
	app := initApp(t)

	student := createUser(t, app.userRepo, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)
	crs1 := createCourse(t, app.crsRepo, "Complete Python Bootcamp", "Programming", course.LevelBeginner, true)
	crs2 := createCourse(t, app.crsRepo, "Go In Practice", "Programming", course.LevelIntermediate, true)

	token := getToken(t, student)
	ctx := context.Background()

	if _, err := app.courseSvc.Enroll(ctx, student.ID, crs1.ID); err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	if _, err := app.courseSvc.Enroll(ctx, student.ID, crs2.ID); err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	if _, err := app.courseSvc.SetProgress(ctx, student.ID, crs1.ID, 100); err != nil {
		t.Fatalf("SetProgress() failed: %v", err)
	}
	if _, err := app.courseSvc.SetProgress(ctx, student.ID, crs2.ID, 50); err != nil {
		t.Fatalf("SetProgress() failed: %v", err)
	}
	if _, err := app.docRepo.CreateDocument(ctx, document.Document{ID: "doc1", OwnerID: student.ID, Name: "notes.txt"}); err != nil {
		t.Fatalf("CreateDocument() failed: %v", err)
	}
	if _, err := app.chatRepo.CreateInteraction(ctx, chat.Interaction{UserID: student.ID, SessionID: "s1", Query: "what is gravity?"}); err != nil {
		t.Fatalf("CreateInteraction() failed: %v", err)
	}

	req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
	}

	var dash DashboardResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &dash); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if dash.EnrolledCount != 2 {
		t.Errorf("enrolledCount = %v; want 2", dash.EnrolledCount)
	}
	if dash.CompletedCount != 1 {
		t.Errorf("completedCount = %v; want 1", dash.CompletedCount)
	}
	if dash.AverageProgress != 75 {
		t.Errorf("averageProgress = %v; want 75", dash.AverageProgress)
	}
	if dash.DocumentCount != 1 {
		t.Errorf("documentCount = %v; want 1", dash.DocumentCount)
	}
	if len(dash.RecentInteractions) != 1 {
		t.Errorf("recentInteractions = %v; want 1", len(dash.RecentInteractions))
	}
}
