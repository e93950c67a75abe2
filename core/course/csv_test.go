package course_test

import (
	"context"
	"strings"
	"testing"

	"github.com/darasahq/darasa/core/course"
	inmemdb "github.com/darasahq/darasa/storage/database/inmem"
)

func setupCSV(t *testing.T) course.Service {
	t.Helper()
	db := inmemdb.NewDB()
	return course.NewService(inmemdb.NewCourseRepository(db))
}

func Test_service_ImportCSV(t *testing.T) {
	ctx := context.Background()

	t.Run("missing required column", func(t *testing.T) {
		svc := setupCSV(t)
		csv := "course_id,subject,level\n1,Programming,Beginner\n"
		if _, err := svc.ImportCSV(ctx, strings.NewReader(csv), ""); err == nil {
			t.Fatal("expected error, got nil")
		} else if !strings.Contains(err.Error(), `missing required csv column "title"`) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("catalogue glitches are cleaned up", func(t *testing.T) {
		svc := setupCSV(t)
		csv := "title,subject,level,url,price,is_paid,published_at,subscribers\n" +
			"Ultimate in,Business F,ALLLevels,https://www,199.99,TRUE,2017-10-12,2310\n"
		n, err := svc.ImportCSV(ctx, strings.NewReader(csv), "boss")
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Fatalf("imported %d courses; want 1", n)
		}

		courses, _, err := svc.Query(ctx, nil, true)
		if err != nil {
			t.Fatal(err)
		}
		crs := courses[0]
		if crs.Title != "Ultimate Investment Banking Course" {
			t.Errorf("Title = %q", crs.Title)
		}
		if crs.Subject != "Business Finance" {
			t.Errorf("Subject = %q", crs.Subject)
		}
		if crs.Level != course.LevelAll {
			t.Errorf("Level = %q", crs.Level)
		}
		if crs.URL != "https://www.example.com/course" {
			t.Errorf("URL = %q", crs.URL)
		}
		if crs.Description != "Learn about ultimate investment banking course" {
			t.Errorf("Description = %q", crs.Description)
		}
		if crs.Price != 199.99 {
			t.Errorf("Price = %v", crs.Price)
		}
		if !crs.IsPaid {
			t.Error("IsPaid = false")
		}
		if !crs.Published {
			t.Error("Published = false")
		}
		if crs.Subscribers != 2310 {
			t.Errorf("Subscribers = %d", crs.Subscribers)
		}
		if crs.CreatedBy != "boss" {
			t.Errorf("CreatedBy = %q", crs.CreatedBy)
		}
	})

	t.Run("blank published_at leaves a draft", func(t *testing.T) {
		svc := setupCSV(t)
		csv := "title,subject,level,published_at\n" +
			"Intro to Go,Programming,Beginner,\n"
		if _, err := svc.ImportCSV(ctx, strings.NewReader(csv), ""); err != nil {
			t.Fatal(err)
		}
		courses, _, err := svc.Query(ctx, nil, true)
		if err != nil {
			t.Fatal(err)
		}
		if courses[0].Published {
			t.Error("Published = true; want draft")
		}
	})

	t.Run("rows without a title are skipped", func(t *testing.T) {
		svc := setupCSV(t)
		csv := "title,subject,level,published_at\n" +
			",Programming,Beginner,2017-10-12\n" +
			"Intro to Go,Programming,Beginner,2017-10-12\n"
		n, err := svc.ImportCSV(ctx, strings.NewReader(csv), "")
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("imported %d courses; want 1", n)
		}
	})

	t.Run("description column wins over the fallback", func(t *testing.T) {
		svc := setupCSV(t)
		csv := "title,subject,level,description\n" +
			"Intro to Go,Programming,Beginner,A hands-on introduction\n"
		if _, err := svc.ImportCSV(ctx, strings.NewReader(csv), ""); err != nil {
			t.Fatal(err)
		}
		courses, _, err := svc.Query(ctx, nil, true)
		if err != nil {
			t.Fatal(err)
		}
		if courses[0].Description != "A hands-on introduction" {
			t.Errorf("Description = %q", courses[0].Description)
		}
	})
}
