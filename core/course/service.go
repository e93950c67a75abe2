package course

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
)

var (
	// errors
	ErrNotFound           = errors.New("course not found")
	ErrNotEnrolled        = errors.New("not enrolled in this course")
	ErrAlreadyEnrolled    = errors.New("already enrolled in this course")
	ErrCourseNotPublished = errors.New("course is not available for enrollment")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourseByID(ctx context.Context, id int64) (Course, error)
		// FilterCourses applies AND operation on available QueryFilter fields
		// and returns the page of matching courses plus the unpaginated total.
		FilterCourses(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Course, int, error)
		// SearchCourses does a case-insensitive match on title, subject and
		// description of published courses.
		SearchCourses(ctx context.Context, query string, limit int) ([]Course, error)
		DistinctSubjects(ctx context.Context) ([]string, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCoursesByID(ctx context.Context, ids ...int64) error

		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		GetEnrollment(ctx context.Context, userID string, courseID int64) (Enrollment, error)
		FilterEnrollments(ctx context.Context, userID string) ([]EnrolledCourse, error)
		UpdateEnrollmentProgress(ctx context.Context, userID string, courseID int64, progress int) (Enrollment, error)
	}

	Service interface {
		Create(ctx context.Context, nc NewCourse, createdBy string) (Course, error)
		Query(ctx context.Context, filter *QueryFilter, includeUnpublished bool, ordering ...core.DBOrdering) ([]Course, int, error)
		GetByID(ctx context.Context, id int64) (Course, error)
		Search(ctx context.Context, query string, limit int) ([]Course, error)
		Subjects(ctx context.Context) ([]string, error)
		Update(ctx context.Context, id int64, uc UpdateCourse) (Course, error)
		Delete(ctx context.Context, ids ...int64) error
		ImportCSV(ctx context.Context, r io.Reader, createdBy string) (int, error)
		// IndexCatalog embeds every published course into the vector store under
		// the catalogue scope. Returns the number of courses indexed.
		IndexCatalog(ctx context.Context, store core.VectorStore) (int, error)

		Enroll(ctx context.Context, userID string, courseID int64) (Enrollment, error)
		MyCourses(ctx context.Context, userID string) ([]EnrolledCourse, error)
		SetProgress(ctx context.Context, userID string, courseID int64, progress int) (Enrollment, error)
		GetDashboard(ctx context.Context, userID string) (Dashboard, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, nc NewCourse, createdBy string) (Course, error) {
	now := time.Now().UTC()
	crs := Course{
		Title:       nc.Title,
		Description: nc.Description,
		Subject:     nc.Subject,
		Level:       nc.Level,
		URL:         nc.URL,
		Price:       nc.Price,
		Duration:    nc.Duration,
		IsPaid:      nc.IsPaid,
		Published:   nc.Published,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, includeUnpublished bool, ordering ...core.DBOrdering) ([]Course, int, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	filter.Clean()
	if !includeUnpublished {
		published := true
		filter.Published = &published
	}
	return svc.repo.FilterCourses(ctx, *filter, ordering...)
}

func (svc *service) GetByID(ctx context.Context, id int64) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *service) Search(ctx context.Context, query string, limit int) ([]Course, error) {
	query = core.CleanString(query)
	if query == "" {
		return nil, nil
	}
	return svc.repo.SearchCourses(ctx, query, limit)
}

func (svc *service) Subjects(ctx context.Context) ([]string, error) {
	return svc.repo.DistinctSubjects(ctx)
}

func (svc *service) Update(ctx context.Context, id int64, uc UpdateCourse) (Course, error) {
	crs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if uc.Title != "" {
		crs.Title = uc.Title
	}
	if uc.Description != "" {
		crs.Description = uc.Description
	}
	if uc.Subject != "" {
		crs.Subject = uc.Subject
	}
	if uc.Level != "" {
		crs.Level = uc.Level
	}
	if uc.URL != "" {
		crs.URL = uc.URL
	}
	if uc.Duration != "" {
		crs.Duration = uc.Duration
	}
	if uc.Price != nil {
		crs.Price = *uc.Price
	}
	if uc.IsPaid != nil {
		crs.IsPaid = *uc.IsPaid
	}
	if uc.Published != nil {
		crs.Published = *uc.Published
	}
	crs.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *service) Delete(ctx context.Context, ids ...int64) error {
	return svc.repo.DeleteCoursesByID(ctx, ids...)
}

func (svc *service) Enroll(ctx context.Context, userID string, courseID int64) (Enrollment, error) {
	crs, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	if !crs.Published {
		return Enrollment{}, core.NewValidationError(ErrCourseNotPublished)
	}
	if _, err = svc.repo.GetEnrollment(ctx, userID, courseID); err == nil {
		return Enrollment{}, core.NewValidationError(ErrAlreadyEnrolled)
	} else if errors.Cause(err) != ErrNotEnrolled {
		return Enrollment{}, err
	}

	now := time.Now().UTC()
	return svc.repo.CreateEnrollment(ctx, Enrollment{
		UserID:     userID,
		CourseID:   courseID,
		EnrolledAt: now,
		UpdatedAt:  now,
	})
}

func (svc *service) MyCourses(ctx context.Context, userID string) ([]EnrolledCourse, error) {
	return svc.repo.FilterEnrollments(ctx, userID)
}

func (svc *service) SetProgress(ctx context.Context, userID string, courseID int64, progress int) (Enrollment, error) {
	return svc.repo.UpdateEnrollmentProgress(ctx, userID, courseID, progress)
}

func (svc *service) GetDashboard(ctx context.Context, userID string) (Dashboard, error) {
	enrolled, err := svc.repo.FilterEnrollments(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	dash := Dashboard{
		EnrolledCount: len(enrolled),
		Courses:       enrolled,
	}
	if len(enrolled) == 0 {
		dash.Courses = []EnrolledCourse{}
		return dash, nil
	}
	var sum int
	for _, ec := range enrolled {
		sum += ec.Progress
		if ec.Progress >= 100 {
			dash.CompletedCount++
		}
	}
	dash.AverageProgress = float64(sum) / float64(len(enrolled))
	return dash, nil
}
