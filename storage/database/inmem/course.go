package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) query() []course.Course {
	courses := make([]course.Course, 0, len(repo.db.table))
	for _, c := range repo.db.table {
		courses = append(courses, *c)
	}
	return courses
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.pkCount++
	crs.ID = repo.db.pkCount
	repo.db.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id int64) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if crs, ok := repo.db.table[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) FilterCourses(ctx context.Context, filter course.QueryFilter, ordering ...core.DBOrdering) ([]course.Course, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	matching := make([]course.Course, 0)
	for _, crs := range repo.query() {
		if matchesCourseFilter(crs, filter) {
			matching = append(matching, crs)
		}
	}
	sort.Slice(matching, func(i, j int) bool { return matching[i].Title < matching[j].Title })

	total := len(matching)
	start := (filter.Page - 1) * filter.PageSize
	if start >= total {
		return []course.Course{}, total, nil
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return matching[start:end], total, nil
}

func matchesCourseFilter(crs course.Course, filter course.QueryFilter) bool {
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(crs.Title), search) &&
			!strings.Contains(strings.ToLower(crs.Subject), search) &&
			!strings.Contains(strings.ToLower(crs.Description), search) {
			return false
		}
	}
	if filter.Subject != "" && crs.Subject != filter.Subject {
		return false
	}
	if filter.Level != "" && crs.Level != filter.Level {
		return false
	}
	if filter.Published != nil && crs.Published != *filter.Published {
		return false
	}
	return true
}

func (repo *courseRepository) SearchCourses(ctx context.Context, query string, limit int) ([]course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	search := strings.ToLower(query)
	matching := make([]course.Course, 0)
	for _, crs := range repo.query() {
		if !crs.Published {
			continue
		}
		if strings.Contains(strings.ToLower(crs.Title), search) ||
			strings.Contains(strings.ToLower(crs.Subject), search) ||
			strings.Contains(strings.ToLower(crs.Description), search) {
			matching = append(matching, crs)
		}
	}
	sort.Slice(matching, func(i, j int) bool { return matching[i].Subscribers > matching[j].Subscribers })
	if len(matching) > limit {
		matching = matching[:limit]
	}
	return matching, nil
}

func (repo *courseRepository) DistinctSubjects(ctx context.Context) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	seen := make(map[string]bool)
	subjects := make([]string, 0)
	for _, crs := range repo.query() {
		if crs.Published && !seen[crs.Subject] {
			seen[crs.Subject] = true
			subjects = append(subjects, crs.Subject)
		}
	}
	sort.Strings(subjects)
	return subjects, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[crs.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	repo.db.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) DeleteCoursesByID(ctx context.Context, ids ...int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
		// cascade, same as the course FK
		for enrID, enr := range repo.db.enrollments {
			if enr.CourseID == id {
				delete(repo.db.enrollments, enrID)
			}
		}
	}
	return nil
}

func (repo *courseRepository) CreateEnrollment(ctx context.Context, enr course.Enrollment) (course.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.enrPkCount++
	enr.ID = repo.db.enrPkCount
	repo.db.enrollments[enr.ID] = &enr
	if crs, ok := repo.db.table[enr.CourseID]; ok {
		crs.Subscribers++
	}
	return enr, nil
}

func (repo *courseRepository) GetEnrollment(ctx context.Context, userID string, courseID int64) (course.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, enr := range repo.db.enrollments {
		if enr.UserID == userID && enr.CourseID == courseID {
			return *enr, nil
		}
	}
	return course.Enrollment{}, course.ErrNotEnrolled
}

func (repo *courseRepository) FilterEnrollments(ctx context.Context, userID string) ([]course.EnrolledCourse, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	enrolled := make([]course.EnrolledCourse, 0)
	for _, enr := range repo.db.enrollments {
		if enr.UserID != userID {
			continue
		}
		crs, ok := repo.db.table[enr.CourseID]
		if !ok {
			continue
		}
		enrolled = append(enrolled, course.EnrolledCourse{
			Course:     *crs,
			Progress:   enr.Progress,
			EnrolledAt: enr.EnrolledAt,
		})
	}
	sort.Slice(enrolled, func(i, j int) bool { return enrolled[i].EnrolledAt.After(enrolled[j].EnrolledAt) })
	return enrolled, nil
}

func (repo *courseRepository) UpdateEnrollmentProgress(ctx context.Context, userID string, courseID int64, progress int) (course.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, enr := range repo.db.enrollments {
		if enr.UserID == userID && enr.CourseID == courseID {
			enr.Progress = progress
			enr.UpdatedAt = time.Now().UTC()
			return *enr, nil
		}
	}
	return course.Enrollment{}, course.ErrNotEnrolled
}
