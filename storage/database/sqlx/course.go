package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/course"
)

type courseRow struct {
	ID          int64          `db:"id"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	Subject     string         `db:"subject"`
	Level       string         `db:"level"`
	URL         string         `db:"url"`
	Price       float64        `db:"price"`
	Duration    string         `db:"duration"`
	IsPaid      bool           `db:"is_paid"`
	Published   bool           `db:"published"`
	Subscribers int64          `db:"subscribers"`
	CreatedBy   sql.NullString `db:"created_by"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (row courseRow) toCourse() course.Course {
	return course.Course{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Subject:     row.Subject,
		Level:       row.Level,
		URL:         row.URL,
		Price:       row.Price,
		Duration:    row.Duration,
		IsPaid:      row.IsPaid,
		Published:   row.Published,
		Subscribers: row.Subscribers,
		CreatedBy:   row.CreatedBy.String,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	q := `INSERT INTO course (title, description, subject, level, url, price, duration, is_paid, published, subscribers, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`
	createdBy := sql.NullString{String: crs.CreatedBy, Valid: crs.CreatedBy != ""}
	err := repo.db.QueryRowxContext(ctx, q,
		crs.Title, crs.Description, crs.Subject, crs.Level, crs.URL, crs.Price,
		crs.Duration, crs.IsPaid, crs.Published, crs.Subscribers, createdBy,
		crs.CreatedAt, crs.UpdatedAt,
	).Scan(&crs.ID)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "creating course")
	}
	return crs, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id int64) (course.Course, error) {
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM course WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "getting course")
	}
	return row.toCourse(), nil
}

func (repo *courseRepository) FilterCourses(ctx context.Context, filter course.QueryFilter, ordering ...core.DBOrdering) ([]course.Course, int, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(val interface{}) string {
		args = append(args, val)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, fmt.Sprintf("(title ILIKE %s OR subject ILIKE %s OR description ILIKE %s)", p, p, p))
	}
	if filter.Subject != "" {
		conds = append(conds, fmt.Sprintf("subject = %s", arg(filter.Subject)))
	}
	if filter.Level != "" {
		conds = append(conds, fmt.Sprintf("level = %s", arg(filter.Level)))
	}
	if filter.Published != nil {
		conds = append(conds, fmt.Sprintf("published = %s", arg(*filter.Published)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := repo.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM course`+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting courses")
	}

	q := `SELECT * FROM course` + where + orderingClause(ordering, "title ASC")
	q += fmt.Sprintf(" LIMIT %s OFFSET %s", arg(filter.PageSize), arg((filter.Page-1)*filter.PageSize))

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, 0, errors.Wrap(err, "filtering courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.toCourse())
	}
	return courses, total, nil
}

func (repo *courseRepository) SearchCourses(ctx context.Context, query string, limit int) ([]course.Course, error) {
	q := `SELECT * FROM course
		WHERE published AND (title ILIKE $1 OR subject ILIKE $1 OR description ILIKE $1)
		ORDER BY subscribers DESC
		LIMIT $2`
	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, q, "%"+query+"%", limit); err != nil {
		return nil, errors.Wrap(err, "searching courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.toCourse())
	}
	return courses, nil
}

func (repo *courseRepository) DistinctSubjects(ctx context.Context) ([]string, error) {
	var subjects []string
	q := `SELECT DISTINCT subject FROM course WHERE published ORDER BY subject`
	if err := repo.db.SelectContext(ctx, &subjects, q); err != nil {
		return nil, errors.Wrap(err, "getting subjects")
	}
	return subjects, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	q := `UPDATE course SET title = $1, description = $2, subject = $3, level = $4, url = $5,
		price = $6, duration = $7, is_paid = $8, published = $9, updated_at = $10
		WHERE id = $11`
	res, err := repo.db.ExecContext(ctx, q,
		crs.Title, crs.Description, crs.Subject, crs.Level, crs.URL,
		crs.Price, crs.Duration, crs.IsPaid, crs.Published, crs.UpdatedAt, crs.ID,
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return crs, nil
}

func (repo *courseRepository) DeleteCoursesByID(ctx context.Context, ids ...int64) error {
	q := `DELETE FROM course WHERE id = ANY($1)`
	if _, err := repo.db.ExecContext(ctx, q, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting courses")
	}
	return nil
}

type enrolledCourseRow struct {
	courseRow
	Progress   int       `db:"progress"`
	EnrolledAt time.Time `db:"enrolled_at"`
}

func (repo *courseRepository) CreateEnrollment(ctx context.Context, enr course.Enrollment) (course.Enrollment, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return course.Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	defer func() { _ = tx.Rollback() }()

	q := `INSERT INTO enrollment (user_id, course_id, progress, enrolled_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err = tx.QueryRowxContext(ctx, q, enr.UserID, enr.CourseID, enr.Progress, enr.EnrolledAt, enr.UpdatedAt).Scan(&enr.ID)
	if err != nil {
		return course.Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	if _, err = tx.ExecContext(ctx, `UPDATE course SET subscribers = subscribers + 1 WHERE id = $1`, enr.CourseID); err != nil {
		return course.Enrollment{}, errors.Wrap(err, "updating subscriber count")
	}
	if err = tx.Commit(); err != nil {
		return course.Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	return enr, nil
}

func (repo *courseRepository) GetEnrollment(ctx context.Context, userID string, courseID int64) (course.Enrollment, error) {
	var enr course.Enrollment
	q := `SELECT id, user_id, course_id, progress, enrolled_at, updated_at
		FROM enrollment WHERE user_id = $1 AND course_id = $2`
	err := repo.db.QueryRowxContext(ctx, q, userID, courseID).
		Scan(&enr.ID, &enr.UserID, &enr.CourseID, &enr.Progress, &enr.EnrolledAt, &enr.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.Enrollment{}, course.ErrNotEnrolled
		}
		return course.Enrollment{}, errors.Wrap(err, "getting enrollment")
	}
	return enr, nil
}

func (repo *courseRepository) FilterEnrollments(ctx context.Context, userID string) ([]course.EnrolledCourse, error) {
	q := `SELECT c.*, e.progress, e.enrolled_at
		FROM enrollment e JOIN course c ON c.id = e.course_id
		WHERE e.user_id = $1
		ORDER BY e.enrolled_at DESC`
	var rows []enrolledCourseRow
	if err := repo.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "filtering enrollments")
	}
	enrolled := make([]course.EnrolledCourse, 0, len(rows))
	for _, row := range rows {
		enrolled = append(enrolled, course.EnrolledCourse{
			Course:     row.toCourse(),
			Progress:   row.Progress,
			EnrolledAt: row.EnrolledAt,
		})
	}
	return enrolled, nil
}

func (repo *courseRepository) UpdateEnrollmentProgress(ctx context.Context, userID string, courseID int64, progress int) (course.Enrollment, error) {
	q := `UPDATE enrollment SET progress = $1, updated_at = $2
		WHERE user_id = $3 AND course_id = $4
		RETURNING id, user_id, course_id, progress, enrolled_at, updated_at`
	var enr course.Enrollment
	err := repo.db.QueryRowxContext(ctx, q, progress, time.Now().UTC(), userID, courseID).
		Scan(&enr.ID, &enr.UserID, &enr.CourseID, &enr.Progress, &enr.EnrolledAt, &enr.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.Enrollment{}, course.ErrNotEnrolled
		}
		return course.Enrollment{}, errors.Wrap(err, "updating progress")
	}
	return enr, nil
}
