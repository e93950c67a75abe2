package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

// Course levels
const (
	LevelBeginner     = "Beginner"
	LevelIntermediate = "Intermediate"
	LevelAdvanced     = "Advanced"
	LevelAll          = "All Levels"
)

var AllLevels = []string{LevelBeginner, LevelIntermediate, LevelAdvanced, LevelAll}

type (
	Course struct {
		ID          int64     `json:"id"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Subject     string    `json:"subject"`
		Level       string    `json:"level"`
		URL         string    `json:"url"`
		Price       float64   `json:"price"`
		Duration    string    `json:"duration"`
		IsPaid      bool      `json:"is_paid"`
		Published   bool      `json:"published"`
		Subscribers int64     `json:"subscribers"`
		CreatedBy   string    `json:"created_by"`
		CreatedAt   time.Time `json:"created_at"`
		UpdatedAt   time.Time `json:"updated_at"`
	}

	NewCourse struct {
		Title       string  `json:"title" validate:"required"`
		Description string  `json:"description"`
		Subject     string  `json:"subject" validate:"required"`
		Level       string  `json:"level" validate:"required,courselevel"`
		URL         string  `json:"url" validate:"omitempty,url"`
		Price       float64 `json:"price" validate:"gte=0"`
		Duration    string  `json:"duration"`
		IsPaid      bool    `json:"is_paid"`
		Published   bool    `json:"published"`
	}

	UpdateCourse struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Subject     string   `json:"subject"`
		Level       string   `json:"level" validate:"omitempty,courselevel"`
		URL         string   `json:"url" validate:"omitempty,url"`
		Price       *float64 `json:"price" validate:"omitempty,gte=0"`
		Duration    string   `json:"duration"`
		IsPaid      *bool    `json:"is_paid"`
		Published   *bool    `json:"published"`
	}

	// QueryFilter holds course search and pagination parameters.
	// Search does a case-insensitive match on one of Course.Title,
	// Course.Subject or Course.Description.
	QueryFilter struct {
		Search    string `query:"search"`
		Subject   string `query:"subject"`
		Level     string `query:"level"`
		Published *bool  `query:"published"`
		Page      int    `query:"page"`
		PageSize  int    `query:"page_size"`
	}

	Enrollment struct {
		ID         int64     `json:"id"`
		UserID     string    `json:"user_id"`
		CourseID   int64     `json:"course_id"`
		Progress   int       `json:"progress"`
		EnrolledAt time.Time `json:"enrolled_at"`
		UpdatedAt  time.Time `json:"updated_at"`
	}

	// EnrolledCourse is an Enrollment joined with its Course.
	EnrolledCourse struct {
		Course
		Progress   int       `json:"progress"`
		EnrolledAt time.Time `json:"enrolled_at"`
	}

	UpdateProgress struct {
		Progress int `json:"progress" validate:"gte=0,lte=100"`
	}

	// Dashboard summarizes a student's learning state.
	Dashboard struct {
		EnrolledCount   int              `json:"enrolled_count"`
		CompletedCount  int              `json:"completed_count"`
		AverageProgress float64          `json:"average_progress"`
		Courses         []EnrolledCourse `json:"courses"`
	}
)

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Subject = core.CleanString(nc.Subject)
	nc.Level = core.CleanString(nc.Level)
	nc.URL = core.CleanString(nc.URL)
	nc.Duration = core.CleanString(nc.Duration)
	return validate.Struct(nc)
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	uc.Title = core.CleanString(uc.Title)
	uc.Description = core.CleanString(uc.Description)
	uc.Subject = core.CleanString(uc.Subject)
	uc.Level = core.CleanString(uc.Level)
	uc.URL = core.CleanString(uc.URL)
	uc.Duration = core.CleanString(uc.Duration)
	return validate.Struct(uc)
}

func (up *UpdateProgress) Validate(validate *validator.Validate) error {
	return validate.Struct(up)
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Clean normalizes filter fields and applies pagination bounds.
func (f *QueryFilter) Clean() {
	f.Search = core.CleanString(f.Search)
	f.Subject = core.CleanString(f.Subject)
	f.Level = core.CleanString(f.Level)
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = defaultPageSize
	} else if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
}

func (f *QueryFilter) IsEmpty() bool {
	return f.Search == "" && f.Subject == "" && f.Level == "" && f.Published == nil
}
