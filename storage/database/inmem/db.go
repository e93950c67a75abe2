package inmemdb

import (
	"sync"

	"github.com/darasahq/darasa/core/chat"
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/document"
	"github.com/darasahq/darasa/core/user"
)

// DB is an in-memory database for tests.
type DB struct {
	user     *userTable
	course   *courseTable
	document *documentTable
	chat     *chatTable
}

func NewDB() *DB {
	return &DB{
		user:     &userTable{table: make(map[string]*user.User)},
		course:   &courseTable{table: make(map[int64]*course.Course), enrollments: make(map[int64]*course.Enrollment)},
		document: &documentTable{table: make(map[string]*document.Document)},
		chat:     &chatTable{},
	}
}

type userTable struct {
	mutex sync.RWMutex
	table map[string]*user.User
}

type courseTable struct {
	mutex       sync.RWMutex
	pkCount     int64
	table       map[int64]*course.Course
	enrPkCount  int64
	enrollments map[int64]*course.Enrollment
}

type documentTable struct {
	mutex sync.RWMutex
	table map[string]*document.Document
}

type chatTable struct {
	mutex        sync.RWMutex
	pkCount      int64
	interactions []chat.Interaction
	fbPkCount    int64
	feedback     []chat.Feedback
}
