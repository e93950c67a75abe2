package chat

import (
	"strings"
	"testing"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/course"
)

func Test_buildPrompt(t *testing.T) {
	enrolled := []course.EnrolledCourse{
		{Course: course.Course{Title: "Complete Python Bootcamp", Subject: "Programming", Description: "Learn about python"}},
	}
	chunks := []core.DocChunk{
		{ID: "doc1_0", Text: "photosynthesis turns light into sugar"},
	}
	matches := []course.Course{
		{Title: "Biology Basics", Subject: "Science", Level: course.LevelBeginner, Description: "Learn about biology", Price: 19.99, Subscribers: 42},
	}

	t.Run("full context", func(t *testing.T) {
		prompt := buildPrompt("what is photosynthesis?", enrolled, chunks, matches)

		for _, want := range []string{
			"You're an educational assistant.",
			"User's enrolled courses:",
			"Course: Complete Python Bootcamp\nSubject: Programming\nDescription: Learn about python",
			"User Uploaded Documents:",
			"User Document: photosynthesis turns light into sugar...",
			"Available Courses:",
			"Course: Biology Basics\nSubject: Science\nLevel: Beginner\nDescription: Learn about biology\nPrice: $19.99\nSubscribers: 42",
			"Question: what is photosynthesis?",
		} {
			if !strings.Contains(prompt, want) {
				t.Errorf("prompt missing %q:\n%s", want, prompt)
			}
		}
	})

	t.Run("empty context", func(t *testing.T) {
		prompt := buildPrompt("hello", nil, nil, nil)

		for _, want := range []string{
			"The user has not enrolled in any courses yet.",
			"No relevant user documents found.",
			"No relevant courses found.",
		} {
			if !strings.Contains(prompt, want) {
				t.Errorf("prompt missing %q:\n%s", want, prompt)
			}
		}
	})

	t.Run("child-friendly variant", func(t *testing.T) {
		for _, q := range []string{
			"explain gravity to a six-year-old",
			"how do I explain this to my CHILD?",
		} {
			prompt := buildPrompt(q, nil, nil, nil)
			if !strings.Contains(prompt, "You're a friendly teacher talking to a six-year-old.") {
				t.Errorf("question %q did not trigger the child-friendly prompt", q)
			}
		}

		prompt := buildPrompt("what is gravity?", nil, nil, nil)
		if strings.Contains(prompt, "six-year-old") {
			t.Error("plain question triggered the child-friendly prompt")
		}
	})

	t.Run("long document snippets are truncated", func(t *testing.T) {
		long := strings.Repeat("a", 500)
		prompt := buildPrompt("q", nil, []core.DocChunk{{Text: long}}, nil)
		if strings.Contains(prompt, long) {
			t.Error("snippet not truncated")
		}
		if !strings.Contains(prompt, strings.Repeat("a", docSnippetMaxChars)+"...") {
			t.Error("truncated snippet missing")
		}
	})
}

func Test_truncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{name: "short enough", in: "hello", max: 10, want: "hello"},
		{name: "exact", in: "hello", max: 5, want: "hello"},
		{name: "truncated", in: "hello world", max: 5, want: "hello"},
		{name: "multibyte runes kept whole", in: "héllo wörld", max: 7, want: "héllo w"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncate(tt.in, tt.max); got != tt.want {
				t.Errorf("truncate() = %q; want %q", got, tt.want)
			}
		})
	}
}
