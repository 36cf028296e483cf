// Package decide defines the questions the conversion pipeline can ask and
// the policy that answers them without a human.
package decide

import (
	"context"
	"fmt"
)

// Kind identifies what a question is about.
type Kind string

const (
	KindVolumeAction Kind = "volume_action"
	KindHomeSubdir   Kind = "home_subdir"
	KindImageSource  Kind = "image_source"
	KindBuild        Kind = "build"
	KindPushTarget   Kind = "push_target"
	KindRegistry     Kind = "registry"
	KindReuseCached  Kind = "reuse_cached"
)

// Volume actions.
const (
	ActionContent  = "content"
	ActionClassify = "classify"
	ActionData     = "data"
	ActionHome     = "home"
	ActionSkip     = "skip"
)

// Volume cases, see volume.Resolver.
const (
	CaseUnmanaged = "unmanaged" // anonymous or named volume
	CaseExisting  = "existing"  // path present next to the compose file
	CaseOther     = "other"
)

// Image sources and push targets.
const (
	SourceImage = "image"
	SourceBuild = "build"

	PushNone    = "none"
	PushCustom  = "custom"
	PushLazyCat = "lazycat"
)

// Yes and No answer boolean questions.
const (
	Yes = "yes"
	No  = "no"
)

// Option is one allowed answer.
type Option struct {
	Label string
	Value string
}

// Question is a single decision the pipeline needs.
type Question struct {
	Kind    Kind
	Key     string // answer cache key, empty when the answer is not cached
	Service string
	Subject string // the mount source, image reference, ...
	Target  string // the mount target for volume questions
	Case    string // which volume case produced the question
	Title   string
	Options []Option // empty for free-text questions
	Default string
	// Validate checks free-text answers.
	Validate func(string) error
}

// Allows reports whether v is one of the question's options. Free-text
// questions allow anything.
func (q Question) Allows(v string) bool {
	if len(q.Options) == 0 {
		return true
	}
	for _, o := range q.Options {
		if o.Value == v {
			return true
		}
	}
	return false
}

// Decider answers questions.
type Decider interface {
	Decide(ctx context.Context, q Question) (string, error)
}

// DeciderFunc adapts a function to Decider.
type DeciderFunc func(ctx context.Context, q Question) (string, error)

func (f DeciderFunc) Decide(ctx context.Context, q Question) (string, error) {
	return f(ctx, q)
}

// UnansweredError is returned when a policy has no usable answer.
type UnansweredError struct {
	Question Question
	Answer   string
}

func (e *UnansweredError) Error() string {
	if e.Answer == "" {
		return fmt.Sprintf("no answer for %s question %q", e.Question.Kind, e.Question.Title)
	}
	return fmt.Sprintf("answer %q is not valid for %s question %q", e.Answer, e.Question.Kind, e.Question.Title)
}
