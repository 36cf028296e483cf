package decide

import "context"

// VolumePolicy picks volume actions per case. Overrides are keyed
// "service:target" and win over the per-case action.
type VolumePolicy struct {
	Unmanaged  string
	Existing   string
	Other      string
	HomeSubdir string
	Overrides  map[string]string
}

// ImagePolicy answers image questions.
type ImagePolicy struct {
	Source      string // image or build, when a service has both
	Build       bool   // build services that only have a build section
	PushTarget  string
	Registry    string
	ReuseCached bool
}

// Policy is the non-interactive Decider. It applies configured answers and
// falls back to each question's default; it never prompts.
type Policy struct {
	Volumes VolumePolicy
	Images  ImagePolicy
}

func (p *Policy) Decide(_ context.Context, q Question) (string, error) {
	answer := q.Default
	if v := p.configured(q); v != "" {
		answer = v
	}
	if answer == "" {
		return "", &UnansweredError{Question: q}
	}
	if !q.Allows(answer) {
		return "", &UnansweredError{Question: q, Answer: answer}
	}
	if q.Validate != nil {
		if err := q.Validate(answer); err != nil {
			return "", err
		}
	}
	return answer, nil
}

func (p *Policy) configured(q Question) string {
	switch q.Kind {
	case KindVolumeAction:
		if v, ok := p.Volumes.Overrides[q.Service+":"+q.Target]; ok {
			return v
		}
		switch q.Case {
		case CaseUnmanaged:
			return p.Volumes.Unmanaged
		case CaseExisting:
			return p.Volumes.Existing
		case CaseOther:
			return p.Volumes.Other
		}
	case KindHomeSubdir:
		return p.Volumes.HomeSubdir
	case KindImageSource:
		return p.Images.Source
	case KindBuild:
		return yesNo(p.Images.Build)
	case KindPushTarget:
		return p.Images.PushTarget
	case KindRegistry:
		return p.Images.Registry
	case KindReuseCached:
		return yesNo(p.Images.ReuseCached)
	}
	return ""
}

func yesNo(b bool) string {
	if b {
		return Yes
	}
	return No
}
