package decide

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func volumeQuestion(c, def string, opts ...string) Question {
	q := Question{Kind: KindVolumeAction, Service: "web", Target: "/data", Case: c, Default: def, Title: "mount"}
	for _, o := range opts {
		q.Options = append(q.Options, Option{Label: o, Value: o})
	}
	return q
}

func TestPolicyVolumeActions(t *testing.T) {
	p := &Policy{Volumes: VolumePolicy{
		Unmanaged: ActionSkip,
		Other:     ActionData,
		Overrides: map[string]string{"web:/config": ActionHome},
	}}
	ctx := context.Background()

	tests := []struct {
		name string
		q    Question
		want string
	}{
		{"case setting", volumeQuestion(CaseUnmanaged, ActionData, ActionData, ActionHome, ActionSkip), ActionSkip},
		{"default when unset", volumeQuestion(CaseExisting, ActionContent, ActionContent, ActionClassify, ActionHome, ActionSkip), ActionContent},
		{"other", volumeQuestion(CaseOther, ActionClassify, ActionClassify, ActionData, ActionHome, ActionSkip), ActionData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Decide(ctx, tt.q)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("override", func(t *testing.T) {
		q := volumeQuestion(CaseOther, ActionClassify, ActionClassify, ActionData, ActionHome, ActionSkip)
		q.Target = "/config"
		got, err := p.Decide(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, ActionHome, got)
	})
}

func TestPolicyRejectsDisallowedAnswer(t *testing.T) {
	p := &Policy{Volumes: VolumePolicy{Unmanaged: ActionContent}}
	_, err := p.Decide(context.Background(), volumeQuestion(CaseUnmanaged, ActionData, ActionData, ActionSkip))

	var ue *UnansweredError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, ActionContent, ue.Answer)
}

func TestPolicyFreeText(t *testing.T) {
	validate := func(s string) error {
		if s == "bad/name" {
			return errors.New("no slashes")
		}
		return nil
	}
	ctx := context.Background()

	p := &Policy{Volumes: VolumePolicy{HomeSubdir: "Music"}}
	got, err := p.Decide(ctx, Question{Kind: KindHomeSubdir, Validate: validate})
	require.NoError(t, err)
	assert.Equal(t, "Music", got)

	p.Volumes.HomeSubdir = "bad/name"
	_, err = p.Decide(ctx, Question{Kind: KindHomeSubdir, Validate: validate})
	assert.EqualError(t, err, "no slashes")

	_, err = (&Policy{}).Decide(ctx, Question{Kind: KindRegistry})
	var ue *UnansweredError
	assert.ErrorAs(t, err, &ue)
}

func TestPolicyImages(t *testing.T) {
	ctx := context.Background()
	p := &Policy{Images: ImagePolicy{Build: true, PushTarget: PushCustom, Registry: "registry.local"}}

	got, err := p.Decide(ctx, Question{Kind: KindBuild, Options: []Option{{Value: Yes}, {Value: No}}})
	require.NoError(t, err)
	assert.Equal(t, Yes, got)

	got, err = p.Decide(ctx, Question{Kind: KindReuseCached, Options: []Option{{Value: Yes}, {Value: No}}, Default: Yes})
	require.NoError(t, err)
	assert.Equal(t, No, got)

	got, err = p.Decide(ctx, Question{Kind: KindImageSource, Default: SourceImage})
	require.NoError(t, err)
	assert.Equal(t, SourceImage, got)

	got, err = p.Decide(ctx, Question{Kind: KindPushTarget, Default: PushNone})
	require.NoError(t, err)
	assert.Equal(t, PushCustom, got)

	got, err = p.Decide(ctx, Question{Kind: KindRegistry})
	require.NoError(t, err)
	assert.Equal(t, "registry.local", got)
}
