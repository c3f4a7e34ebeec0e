package contracts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type textOnly struct{}

func (textOnly) NetworkName() string                                   { return "plain" }
func (textOnly) Initialize(context.Context, Values) error              { return nil }
func (textOnly) Publish(context.Context, Post) (*PublishResult, error) { return &PublishResult{}, nil }
func (textOnly) Analytics(context.Context, string) (Values, error)     { return Values{}, nil }
func (textOnly) TestConnection(context.Context) bool                   { return true }

type richNetwork struct{ textOnly }

func (richNetwork) SupportedTypes() []PostType { return []PostType{PostText, PostVideo} }
func (richNetwork) MaxContentLength() int      { return 5000 }

func TestPublisherDefaults(t *testing.T) {
	assert.Equal(t, []PostType{PostText}, SupportedTypes(textOnly{}))
	assert.Equal(t, 280, MaxContentLength(textOnly{}))
	assert.False(t, Supports(textOnly{}, PostImage))

	assert.Equal(t, 5000, MaxContentLength(richNetwork{}))
	assert.True(t, Supports(richNetwork{}, PostVideo))
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"parsers":         KindParser,
		"llm-providers":   KindLLMProvider,
		"agent":           KindAgent,
		"social-networks": KindSocialNetwork,
	} {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseKind("widgets")
	assert.Error(t, err)

	assert.Equal(t, "llm_providers", KindLLMProvider.Dir())
	assert.Equal(t, "social_networks", KindSocialNetwork.Plural())
}

func TestSliceStream(t *testing.T) {
	boom := errors.New("boom")
	s := NewSliceStream([]string{"a", "b"}, boom)

	var got []string
	for s.Next() {
		assert.NoError(t, s.Err())
		got = append(got, s.Current())
	}
	assert.Equal(t, []string{"a", "b"}, got)
	assert.ErrorIs(t, s.Err(), boom)
	assert.False(t, s.Next())
	assert.Equal(t, "", s.Current())
}

func TestApplyGenerateOptions(t *testing.T) {
	o := ApplyGenerateOptions(WithSystemPrompt("sys"), WithTemperature(0.2), WithMaxTokens(9), WithExtra("k", 1))
	assert.Equal(t, "sys", o.SystemPrompt)
	require.NotNil(t, o.Temperature)
	assert.Equal(t, 0.2, *o.Temperature)
	assert.Equal(t, 9, o.MaxTokens)
	assert.Nil(t, o.TopP)
	assert.Equal(t, 1, o.Extra["k"])
}

func TestStatusTracker(t *testing.T) {
	var tr StatusTracker
	assert.Equal(t, StatusIdle, tr.Status())
	tr.SetStatus(StatusProcessing)
	assert.Equal(t, StatusProcessing, tr.Status())
}
