package contracts

import (
	"context"
	"time"
)

// PostType is the shape of a social-network post.
type PostType string

const (
	PostText     PostType = "text"
	PostImage    PostType = "image"
	PostVideo    PostType = "video"
	PostCarousel PostType = "carousel"
	PostStory    PostType = "story"
)

// Publisher defaults for implementations that do not declare their own.
const DefaultMaxContentLength = 280

// Post is a publish request.
type Post struct {
	Content      string
	Type         PostType
	Attachments  []string
	ScheduleTime *time.Time
	Extra        Values
}

// PublishResult describes a published post.
type PublishResult struct {
	PostID      string    `json:"post_id"`
	URL         string    `json:"url,omitempty"`
	Status      string    `json:"status"`
	PublishedAt time.Time `json:"published_at"`
	Extra       Values    `json:"extra,omitempty"`
}

// Publisher posts content to a social network.
type Publisher interface {
	NetworkName() string

	Initialize(ctx context.Context, cfg Values) error
	Publish(ctx context.Context, post Post) (*PublishResult, error)
	Analytics(ctx context.Context, postID string) (Values, error)
	TestConnection(ctx context.Context) bool
}

// TypeLister is implemented by publishers supporting more than text posts.
type TypeLister interface {
	SupportedTypes() []PostType
}

// LengthLimiter is implemented by publishers with their own length limit.
type LengthLimiter interface {
	MaxContentLength() int
}

// SupportedTypes returns p's post types, defaulting to text only.
func SupportedTypes(p Publisher) []PostType {
	if tl, ok := p.(TypeLister); ok {
		return tl.SupportedTypes()
	}
	return []PostType{PostText}
}

// MaxContentLength returns p's length limit, defaulting to 280.
func MaxContentLength(p Publisher) int {
	if ll, ok := p.(LengthLimiter); ok {
		return ll.MaxContentLength()
	}
	return DefaultMaxContentLength
}

// Supports reports whether p accepts posts of type t.
func Supports(p Publisher, t PostType) bool {
	for _, st := range SupportedTypes(p) {
		if st == t {
			return true
		}
	}
	return false
}
