package fscms

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/aweris/fscms/internal/content"
	"github.com/aweris/fscms/internal/record"
)

// Defaults used when no option overrides them.
const (
	DefaultCaller           = 1
	DefaultLanguage         = "en"
	DefaultCompressionLevel = 2
)

// OpenOptions configures a Repository.
type OpenOptions struct {
	Caller           int64
	Language         string
	Clock            func() time.Time
	Logger           zerolog.Logger
	Concurrency      int
	CompressionLevel int
}

// OpenOption is a functional option for configuring Open.
type OpenOption func(*OpenOptions)

func defaultOptions() *OpenOptions {
	return &OpenOptions{
		Caller:           DefaultCaller,
		Language:         DefaultLanguage,
		Clock:            time.Now,
		Logger:           zerolog.Nop(),
		Concurrency:      content.DefaultConcurrency,
		CompressionLevel: DefaultCompressionLevel,
	}
}

// WithCaller sets the identity stamped as creator on new posts.
func WithCaller(id int64) OpenOption {
	return func(o *OpenOptions) { o.Caller = id }
}

// WithLanguage sets the caller locale. It is informational and not applied to writes.
func WithLanguage(lang string) OpenOption {
	return func(o *OpenOptions) { o.Language = lang }
}

// WithClock replaces time.Now for creation timestamps.
func WithClock(now func() time.Time) OpenOption {
	return func(o *OpenOptions) {
		if now != nil {
			o.Clock = now
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) OpenOption {
	return func(o *OpenOptions) { o.Logger = log }
}

// WithConcurrency sets how many documents are parsed in parallel when listing.
func WithConcurrency(n int) OpenOption {
	return func(o *OpenOptions) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

// WithCompressionLevel sets the zstd level used by Export, from 1 (fastest) to 4 (best).
// Level 0 writes an uncompressed tar stream.
func WithCompressionLevel(level int) OpenOption {
	return func(o *OpenOptions) { o.CompressionLevel = level }
}

type postOptions struct {
	status    string
	publishAt *time.Time
}

// PostOption configures AddPost.
type PostOption func(*postOptions)

// WithStatus sets the status of a new post. The default is "draft".
func WithStatus(status string) PostOption {
	return func(o *postOptions) { o.status = status }
}

// WithPublishAt sets the publication time of a post created as published.
// Without it the creation time is used.
func WithPublishAt(t time.Time) PostOption {
	return func(o *postOptions) { o.publishAt = &t }
}

func newPostOptions(opts []PostOption) postOptions {
	o := postOptions{status: record.StatusDraft}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
