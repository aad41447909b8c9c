package preview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	fsutil "github.com/kk-code-lab/rbrowse/internal/fs"
)

const (
	DefaultByteLimit = 64 * 1024
	DefaultMaxLines  = 2000
	defaultTimeout   = 15 * time.Second
)

// ErrUnavailable is reported when a preview cannot be produced. The file
// can still be downloaded.
var ErrUnavailable = errors.New("preview unavailable")

// Fetcher reads the head of a remote file through the inline view endpoint.
type Fetcher interface {
	View(ctx context.Context, remotePath string, limit int64) ([]byte, error)
}

// Request describes one preview to build.
type Request struct {
	Token    int
	Path     string
	Entry    fsutil.Entry
	Callback func(Result)
}

// Result carries the outcome for one token.
type Result struct {
	Token     int
	Path      string
	Kind      Kind
	Lines     []string
	Binary    bool
	Truncated bool
	Err       error
}

// Loader builds previews off the UI goroutine. Results for cancelled
// tokens are never delivered.
type Loader struct {
	fetcher  Fetcher
	limit    int64
	maxLines int
	timeout  time.Duration

	mu   sync.Mutex
	jobs map[int]*job
}

type job struct {
	cancel context.CancelFunc
}

// NewLoader returns a loader reading at most limit bytes per preview.
func NewLoader(f Fetcher, limit int64) *Loader {
	if limit <= 0 {
		limit = DefaultByteLimit
	}
	return &Loader{
		fetcher:  f,
		limit:    limit,
		maxLines: DefaultMaxLines,
		timeout:  defaultTimeout,
		jobs:     make(map[int]*job),
	}
}

// Start launches a preview job. Requests without a token, path or callback
// are ignored.
func (l *Loader) Start(req Request) {
	if req.Token == 0 || req.Path == "" || req.Callback == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	current := &job{cancel: cancel}
	l.mu.Lock()
	if prev, ok := l.jobs[req.Token]; ok {
		prev.cancel()
	}
	l.jobs[req.Token] = current
	l.mu.Unlock()

	go func() {
		result := l.build(ctx, req)

		l.mu.Lock()
		live := l.jobs[req.Token] == current
		if live {
			delete(l.jobs, req.Token)
		}
		l.mu.Unlock()
		cancel()

		if !live {
			return
		}
		req.Callback(result)
	}()
}

// Cancel drops a pending job.
func (l *Loader) Cancel(token int) {
	l.mu.Lock()
	if j, ok := l.jobs[token]; ok {
		j.cancel()
		delete(l.jobs, token)
	}
	l.mu.Unlock()
}

func (l *Loader) build(ctx context.Context, req Request) Result {
	result := Result{Token: req.Token, Path: req.Path, Kind: Choose(req.Entry)}
	if !result.Kind.Inline() {
		return result
	}
	if l.fetcher == nil {
		result.Err = ErrUnavailable
		return result
	}

	content, err := l.fetcher.View(ctx, req.Path, l.limit)
	if err != nil {
		result.Err = fmt.Errorf("%w: %v", ErrUnavailable, err)
		return result
	}

	sizeTruncated := int64(len(content)) >= l.limit
	if req.Entry.Size != nil {
		sizeTruncated = *req.Entry.Size > int64(len(content))
	}

	if LooksLikeText(content) {
		result.Lines, result.Truncated = TextLines(content, l.maxLines)
	} else {
		result.Binary = true
		result.Lines, result.Truncated = HexLines(content, l.maxLines)
	}
	result.Truncated = result.Truncated || sizeTruncated
	return result
}
