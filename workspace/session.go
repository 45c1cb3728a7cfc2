package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/meysamhadeli/astview/code_analyzer/contracts"
	"github.com/meysamhadeli/astview/history"
	"github.com/meysamhadeli/astview/hierarchy"
	"github.com/meysamhadeli/astview/layout"
	"github.com/meysamhadeli/astview/renderer"
	"github.com/meysamhadeli/astview/snapshot_store"
)

// ErrorPolicy decides what the view shows after a failed parse.
type ErrorPolicy string

const (
	// RetainOnError keeps the last good tree on screen.
	RetainOnError ErrorPolicy = "retain"
	// ClearOnError empties the view.
	ClearOnError ErrorPolicy = "clear"
)

// ParseErrorPolicy accepts "retain" or "clear".
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch ErrorPolicy(s) {
	case RetainOnError, ClearOnError:
		return ErrorPolicy(s), nil
	}
	return "", fmt.Errorf("unknown parse error policy %q (want %q or %q)", s, RetainOnError, ClearOnError)
}

// Options configures a Session.
type Options struct {
	MaxDepth       int
	TrackLocations bool
	ErrorPolicy    ErrorPolicy
	Layout         layout.Options
	Width, Height  float64
	ScaleExtent    layout.ScaleExtent
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		MaxDepth:       hierarchy.DefaultMaxDepth,
		TrackLocations: true,
		ErrorPolicy:    RetainOnError,
		Layout:         layout.DefaultOptions(),
		Width:          600,
		Height:         400,
		ScaleExtent:    layout.DefaultScaleExtent,
	}
}

// Span is a half-open byte range of the source text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Result is the outcome of one text change.
type Result struct {
	Hierarchy *hierarchy.Node
	Layout    *layout.Node
	Err       error
	// Retained is set when Err is non-nil and the previous tree is still shown.
	Retained bool
}

// Session ties one working text to its parse tree, its drawing and its history.
type Session struct {
	analyzer   contracts.ICodeAnalyzer
	normalizer *hierarchy.Normalizer
	renderer   *renderer.Renderer
	history    *history.Controller
	options    Options
	logger     *slog.Logger

	mu        sync.Mutex
	text      string
	good      Result
	lastErr   error
	highlight *Span
}

// NewSession builds a session. history may be nil for a session without persistence.
func NewSession(analyzer contracts.ICodeAnalyzer, controller *history.Controller, options Options, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if options.ErrorPolicy == "" {
		options.ErrorPolicy = RetainOnError
	}

	s := &Session{
		analyzer:   analyzer,
		normalizer: hierarchy.NewNormalizer(options.MaxDepth),
		renderer:   renderer.New(options.Width, options.Height, options.ScaleExtent),
		history:    controller,
		options:    options,
		logger:     logger,
	}
	s.renderer.OnNodeClick(func(start, end int) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.highlight = &Span{Start: start, End: end}
	})
	return s
}

// Load reads the snapshot log and the saved working text, then parses it.
func (s *Session) Load(ctx context.Context) Result {
	if s.history == nil {
		return s.apply(ctx, s.Text())
	}
	if err := s.history.LoadAll(ctx); err != nil {
		s.logger.Warn("snapshot history unavailable", "error", err)
	}
	text, err := s.history.CurrentText(ctx)
	if err != nil {
		s.logger.Warn("could not read current text", "error", err)
	}
	return s.apply(ctx, text)
}

// SetText records a text change: the text is autosaved (debounced) whether or not it parses,
// then parsed, normalized, laid out and drawn.
func (s *Session) SetText(ctx context.Context, text string) Result {
	if s.history != nil {
		s.history.Autosave(text)
	}
	return s.apply(ctx, text)
}

func (s *Session) apply(ctx context.Context, text string) Result {
	s.mu.Lock()
	s.text = text
	s.mu.Unlock()

	root, err := s.build(ctx, text)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.lastErr = err
		s.logger.Debug("parse failed", "error", err)
		if s.options.ErrorPolicy == ClearOnError {
			s.good = Result{}
			s.highlight = nil
			s.renderer.Clear()
			return Result{Err: err}
		}
		return Result{Hierarchy: s.good.Hierarchy, Layout: s.good.Layout, Err: err, Retained: s.good.Hierarchy != nil}
	}

	tree := layout.Layout(root, s.options.Layout)
	s.renderer.Render(tree)
	s.highlight = nil
	s.lastErr = nil
	s.good = Result{Hierarchy: root, Layout: tree}
	return s.good
}

func (s *Session) build(ctx context.Context, text string) (*hierarchy.Node, error) {
	raw, err := s.analyzer.Parse(ctx, text, contracts.ParseOptions{
		TrackLocations: s.options.TrackLocations,
		MaxDepth:       s.options.MaxDepth,
	})
	if err != nil {
		return nil, err
	}
	return s.normalizer.Normalize(raw)
}

// Text returns the working text.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Result returns what the view currently shows together with the last parse error.
func (s *Session) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := s.good
	result.Err = s.lastErr
	result.Retained = s.lastErr != nil && s.good.Hierarchy != nil
	return result
}

// Renderer exposes the drawn scene.
func (s *Session) Renderer() *renderer.Renderer {
	return s.renderer
}

// History returns the snapshot controller, nil without persistence.
func (s *Session) History() *history.Controller {
	return s.history
}

// Select clicks the node with the given pre-order index.
func (s *Session) Select(index int) (renderer.NodeShape, bool) {
	return s.renderer.ClickNode(index)
}

// Click forwards a viewport click to the renderer.
func (s *Session) Click(x, y float64) (renderer.NodeShape, bool) {
	return s.renderer.Click(x, y)
}

// Highlight returns the span of the last clicked node.
func (s *Session) Highlight() (Span, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.highlight == nil {
		return Span{}, false
	}
	return *s.highlight, true
}

// ErrNoHistory is returned by snapshot operations of a session without persistence.
var ErrNoHistory = errors.New("session has no snapshot history")

// SaveSnapshot stores the working text with its freshly built hierarchy.
// Text that does not parse is not saved.
func (s *Session) SaveSnapshot(ctx context.Context) (int64, error) {
	if s.history == nil {
		return 0, ErrNoHistory
	}
	text := s.Text()
	root, err := s.build(ctx, text)
	if err != nil {
		return 0, err
	}
	return s.history.Save(ctx, text, root)
}

// DeleteSnapshot removes a snapshot from the log.
func (s *Session) DeleteSnapshot(ctx context.Context, id int64) error {
	if s.history == nil {
		return ErrNoHistory
	}
	return s.history.Delete(ctx, id)
}

// RestoreSnapshot makes a snapshot's text the working text.
func (s *Session) RestoreSnapshot(ctx context.Context, id int64) (Result, error) {
	if s.history == nil {
		return Result{}, ErrNoHistory
	}
	record, err := s.history.Restore(ctx, id)
	if err != nil {
		return Result{}, err
	}
	return s.apply(ctx, record.Key), nil
}

// Snapshots returns the in-memory snapshot log.
func (s *Session) Snapshots() []snapshot_store.SnapshotRecord {
	if s.history == nil {
		return []snapshot_store.SnapshotRecord{}
	}
	return s.history.Records()
}

// Close flushes a pending autosave.
func (s *Session) Close() error {
	if s.history == nil {
		return nil
	}
	return s.history.Close()
}
