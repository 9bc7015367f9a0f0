package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-choropleth/internal/choropleth"
	"github.com/joeblew999/plat-choropleth/internal/metrics"
)

var ErrUnknownSession = eris.New("service: unknown session")

// Frame is the server-side viewport of one page. It records the layers
// handed to it and the last extent it was asked to fit, which the browser
// applies to its Leaflet map.
type Frame struct {
	mu     sync.Mutex
	layers int
	bound  orb.Bound
	fits   int
}

var _ choropleth.Viewport = (*Frame)(nil)

func (f *Frame) AddLayer(*choropleth.Composite) {
	f.mu.Lock()
	f.layers++
	f.mu.Unlock()
}

func (f *Frame) FitBounds(b orb.Bound) {
	f.mu.Lock()
	f.bound = b
	f.fits++
	f.mu.Unlock()
}

// Fit returns the last fitted extent. ok is false when nothing was fitted.
func (f *Frame) Fit() (b orb.Bound, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bound, f.fits > 0
}

// Fits returns how many times the frame was fitted.
func (f *Frame) Fits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fits
}

// Session is one browser page with its own view.
type Session struct {
	ID      string
	View    *choropleth.View
	Frame   *Frame
	Created time.Time

	mu     sync.Mutex
	loaded bool
	seen   time.Time
}

// Loaded reports whether the dataset has been rendered into the view.
func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// SessionConfig configures new views.
type SessionConfig struct {
	Palette []string
	Seed    int64
	Opacity float64
	MaxAge  time.Duration
}

// SessionService holds one view per open page.
type SessionService struct {
	cfg     SessionConfig
	dataset *DatasetService
	styler  *choropleth.Styler

	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewSessionService creates a session store backed by the dataset.
func NewSessionService(dataset *DatasetService, cfg SessionConfig) *SessionService {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 12 * time.Hour
	}
	return &SessionService{
		cfg:      cfg,
		dataset:  dataset,
		styler:   choropleth.NewStyler(cfg.Palette, cfg.Seed),
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create opens a session. Its view is rendered immediately when the
// dataset is ready, otherwise on Ensure.
func (s *SessionService) Create() *Session {
	frame := &Frame{}
	sess := &Session{
		ID:    uuid.NewString(),
		Frame: frame,
		View: choropleth.NewView(choropleth.ViewOptions{
			Styler:   s.styler,
			Fields:   s.dataset.Fields(),
			Format:   s.dataset.Format(),
			Viewport: frame,
			Opacity:  s.cfg.Opacity,
		}),
		Created: s.now(),
	}
	sess.seen = sess.Created

	s.mu.Lock()
	s.pruneLocked()
	s.sessions[sess.ID] = sess
	n := len(s.sessions)
	s.mu.Unlock()

	metrics.ViewsCreatedTotal.Inc()
	metrics.ViewsActive.Set(float64(n))
	zap.L().Debug("service: session created", zap.String("session", sess.ID))

	// A not-ready dataset is rendered later by Ensure.
	_ = s.Ensure(sess)
	return sess
}

// Get returns a session by ID and marks it as seen.
func (s *SessionService) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, eris.Wrapf(ErrUnknownSession, "session %q", id)
	}
	sess.mu.Lock()
	sess.seen = s.now()
	sess.mu.Unlock()
	return sess, nil
}

// Ensure renders the dataset into the session's view once it is ready.
func (s *SessionService) Ensure(sess *Session) error {
	fc, err := s.dataset.Collection()
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if !sess.loaded {
		sess.View.Load(fc)
		sess.loaded = true
	}
	return nil
}

// Close drops a session.
func (s *SessionService) Close(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()
	metrics.ViewsActive.Set(float64(n))
}

// Len returns the number of open sessions.
func (s *SessionService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// pruneLocked drops sessions not seen within MaxAge.
func (s *SessionService) pruneLocked() {
	cutoff := s.now().Add(-s.cfg.MaxAge)
	for id, sess := range s.sessions {
		sess.mu.Lock()
		stale := sess.seen.Before(cutoff)
		sess.mu.Unlock()
		if stale {
			delete(s.sessions, id)
		}
	}
}
