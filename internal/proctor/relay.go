package proctor

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/SAP-F-2025/exam-session-service/internal/session"
)

var (
	ErrNoStream     = errors.New("no camera stream registered for session")
	ErrStreamClosed = errors.New("camera stream closed")
)

// FrameRelay implements session.MediaDevice on top of client-pushed
// frames. The browser captures webcam frames and uploads them over
// HTTP; the relay hands each session's monitor a FrameSource that
// yields the latest uploaded frame for that session.
type FrameRelay struct {
	mu      sync.Mutex
	streams map[string]*relayStream
	logger  *slog.Logger
}

func NewFrameRelay(logger *slog.Logger) *FrameRelay {
	return &FrameRelay{
		streams: make(map[string]*relayStream),
		logger:  logger,
	}
}

// AcquireCamera registers a stream keyed by the constraints owner. It
// never fails: the stream simply stays empty until the client starts
// pushing frames.
func (r *FrameRelay) AcquireCamera(_ context.Context, constraints session.CameraConstraints) (session.FrameSource, error) {
	if constraints.Owner == "" {
		return nil, errors.New("camera constraints missing owner")
	}

	stream := &relayStream{
		owner:  constraints.Owner,
		frames: make(chan []byte, 1),
		relay:  r,
	}

	r.mu.Lock()
	r.streams[constraints.Owner] = stream
	r.mu.Unlock()

	r.logger.Debug("Camera stream registered", "owner", constraints.Owner)
	return stream, nil
}

// Push delivers a frame to the stream owned by the given session. Only
// the most recent frame is kept; stale frames are dropped.
func (r *FrameRelay) Push(owner string, frame []byte) error {
	r.mu.Lock()
	stream, ok := r.streams[owner]
	r.mu.Unlock()
	if !ok {
		return ErrNoStream
	}
	stream.push(frame)
	return nil
}

// HasStream reports whether a session currently has a registered stream.
func (r *FrameRelay) HasStream(owner string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.streams[owner]
	return ok
}

func (r *FrameRelay) remove(owner string) {
	r.mu.Lock()
	delete(r.streams, owner)
	r.mu.Unlock()
}

type relayStream struct {
	owner  string
	frames chan []byte
	relay  *FrameRelay

	mu     sync.Mutex
	closed bool
}

func (s *relayStream) push(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	// Replace any pending frame so Capture always sees the newest one.
	select {
	case <-s.frames:
	default:
	}
	s.frames <- frame
}

// Capture blocks until a frame arrives or the context is done.
func (s *relayStream) Capture(ctx context.Context) ([]byte, error) {
	select {
	case frame, ok := <-s.frames:
		if !ok {
			return nil, ErrStreamClosed
		}
		return frame, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *relayStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.relay.remove(s.owner)
	return nil
}
