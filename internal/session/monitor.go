package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
)

const (
	// DefaultSampleInterval is the observed proctoring cadence.
	DefaultSampleInterval = 10 * time.Second

	classifyTimeout = 8 * time.Second
)

// EnvironmentMonitor owns the camera stream for a session and samples
// one frame at a fixed cadence, delegating classification to an
// external classifier. Camera failure or classifier failure never
// affects exam-taking: the monitor degrades to inactive or counts the
// sample as SAFE.
//
// Sampling runs on its own goroutine; verdicts are delivered through
// the onVerdict callback, never by mutating shared state directly.
type EnvironmentMonitor struct {
	device     MediaDevice
	classifier AnomalyClassifier
	interval   time.Duration
	logger     *slog.Logger

	mu     sync.Mutex
	state  models.MonitorState
	source FrameSource

	started  bool
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}

	// sampleCtx parents every per-sample context; cancelSample unblocks
	// an in-flight Capture or Classify when the monitor stops.
	sampleCtx    context.Context
	cancelSample context.CancelFunc
}

func NewEnvironmentMonitor(device MediaDevice, classifier AnomalyClassifier, interval time.Duration, logger *slog.Logger) *EnvironmentMonitor {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &EnvironmentMonitor{
		device:     device,
		classifier: classifier,
		interval:   interval,
		logger:     logger,
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start acquires the camera and begins the sampling loop. A failed
// acquisition leaves the monitor inactive and returns nil: proctoring
// is best effort and never blocks the session.
func (m *EnvironmentMonitor) Start(ctx context.Context, owner string, onVerdict func(verdict models.Verdict, warnings int)) error {
	source, err := m.device.AcquireCamera(ctx, CameraConstraints{Owner: owner, Width: 320, Height: 240})
	if err != nil {
		m.logger.Warn("Camera unavailable, session continues without proctoring", "error", err)
		return nil
	}

	m.mu.Lock()
	m.source = source
	m.state.Active = true
	m.state.LastVerdict = models.VerdictSafe
	m.started = true
	m.sampleCtx, m.cancelSample = context.WithCancel(context.Background())
	m.mu.Unlock()

	go m.sampleLoop(onVerdict)
	return nil
}

func (m *EnvironmentMonitor) sampleLoop(onVerdict func(models.Verdict, int)) {
	defer close(m.done)
	defer m.releaseSource()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.sampleOnce(onVerdict)
		}
	}
}

func (m *EnvironmentMonitor) sampleOnce(onVerdict func(models.Verdict, int)) {
	ctx, cancel := context.WithTimeout(m.sampleCtx, classifyTimeout)
	defer cancel()

	frame, err := m.source.Capture(ctx)
	if err != nil {
		m.logger.Debug("Frame capture failed, sample skipped", "error", err)
		return
	}

	verdict, err := m.classifier.Classify(ctx, frame)
	if err != nil {
		// Classifier failure counts as SAFE and stays invisible to the
		// exam-taking flow.
		m.logger.Debug("Classifier failed, treating sample as safe", "error", err)
		verdict = models.VerdictSafe
	}

	m.mu.Lock()
	m.state.LastVerdict = verdict
	m.state.LastSampleAt = time.Now()
	if verdict == models.VerdictWarn {
		m.state.WarningCount++
	}
	warnings := m.state.WarningCount
	m.mu.Unlock()

	if onVerdict != nil {
		onVerdict(verdict, warnings)
	}
}

func (m *EnvironmentMonitor) releaseSource() {
	m.mu.Lock()
	source := m.source
	m.source = nil
	m.mu.Unlock()

	if source != nil {
		if err := source.Close(); err != nil {
			m.logger.Warn("Failed to release camera stream", "error", err)
		}
	}
}

// Stop cancels the sampling loop and releases the camera. Idempotent;
// after Stop returns no further sample fires and the stream is closed.
// An in-flight Capture or Classify is canceled rather than waited out,
// so Stop returns promptly even mid-sample.
func (m *EnvironmentMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })

	m.mu.Lock()
	started := m.started
	cancel := m.cancelSample
	m.mu.Unlock()

	if !started {
		return
	}
	cancel()
	<-m.done
}

// State returns a copy of the current monitor state.
func (m *EnvironmentMonitor) State() models.MonitorState {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}
