package processor

import (
	"context"
	"sync"
	"time"
)

// Stage labels the synthetic phases shown while the upload request is in
// flight.
type Stage string

const (
	StageUploading Stage = "uploading"
	StageAnalyzing Stage = "analyzing"
	StageImproving Stage = "improving"
	StageRendering Stage = "rendering"
	StageDone      Stage = "done"
)

// Snapshot is a point-in-time view of an active session.
type Snapshot struct {
	Stage   Stage
	Percent int
	Message string
}

// ProgressFunc receives session snapshots as the estimate advances.
type ProgressFunc func(Snapshot)

type stageStep struct {
	stage   Stage
	until   int
	message string
}

// The estimate walks these steps and parks just short of complete; only the
// backend response finishes it.
var stageSteps = []stageStep{
	{StageUploading, 25, "Uploading resume"},
	{StageAnalyzing, 55, "Analyzing content"},
	{StageImproving, 85, "Improving resume"},
	{StageRendering, 95, "Rendering document"},
}

// session fabricates monotonic staged progress while the blocking upload call
// runs. Percent never decreases and never reaches 100 before finish.
type session struct {
	mu       sync.Mutex
	percent  int
	stageIdx int
	done     bool

	onProgress ProgressFunc
	stop       chan struct{}
	stopped    sync.Once
	wg         sync.WaitGroup
}

func newSession(onProgress ProgressFunc) *session {
	return &session{
		onProgress: onProgress,
		stop:       make(chan struct{}),
	}
}

// run advances the estimate on a ticker until finished or stopped.
func (s *session) run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 750 * time.Millisecond
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		s.emit()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				if !s.advance() {
					return
				}
				s.emit()
			}
		}
	}()
}

func (s *session) advance() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return false
	}
	step := stageSteps[s.stageIdx]
	if s.percent < step.until {
		s.percent += 3
		if s.percent > step.until {
			s.percent = step.until
		}
		return true
	}
	if s.stageIdx < len(stageSteps)-1 {
		s.stageIdx++
		return true
	}
	// Parked at the final step's ceiling.
	return true
}

// finish marks the session complete and emits the terminal snapshot.
func (s *session) finish() {
	s.mu.Lock()
	s.done = true
	s.percent = 100
	s.mu.Unlock()
	s.halt()
	if s.onProgress != nil {
		s.onProgress(Snapshot{Stage: StageDone, Percent: 100, Message: "Complete"})
	}
}

// halt stops the ticker without emitting a terminal snapshot.
func (s *session) halt() {
	s.stopped.Do(func() {
		close(s.stop)
	})
	s.wg.Wait()
}

func (s *session) emit() {
	if s.onProgress == nil {
		return
	}
	s.onProgress(s.snapshot())
}

func (s *session) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return Snapshot{Stage: StageDone, Percent: 100, Message: "Complete"}
	}
	step := stageSteps[s.stageIdx]
	return Snapshot{Stage: step.stage, Percent: s.percent, Message: step.message}
}
