package editorservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/starford/lumina/internal/apperr"
	"github.com/starford/lumina/internal/export"
	"github.com/starford/lumina/internal/layer"
	"github.com/starford/lumina/internal/models"
	"github.com/starford/lumina/internal/sse"
)

// Finished jobs are kept for polling until they are older than the
// retention TTL or fall outside the newest DefaultMaxFinishedJobs.
const (
	DefaultJobTTL          = 30 * time.Minute
	DefaultMaxFinishedJobs = 100
)

// Job states.
const (
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// Job is a background export.
type Job struct {
	ID        string
	SessionID string
	task      *export.Task

	mu       sync.Mutex
	status   string
	progress export.Progress
	result   export.Result
	err      error
	finished time.Time
}

// JobInfo is the reported state of a job.
type JobInfo struct {
	ID        string          `json:"id"`
	SessionID string          `json:"sessionId"`
	Status    string          `json:"status"`
	Progress  export.Progress `json:"progress"`
	Result    *export.Result  `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	Kind      string          `json:"kind,omitempty"`
}

// Info snapshots the job.
func (j *Job) Info() JobInfo {
	j.mu.Lock()
	defer j.mu.Unlock()
	info := JobInfo{ID: j.ID, SessionID: j.SessionID, Status: j.status, Progress: j.progress}
	if j.status == JobCompleted {
		res := j.result
		info.Result = &res
	}
	if j.err != nil {
		info.Error, info.Kind = userMessage(j.err)
	}
	return info
}

// Wait blocks until the export ends.
func (j *Job) Wait() (export.Result, error) { return j.task.Wait() }

func userMessage(err error) (string, string) {
	var e *export.Error
	if errors.As(err, &e) {
		return e.UserMessage(), e.Kind.String()
	}
	return "Something went wrong while exporting.", export.KindInternal.String()
}

func (s *Service) withDefaults(opts export.Options) export.Options {
	if opts.Format == "" {
		opts.Format = s.defaults.Format
		if opts.Quality == 0 {
			opts.Quality = s.defaults.Quality
		}
	}
	return opts
}

// StartExport exports the session document as it is now. Progress and the
// outcome are published as events tagged with the session.
func (s *Service) StartExport(sessionID string, opts export.Options) (*Job, error) {
	sess, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}
	opts = s.withDefaults(opts)
	job := &Job{
		ID:        layer.NewID("export"),
		SessionID: sessionID,
		status:    JobRunning,
	}
	job.task = s.pipeline.Start(context.Background(), sess.Store.Document(), opts)

	s.mu.Lock()
	s.pruneJobs(time.Now())
	s.jobs[job.ID] = job
	s.mu.Unlock()

	go s.follow(job)
	return job, nil
}

func (s *Service) follow(job *Job) {
	for pr := range job.task.Events() {
		job.mu.Lock()
		job.progress = pr
		job.mu.Unlock()
		s.publish(sse.EventExportProgress, job.SessionID, map[string]any{
			"job":      job.ID,
			"phase":    pr.Phase,
			"progress": pr.Progress,
			"overall":  pr.Overall,
			"message":  pr.Message,
		})
	}
	res, err := job.task.Wait()

	// The terminal event goes out before the status flips so that pollers
	// seeing a finished job have also had the event published.
	if err != nil {
		msg, kind := userMessage(err)
		s.publish(sse.EventExportFailed, job.SessionID, map[string]any{"job": job.ID, "message": msg, "kind": kind})
	} else {
		s.publish(sse.EventExportCompleted, job.SessionID, map[string]any{"job": job.ID, "result": res})
	}

	job.mu.Lock()
	job.result, job.err = res, err
	job.finished = time.Now()
	job.status = JobCompleted
	if err != nil {
		job.status = JobFailed
	}
	job.mu.Unlock()
}

// pruneJobs drops finished jobs past the TTL and then the oldest beyond the
// cap. Running jobs are never dropped. s.mu must be held.
func (s *Service) pruneJobs(now time.Time) {
	type done struct {
		id string
		at time.Time
	}
	var finished []done
	for id, j := range s.jobs {
		j.mu.Lock()
		at, running := j.finished, j.status == JobRunning
		j.mu.Unlock()
		switch {
		case running:
		case now.Sub(at) > s.jobTTL:
			delete(s.jobs, id)
		default:
			finished = append(finished, done{id, at})
		}
	}
	if len(finished) <= s.maxJobs {
		return
	}
	slices.SortFunc(finished, func(a, b done) int { return b.at.Compare(a.at) })
	for _, d := range finished[s.maxJobs:] {
		delete(s.jobs, d.id)
	}
}

func (s *Service) publish(typ, session string, data any) {
	if s.events != nil {
		s.events.Publish(sse.Event{Type: typ, Session: session, Data: data})
	}
}

// Job returns a tracked export.
func (s *Service) Job(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("export %s: %w", id, apperr.ErrNotFound)
	}
	return j, nil
}

// CancelExport stops a running export.
func (s *Service) CancelExport(id string) error {
	j, err := s.Job(id)
	if err != nil {
		return err
	}
	j.task.Cancel()
	return nil
}

// Export runs a blocking export of a session.
func (s *Service) Export(ctx context.Context, sessionID string, opts export.Options) (export.Result, error) {
	sess, err := s.Get(sessionID)
	if err != nil {
		return export.Result{}, err
	}
	return s.exportDoc(ctx, sess.Store.Document(), opts)
}

// ExportProject runs a blocking export of a saved project.
func (s *Service) ExportProject(ctx context.Context, projectID string, opts export.Options) (export.Result, error) {
	p, err := s.projects.Load(ctx, projectID)
	if err != nil {
		return export.Result{}, err
	}
	return s.exportDoc(ctx, p.Document, opts)
}

func (s *Service) exportDoc(ctx context.Context, doc models.Document, opts export.Options) (export.Result, error) {
	opts = s.withDefaults(opts)
	res, err := s.pipeline.Export(ctx, doc, opts, func(pr export.Progress) {
		s.logger.Debug("export progress", slog.String("phase", string(pr.Phase)), slog.Float64("overall", pr.Overall))
	})
	return res, err
}
