package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the state of a job or of a single file within it.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
)

// Job tracks one submitted batch of files.
type Job struct {
	mu sync.Mutex

	ID        string `json:"job_id"`
	Status    Status `json:"status"`
	Phase     string `json:"phase"`
	OutputDir string `json:"output_dir"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized directly.
	files   []string
	results []FileResult
	errors  []string
}

// NewJob creates a queued job for files, writing under outputDir.
func NewJob(files []string, outputDir string) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		Phase:     "queued",
		OutputDir: outputDir,
		CreatedAt: now,
		UpdatedAt: now,
		files:     append([]string(nil), files...),
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes finished jobs not updated within the TTL. Queued and
// running jobs are kept.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := now.Sub(job.UpdatedAt) > s.ttl && job.Status != StatusQueued && job.Status != StatusRunning
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status Status, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// SetPhase updates the progress label without changing status.
func (j *Job) SetPhase(phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

// AddResult appends the outcome of one file.
func (j *Job) AddResult(r FileResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results = append(j.results, r)
	j.UpdatedAt = time.Now()
}

// AddFile appends an input. Only valid before the job is submitted.
func (j *Job) AddFile(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.files = append(j.files, path)
}

// Files returns the job's input paths.
func (j *Job) Files() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.files...)
}

// Results returns a copy of the per-file results recorded so far.
func (j *Job) Results() []FileResult {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]FileResult(nil), j.results...)
}

// Finish sets the final status from the file results: completed when every
// file completed, failed when none produced anything, partial otherwise.
func (j *Job) Finish() {
	j.mu.Lock()
	defer j.mu.Unlock()

	completed, failed := 0, 0
	for _, r := range j.results {
		switch r.Status {
		case StatusCompleted:
			completed++
		case StatusFailed:
			failed++
		}
	}
	switch {
	case len(j.results) > 0 && completed == len(j.results) && len(j.results) == len(j.files):
		j.Status = StatusCompleted
	case failed == len(j.results):
		j.Status = StatusFailed
	default:
		j.Status = StatusPartial
	}
	j.Phase = "done"
	j.UpdatedAt = time.Now()
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string       `json:"job_id"`
	Status    Status       `json:"status"`
	Phase     string       `json:"phase"`
	OutputDir string       `json:"output_dir"`
	Files     []string     `json:"files"`
	Results   []FileResult `json:"results"`
	Errors    []string     `json:"errors"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.errors...)
	results := append([]FileResult{}, j.results...)
	return JobSnapshot{
		ID:        j.ID,
		Status:    j.Status,
		Phase:     j.Phase,
		OutputDir: j.OutputDir,
		Files:     append([]string{}, j.files...),
		Results:   results,
		Errors:    errs,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}
