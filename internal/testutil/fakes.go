// Package testutil provides in-memory collaborators for pipeline tests.
package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"sync"
	"time"

	"github.com/timmy/catalogsync/internal/domain"
	"github.com/timmy/catalogsync/internal/notify"
	"github.com/timmy/catalogsync/internal/repository"
)

// Files is an in-memory file store.
type Files struct {
	mu    sync.Mutex
	files map[string][]byte
}

func NewFiles() *Files {
	return &Files{files: make(map[string][]byte)}
}

// Put stores content under path.
func (f *Files) Put(path, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = []byte(content)
}

func (f *Files) Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[key] = data
	return nil
}

func (f *Files) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", fs.ErrNotExist, path)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Jobs is an in-memory job store. Saves are recorded as snapshots.
type Jobs struct {
	mu      sync.Mutex
	jobs    map[string]domain.UploadJob
	history []domain.UploadJob

	// SaveErr, when set, is returned by every Save.
	SaveErr error
}

func NewJobs() *Jobs {
	return &Jobs{jobs: make(map[string]domain.UploadJob)}
}

// Add inserts job as is.
func (j *Jobs) Add(job domain.UploadJob) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	j.jobs[job.ID] = job
}

func (j *Jobs) Create(ctx context.Context, job *domain.UploadJob) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.jobs[job.ID]; ok {
		return fmt.Errorf("duplicate upload %s", job.ID)
	}
	job.CreatedAt = time.Now()
	j.jobs[job.ID] = *job
	return nil
}

func (j *Jobs) Load(ctx context.Context, id string) (*domain.UploadJob, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	job, ok := j.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", repository.ErrUploadNotFound, id)
	}
	return &job, nil
}

func (j *Jobs) Save(ctx context.Context, job *domain.UploadJob) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.SaveErr != nil {
		return j.SaveErr
	}
	snapshot := *job
	j.jobs[job.ID] = snapshot
	j.history = append(j.history, snapshot)
	return nil
}

// ListRecent returns jobs newest first.
func (j *Jobs) ListRecent(ctx context.Context, limit int) ([]domain.UploadJob, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	jobs := make([]domain.UploadJob, 0, len(j.jobs))
	for _, job := range j.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(a, b int) bool { return jobs[a].CreatedAt.After(jobs[b].CreatedAt) })
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// Get returns the stored job or the zero value.
func (j *Jobs) Get(id string) domain.UploadJob {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.jobs[id]
}

// History returns every saved snapshot in order.
func (j *Jobs) History() []domain.UploadJob {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]domain.UploadJob(nil), j.history...)
}

// Catalog is an in-memory product store keyed by unique key.
type Catalog struct {
	mu       sync.Mutex
	products map[string]domain.Product

	// FailKeys makes Upsert fail for these keys with a row-scoped error.
	FailKeys map[string]bool
	// Unavailable makes every Upsert fail with repository.ErrStoreUnavailable.
	Unavailable bool
	// PanicKey makes Upsert panic for this key.
	PanicKey string
}

func NewCatalog() *Catalog {
	return &Catalog{products: make(map[string]domain.Product), FailKeys: make(map[string]bool)}
}

func (c *Catalog) Upsert(ctx context.Context, p *domain.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Unavailable {
		return fmt.Errorf("%w: connection refused", repository.ErrStoreUnavailable)
	}
	if c.PanicKey != "" && p.UniqueKey == c.PanicKey {
		panic("catalog exploded")
	}
	if c.FailKeys[p.UniqueKey] {
		return errors.New("constraint violation")
	}
	c.products[p.UniqueKey] = *p
	return nil
}

// Get returns the product stored under key.
func (c *Catalog) Get(key string) (domain.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[key]
	return p, ok
}

// Len returns the number of stored products.
func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.products)
}

// Queue records enqueued job IDs.
type Queue struct {
	mu  sync.Mutex
	ids []string

	Err error
}

func (q *Queue) Enqueue(ctx context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return q.Err
	}
	q.ids = append(q.ids, jobID)
	return nil
}

// IDs returns every enqueued job ID in order.
func (q *Queue) IDs() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.ids...)
}

// Notifier records published messages and optionally fails.
type Notifier struct {
	mu       sync.Mutex
	messages []notify.Message

	Err error
}

func (n *Notifier) Publish(ctx context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return n.Err
}

// Messages returns every published message in order.
func (n *Notifier) Messages() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.messages...)
}
