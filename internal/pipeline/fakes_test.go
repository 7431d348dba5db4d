package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"thumbgen/internal/compositor"
	"thumbgen/internal/domain"
	"thumbgen/internal/providers/image"
)

type memJobs struct {
	mu    sync.Mutex
	jobs  map[string]domain.Job
	saves int
}

func newMemJobs(jobs ...domain.Job) *memJobs {
	m := &memJobs{jobs: map[string]domain.Job{}}
	for _, j := range jobs {
		m.jobs[j.ID] = j
	}
	return m
}

func (m *memJobs) GetByID(_ context.Context, id string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &j, nil
}

// SaveProgress mirrors the SQL guards: terminal rows are frozen, status only
// moves forward and progress never goes down.
func (m *memJobs) SaveProgress(_ context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.jobs[job.ID]
	if stored.Status.Terminal() || !stored.Status.CanTransition(job.Status) {
		return nil
	}
	m.saves++
	next := *job
	next.ProgressPercent = max(stored.ProgressPercent, job.ProgressPercent)
	m.jobs[job.ID] = next
	return nil
}

func (m *memJobs) ListStalled(context.Context, time.Time, int) ([]string, error) {
	return nil, nil
}

func (m *memJobs) get(id string) domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[id]
}

type memVariants struct {
	mu       sync.Mutex
	rows     []domain.Variant
	inserted int
}

func (m *memVariants) ListByJob(_ context.Context, jobID string) ([]domain.Variant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Variant
	for _, v := range m.rows {
		if v.JobID == jobID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}

func (m *memVariants) CreateAll(_ context.Context, jobID string, variants []domain.Variant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.rows {
		if v.JobID == jobID {
			return nil
		}
	}
	m.inserted++
	m.rows = append(m.rows, variants...)
	return nil
}

func (m *memVariants) update(id string, fn func(v *domain.Variant)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id {
			fn(&m.rows[i])
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memVariants) SetBaseImage(_ context.Context, id, key string) error {
	return m.update(id, func(v *domain.Variant) {
		if v.BaseImageKey == "" {
			v.BaseImageKey = key
		}
	})
}

func (m *memVariants) MarkBaseFailed(_ context.Context, id, reason string) error {
	return m.update(id, func(v *domain.Variant) {
		if v.BaseImageKey == "" {
			v.BaseError = reason
		}
	})
}

func (m *memVariants) SetFinalImage(_ context.Context, id, key string, path domain.RenderPath, renderErr string) error {
	return m.update(id, func(v *domain.Variant) {
		if v.FinalImageKey == "" {
			v.FinalImageKey = key
			v.RenderPath = path
			v.RenderError = renderErr
		}
	})
}

func (m *memVariants) all() []domain.Variant {
	out, _ := m.ListByJob(context.Background(), testJobID)
	return out
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut map[string]bool
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, failPut: map[string]bool{}}
}

func (s *memStore) Put(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPut[key] {
		return errors.New("disk full")
	}
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, nil
	}
	return data, nil
}

type fakePlanner struct {
	mu    sync.Mutex
	plans []domain.ConceptPlan
	err   error
	calls int
}

func (p *fakePlanner) GeneratePlans(_ context.Context, _ domain.JobInput, _ int) ([]domain.ConceptPlan, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.plans, p.err
}

type fakeGenerator struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls []string
}

func (g *fakeGenerator) Name() string { return "fake" }

func (g *fakeGenerator) GenerateBaseImage(_ context.Context, req image.BaseRequest) (*image.BaseImage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req.VariantID)
	if g.fail["*"] || g.fail[req.VariantID] {
		return nil, fmt.Errorf("quota exceeded for %s", req.VariantID)
	}
	return &image.BaseImage{Data: []byte("base:" + req.VariantID), MIMEType: "image/png"}, nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type fakeRenderer struct {
	mu            sync.Mutex
	failWithBase  bool
	failFallback  map[string]bool
	withBase      int
	fallbackSpecs []compositor.RenderSpec
}

func (r *fakeRenderer) RenderWithBase(_ context.Context, base []byte, spec compositor.RenderSpec) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWithBase {
		return nil, errors.New("decode failed")
	}
	r.withBase++
	return []byte("final:" + string(base) + ":" + spec.Headline), nil
}

func (r *fakeRenderer) RenderFallback(_ context.Context, spec compositor.RenderSpec) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFallback[spec.Headline] {
		return nil, errors.New("font missing")
	}
	r.fallbackSpecs = append(r.fallbackSpecs, spec)
	return []byte("fallback:" + spec.Headline), nil
}

func (r *fakeRenderer) renders() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.withBase + len(r.fallbackSpecs)
}

type fakeLocker struct {
	busy     bool
	unlocked int
}

func (l *fakeLocker) TryLock(context.Context, string, time.Duration) (func(context.Context) error, bool, error) {
	if l.busy {
		return nil, false, nil
	}
	return func(context.Context) error {
		l.unlocked++
		return nil
	}, true, nil
}

type recordingNotifier struct {
	results []Result
}

func (n *recordingNotifier) JobAdvanced(_ context.Context, res Result) error {
	n.results = append(n.results, res)
	return nil
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("v%d", n)
	}
}

func plan(concept, scene, overlay string) domain.ConceptPlan {
	return domain.ConceptPlan{
		ConceptID: concept,
		Story: domain.VisualStory{
			Scene:       scene,
			Camera:      "medium shot",
			Emotion:     "curious",
			OverlayText: overlay,
		},
	}
}

func joinSorted(values []string) string {
	cp := append([]string(nil), values...)
	sort.Strings(cp)
	return strings.Join(cp, ",")
}
