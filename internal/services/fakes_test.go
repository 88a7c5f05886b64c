package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/Lllllllleong/docinsight/internal/gcp"
	"github.com/Lllllllleong/docinsight/internal/models"
	"github.com/Lllllllleong/docinsight/internal/records"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *records.BadgerStore {
	t.Helper()
	store, err := records.OpenBadgerStore("", true)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// memObjects is an in-memory object store keyed by bucket and name.
type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	failOn  map[string]error
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string][]byte{}, failOn: map[string]error{}}
}

func objectKey(bucket, name string) string { return bucket + "/" + name }

func (m *memObjects) put(bucket, name, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectKey(bucket, name)] = []byte(content)
}

func (m *memObjects) get(bucket, name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[objectKey(bucket, name)]
	return string(data), ok
}

func (m *memObjects) ReadObject(ctx context.Context, bucket, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn[objectKey(bucket, name)]; err != nil {
		return nil, err
	}
	data, ok := m.objects[objectKey(bucket, name)]
	if !ok {
		return nil, fmt.Errorf("gs://%s/%s: %w", bucket, name, gcp.ErrObjectNotFound)
	}
	return data, nil
}

func (m *memObjects) WriteObject(ctx context.Context, bucket, name string, data []byte, contentType string) error {
	m.put(bucket, name, string(data))
	return nil
}

func (m *memObjects) SaveIfAbsent(ctx context.Context, bucket, name, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[objectKey(bucket, name)]; !ok {
		m.objects[objectKey(bucket, name)] = []byte(content)
	}
	return nil
}

func (m *memObjects) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for key := range m.objects {
		name, ok := strings.CutPrefix(key, bucket+"/")
		if ok && strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *memObjects) DownloadToFile(ctx context.Context, bucket, name, path string) error {
	data, err := m.ReadObject(ctx, bucket, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (m *memObjects) UploadFile(ctx context.Context, bucket, localPath, name string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	m.put(bucket, name, string(data))
	return nil
}

type published struct {
	kind models.JobKind
	msg  models.QueueMessage
}

type fakePublisher struct {
	sent []published
	err  error
}

func (p *fakePublisher) Publish(ctx context.Context, kind models.JobKind, msg models.QueueMessage) error {
	p.sent = append(p.sent, published{kind: kind, msg: msg})
	return p.err
}

type fakeDetector struct {
	requests []models.TextDetectionRequest
	err      error
}

func (d *fakeDetector) StartTextDetection(ctx context.Context, req models.TextDetectionRequest) (string, error) {
	d.requests = append(d.requests, req)
	if d.err != nil {
		return "", d.err
	}
	return "executions/" + req.DocumentID, nil
}

type fakeRunner struct {
	kinds []models.JobKind
	envs  [][]models.EnvVar
	err   error
}

func (r *fakeRunner) RunTask(ctx context.Context, kind models.JobKind, env []models.EnvVar) (string, error) {
	r.kinds = append(r.kinds, kind)
	r.envs = append(r.envs, env)
	if r.err != nil {
		return "", r.err
	}
	return fmt.Sprintf("executions/%d", len(r.envs)), nil
}

func envMap(env []models.EnvVar) map[string]string {
	m := make(map[string]string, len(env))
	for _, e := range env {
		m[e.Name] = e.Value
	}
	return m
}

type fakeGenerator struct {
	prompts []string
	opts    []models.GenerationOptions
	reply   func(prompt string) (string, error)
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string, opts models.GenerationOptions) (string, error) {
	g.prompts = append(g.prompts, prompt)
	g.opts = append(g.opts, opts)
	if g.reply == nil {
		return "answer", nil
	}
	return g.reply(prompt)
}

// letterEmbedder embeds text as its letter histogram, so texts sharing words score close.
type letterEmbedder struct {
	calls int
	err   error
}

func (e *letterEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	vector := make([]float32, 27)
	vector[26] = 0.01
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			vector[r-'a']++
		}
	}
	return vector, nil
}

var errBoom = errors.New("boom")
