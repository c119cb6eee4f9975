package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Memory is an in-process Store used when no bucket is configured and in
// tests. Presigned URLs point at a fake host and cannot be used.
type Memory struct {
	bucket string

	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemory(bucket string) *Memory {
	return &Memory{bucket: bucket, objects: map[string][]byte{}}
}

func (m *Memory) Bucket() string {
	return m.bucket
}

func (m *Memory) URL(key string) string {
	return "memory://" + m.bucket + "/" + key
}

func (m *Memory) PresignPut(_ context.Context, key, contentType string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("%s?content-type=%s&expires=%d", m.URL(key), contentType, int(ttl.Seconds())), nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	body, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("get %s: not found", key)
	}
	return body, nil
}

func (m *Memory) Put(_ context.Context, key string, body []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), body...)
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.objects, key)
	}
	return nil
}

// Has reports whether key is stored.
func (m *Memory) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok
}
