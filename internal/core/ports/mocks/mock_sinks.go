package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/kamal-hamza/bx-cli/internal/core/domain"
)

// MockNotifier records every notification it receives
type MockNotifier struct {
	mu            sync.Mutex
	notifications []domain.Notification
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(n domain.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, n)
}

// All returns a copy of the recorded notifications
func (m *MockNotifier) All() []domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Notification(nil), m.notifications...)
}

// Count returns how many notifications of the given severity were recorded
func (m *MockNotifier) Count(sev domain.Severity) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, note := range m.notifications {
		if note.Severity == sev {
			n++
		}
	}
	return n
}

// Last returns the most recent notification
func (m *MockNotifier) Last() (domain.Notification, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.notifications) == 0 {
		return domain.Notification{}, false
	}
	return m.notifications[len(m.notifications)-1], true
}

// MockFileSaver keeps saved files in memory
type MockFileSaver struct {
	mu    sync.Mutex
	files map[string][]byte
	order []string
	Err   error
}

func NewMockFileSaver() *MockFileSaver {
	return &MockFileSaver{files: make(map[string][]byte)}
}

func (m *MockFileSaver) Save(ctx context.Context, name string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return "", m.Err
	}
	path := "/mem/" + name
	m.files[path] = append([]byte(nil), data...)
	m.order = append(m.order, path)
	return path, nil
}

// Saved returns the paths written, in order
func (m *MockFileSaver) Saved() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

// Get returns the content stored at path
func (m *MockFileSaver) Get(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	return data, ok
}

// MockClipboard stores the last written text
type MockClipboard struct {
	mu   sync.Mutex
	Text string
	Err  error
}

func (m *MockClipboard) WriteAll(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Text = text
	return nil
}

// MockQRGenerator returns the payload wrapped in a fake PNG marker
type MockQRGenerator struct {
	Contents []string
}

func (m *MockQRGenerator) PNG(content string) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("empty qr content")
	}
	m.Contents = append(m.Contents, content)
	return []byte("PNG:" + content), nil
}
