package services

import (
	"context"
	"sync"
	"time"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/delivery"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/models"
)

// MockProvider implements delivery.Provider for testing
type MockProvider struct {
	NameValue string
	SendFunc  func(ctx context.Context, destination string, msg delivery.Message) (*delivery.Result, error)

	mu   sync.Mutex
	Sent []SentMessage
}

// SentMessage is one message captured by MockProvider
type SentMessage struct {
	Destination string
	Message     delivery.Message
}

func (m *MockProvider) Name() string {
	if m.NameValue != "" {
		return m.NameValue
	}
	return "mock"
}

func (m *MockProvider) Send(ctx context.Context, destination string, msg delivery.Message) (*delivery.Result, error) {
	m.mu.Lock()
	m.Sent = append(m.Sent, SentMessage{Destination: destination, Message: msg})
	m.mu.Unlock()

	if m.SendFunc != nil {
		return m.SendFunc(ctx, destination, msg)
	}
	return &delivery.Result{Provider: m.Name(), MessageID: "mock-message"}, nil
}

// Last returns the most recent message, or false if nothing was sent
func (m *MockProvider) Last() (SentMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return SentMessage{}, false
	}
	return m.Sent[len(m.Sent)-1], true
}

// MockAttemptLog implements cache.AttemptLog for testing
type MockAttemptLog struct {
	AddFunc    func(ctx context.Context, key string, at time.Time, ttl time.Duration) error
	WindowFunc func(ctx context.Context, key string, since time.Time) (int, time.Time, error)
	ClearFunc  func(ctx context.Context, key string) error
}

func (m *MockAttemptLog) Add(ctx context.Context, key string, at time.Time, ttl time.Duration) error {
	if m.AddFunc != nil {
		return m.AddFunc(ctx, key, at, ttl)
	}
	return nil
}

func (m *MockAttemptLog) Window(ctx context.Context, key string, since time.Time) (int, time.Time, error) {
	if m.WindowFunc != nil {
		return m.WindowFunc(ctx, key, since)
	}
	return 0, time.Time{}, nil
}

func (m *MockAttemptLog) Clear(ctx context.Context, key string) error {
	if m.ClearFunc != nil {
		return m.ClearFunc(ctx, key)
	}
	return nil
}

// RecordingNotifier captures event names in order
type RecordingNotifier struct {
	mu     sync.Mutex
	Events []string
	Last   map[string]models.Event
}

func (n *RecordingNotifier) record(name string, e models.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Events = append(n.Events, name)
	if n.Last == nil {
		n.Last = make(map[string]models.Event)
	}
	n.Last[name] = e
}

// Has reports whether an event with the given name was seen
func (n *RecordingNotifier) Has(name string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.Events {
		if e == name {
			return true
		}
	}
	return false
}

func (n *RecordingNotifier) OnEnabled(_ context.Context, e models.Event)   { n.record("enabled", e) }
func (n *RecordingNotifier) OnConfirmed(_ context.Context, e models.Event) { n.record("confirmed", e) }
func (n *RecordingNotifier) OnDisabled(_ context.Context, e models.Event)  { n.record("disabled", e) }
func (n *RecordingNotifier) OnVerified(_ context.Context, e models.Event)  { n.record("verified", e) }
func (n *RecordingNotifier) OnVerificationFailed(_ context.Context, e models.Event) {
	n.record("verification_failed", e)
}
func (n *RecordingNotifier) OnRecoveryCodeUsed(_ context.Context, e models.Event) {
	n.record("recovery_code_used", e)
}
func (n *RecordingNotifier) OnRecoveryCodesRegenerated(_ context.Context, e models.Event) {
	n.record("recovery_codes_regenerated", e)
}
func (n *RecordingNotifier) OnDeviceRemembered(_ context.Context, e models.Event) {
	n.record("device_remembered", e)
}
func (n *RecordingNotifier) OnDeviceForgotten(_ context.Context, e models.Event) {
	n.record("device_forgotten", e)
}
func (n *RecordingNotifier) OnRateLimited(_ context.Context, e models.Event) {
	n.record("rate_limited", e)
}
func (n *RecordingNotifier) OnCodeSent(_ context.Context, e models.Event) { n.record("code_sent", e) }
func (n *RecordingNotifier) OnDeliveryFailed(_ context.Context, e models.Event) {
	n.record("delivery_failed", e)
}
