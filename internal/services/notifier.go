package services

import (
	"context"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/models"
)

// Notifier receives two-factor lifecycle events synchronously.
// Implementations must not block; they run on the request path.
type Notifier interface {
	OnEnabled(ctx context.Context, e models.Event)
	OnConfirmed(ctx context.Context, e models.Event)
	OnDisabled(ctx context.Context, e models.Event)
	OnVerified(ctx context.Context, e models.Event)
	OnVerificationFailed(ctx context.Context, e models.Event)
	OnRecoveryCodeUsed(ctx context.Context, e models.Event)
	OnRecoveryCodesRegenerated(ctx context.Context, e models.Event)
	OnDeviceRemembered(ctx context.Context, e models.Event)
	OnDeviceForgotten(ctx context.Context, e models.Event)
	OnRateLimited(ctx context.Context, e models.Event)
	OnCodeSent(ctx context.Context, e models.Event)
	OnDeliveryFailed(ctx context.Context, e models.Event)
}

// NoopNotifier ignores every event. Embed it to implement a subset of Notifier.
type NoopNotifier struct{}

func (NoopNotifier) OnEnabled(context.Context, models.Event)                  {}
func (NoopNotifier) OnConfirmed(context.Context, models.Event)                {}
func (NoopNotifier) OnDisabled(context.Context, models.Event)                 {}
func (NoopNotifier) OnVerified(context.Context, models.Event)                 {}
func (NoopNotifier) OnVerificationFailed(context.Context, models.Event)       {}
func (NoopNotifier) OnRecoveryCodeUsed(context.Context, models.Event)         {}
func (NoopNotifier) OnRecoveryCodesRegenerated(context.Context, models.Event) {}
func (NoopNotifier) OnDeviceRemembered(context.Context, models.Event)         {}
func (NoopNotifier) OnDeviceForgotten(context.Context, models.Event)          {}
func (NoopNotifier) OnRateLimited(context.Context, models.Event)              {}
func (NoopNotifier) OnCodeSent(context.Context, models.Event)                 {}
func (NoopNotifier) OnDeliveryFailed(context.Context, models.Event)           {}

// Notifiers fans each event out to every member in order
type Notifiers []Notifier

func (n Notifiers) OnEnabled(ctx context.Context, e models.Event) {
	for _, x := range n {
		x.OnEnabled(ctx, e)
	}
}

func (n Notifiers) OnConfirmed(ctx context.Context, e models.Event) {
	for _, x := range n {
		x.OnConfirmed(ctx, e)
	}
}

func (n Notifiers) OnDisabled(ctx context.Context, e models.Event) {
	for _, x := range n {
		x.OnDisabled(ctx, e)
	}
}

func (n Notifiers) OnVerified(ctx context.Context, e models.Event) {
	for _, x := range n {
		x.OnVerified(ctx, e)
	}
}

func (n Notifiers) OnVerificationFailed(ctx context.Context, e models.Event) {
	for _, x := range n {
		x.OnVerificationFailed(ctx, e)
	}
}

func (n Notifiers) OnRecoveryCodeUsed(ctx context.Context, e models.Event) {
	for _, x := range n {
		x.OnRecoveryCodeUsed(ctx, e)
	}
}

func (n Notifiers) OnRecoveryCodesRegenerated(ctx context.Context, e models.Event) {
	for _, x := range n {
		x.OnRecoveryCodesRegenerated(ctx, e)
	}
}

func (n Notifiers) OnDeviceRemembered(ctx context.Context, e models.Event) {
	for _, x := range n {
		x.OnDeviceRemembered(ctx, e)
	}
}

func (n Notifiers) OnDeviceForgotten(ctx context.Context, e models.Event) {
	for _, x := range n {
		x.OnDeviceForgotten(ctx, e)
	}
}

func (n Notifiers) OnRateLimited(ctx context.Context, e models.Event) {
	for _, x := range n {
		x.OnRateLimited(ctx, e)
	}
}

func (n Notifiers) OnCodeSent(ctx context.Context, e models.Event) {
	for _, x := range n {
		x.OnCodeSent(ctx, e)
	}
}

func (n Notifiers) OnDeliveryFailed(ctx context.Context, e models.Event) {
	for _, x := range n {
		x.OnDeliveryFailed(ctx, e)
	}
}
