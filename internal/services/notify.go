package services

import "context"

// ChangeNotifier is told after a committed mutation that may change feed
// content. Implementations must not fail the caller.
type ChangeNotifier interface {
	ContentChanged(ctx context.Context, reason string)
}

// ChangeNotifierFunc adapts a function to ChangeNotifier.
type ChangeNotifierFunc func(ctx context.Context, reason string)

func (f ChangeNotifierFunc) ContentChanged(ctx context.Context, reason string) {
	f(ctx, reason)
}

func notify(ctx context.Context, n ChangeNotifier, reason string) {
	if n != nil {
		n.ContentChanged(ctx, reason)
	}
}

// Notifiers fans a change out to several notifiers in order.
type Notifiers []ChangeNotifier

func (ns Notifiers) ContentChanged(ctx context.Context, reason string) {
	for _, n := range ns {
		notify(ctx, n, reason)
	}
}
