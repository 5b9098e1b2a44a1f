package notifier

import "context"

// TextNotifier defines a minimal text notification interface.
// Implementations receive Telegram-flavoured HTML.
type TextNotifier interface {
	SendText(ctx context.Context, text string) error
}
