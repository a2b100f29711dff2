package telegram

// Notifier sends plain text notices to a Telegram chat.
// The check-in engine uses it for replay summaries without depending on the bot library.
type Notifier interface {
	Notify(chatID int64, text string) error
}
