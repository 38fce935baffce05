package bus

// OutboundMessage is a message queued for delivery through a named channel.
type OutboundMessage struct {
	Channel   string `json:"channel"`
	ChatID    string `json:"chat_id"`
	Content   string `json:"content"`
	ParseMode string `json:"parse_mode,omitempty"` // "HTML" or ""
}
