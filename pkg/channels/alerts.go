package channels

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"

	"github.com/tinyland-inc/verbsbot/pkg/bus"
	"github.com/tinyland-inc/verbsbot/pkg/logger"
)

const alertTailLimit = 1500

// AlertComponents are the log components whose warnings reach the admin chat.
var AlertComponents = []string{"vk", "telegram", "intent"}

var levelIcons = map[logger.LogLevel]string{
	logger.DEBUG: "🐞",
	logger.INFO:  "ℹ️",
	logger.WARN:  "⚠️",
	logger.ERROR: "❌",
}

// NewAlertHook returns a logger hook that queues records from AlertComponents
// for delivery through channel to chatID. It never blocks: when the bus is full
// the record is dropped.
func NewAlertHook(msgBus *bus.MessageBus, channel string, chatID int64) logger.Hook {
	forwarded := make(map[string]bool, len(AlertComponents))
	for _, c := range AlertComponents {
		forwarded[c] = true
	}
	target := strconv.FormatInt(chatID, 10)

	return func(e logger.Entry) {
		if !forwarded[e.Component] {
			return
		}
		_ = msgBus.TryPublishOutbound(bus.OutboundMessage{
			Channel:   channel,
			ChatID:    target,
			Content:   FormatAlertHTML(e),
			ParseMode: telego.ModeHTML,
		})
	}
}

// FormatAlertHTML renders an entry for Telegram's HTML parse mode. The "error"
// field, when present, is appended as a preformatted block cut to its last
// 1500 characters.
func FormatAlertHTML(e logger.Entry) string {
	icon, ok := levelIcons[e.Level]
	if !ok {
		icon = "❗"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s <b>Логгер</b>\n\n", icon)
	fmt.Fprintf(&sb, "<b>Уровень:</b> %s\n", e.Level)
	fmt.Fprintf(&sb, "<b>Источник:</b> %s\n\n", html.EscapeString(e.Component))
	fmt.Fprintf(&sb, "<b>Сообщение:</b> %s", html.EscapeString(e.Message))

	if errText, ok := e.Fields["error"]; ok {
		tail := []rune(fmt.Sprint(errText))
		if len(tail) > alertTailLimit {
			tail = tail[len(tail)-alertTailLimit:]
		}
		fmt.Fprintf(&sb, "\n\n<pre>%s</pre>", html.EscapeString(string(tail)))
	}
	sb.WriteString("\n")
	return sb.String()
}
