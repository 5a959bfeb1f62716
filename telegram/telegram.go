package telegram

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func EscapeMessage(message string) string {
	r := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"`", "\\`",
	)
	return r.Replace(message)
}

// OpsNotifier pushes operational alerts (exhausted generation ladders, vision
// analysis failures) to the ops chat. Nil-safe: every method is a no-op when
// the bot could not be initialized, alerts must never break request handling.
type OpsNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	mu     sync.Mutex
}

// NewOpsNotifier reads TG_TOKEN and TG_OPS_CHAT_ID. Returns nil (not an
// error) when the token is absent so local setups run without Telegram.
func NewOpsNotifier() *OpsNotifier {
	token := os.Getenv("TG_TOKEN")
	if token == "" {
		return nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		log.Println("Error tg bot init:", err)
		return nil
	}
	log.Printf("Authorized on account %s", bot.Self.UserName)

	var chatID int64
	if _, err := fmt.Sscanf(os.Getenv("TG_OPS_CHAT_ID"), "%d", &chatID); err != nil {
		log.Println("TG_OPS_CHAT_ID missing or invalid, telegram alerts disabled")
		return nil
	}
	return &OpsNotifier{bot: bot, chatID: chatID}
}

func (n *OpsNotifier) send(text string) {
	if n == nil || n.bot == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = "markdown"
	if _, err := n.bot.Send(msg); err != nil {
		log.Println("Error sending telegram alert:", err)
	}
}

// AlertGenerationExhausted fires when the healing ladder runs out for a user,
// a signal the wardrobe composition heuristics need attention.
func (n *OpsNotifier) AlertGenerationExhausted(userID uint, occasion string, errors []string) {
	n.send(fmt.Sprintf(
		"⚠️ *Outfit generation exhausted*\nUser: %v\nOccasion: %s\nErrors:\n`%s`",
		userID, EscapeMessage(occasion), EscapeMessage(strings.Join(errors, "\n")),
	))
}

// AlertAnalysisFailed fires when an item exceeds its vision analysis retries.
func (n *OpsNotifier) AlertAnalysisFailed(itemID uint, message string) {
	n.send(fmt.Sprintf(
		"🔴 *Item analysis failed*\nItem: %v\n`%s`",
		itemID, EscapeMessage(message),
	))
}
