// Пакет notify отправляет уведомления в Telegram-чат бухгалтерии.
// Уведомления необязательны: без токена пакет превращается в no-op,
// ошибки отправки логируются и не влияют на основной поток.
package notify

import (
	"fmt"
	"log"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"smartfleet/internal/utils"
)

// Notifier - обертка над Telegram Bot API для уведомлений.
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// New инициализирует Notifier. Пустой токен или нулевой chatID возвращают
// выключенный Notifier (nil), это штатный режим для дев-окружения.
func New(token string, chatID int64) *Notifier {
	if token == "" || chatID == 0 {
		log.Println("Notify: токен или чат не заданы, уведомления отключены.")
		return nil
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		log.Printf("Notify: ошибка инициализации Telegram Bot API, уведомления отключены: %v", err)
		return nil
	}
	log.Printf("Notify: авторизован как аккаунт %s", api.Self.UserName)
	return &Notifier{api: api, chatID: chatID}
}

// send отправляет текст в чат бухгалтерии.
func (n *Notifier) send(text string) {
	if n == nil || n.api == nil {
		return
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		log.Printf("Notify.send: ошибка отправки уведомления: %v", err)
	}
}

// CalculationSaved уведомляет чат о сохранённом расчёте владельца.
func (n *Notifier) CalculationSaved(submittedBy, owner, startDate, endDate string, added int, created bool) {
	if n == nil {
		return
	}
	action := "updated"
	if created {
		action = "created"
	}
	n.send(fmt.Sprintf("Owner calculation %s: %s, %s (%d unit(s)). Submitted by %s.",
		action, owner, utils.FormatPeriodForDisplay(startDate, endDate), added, submittedBy))
}

// DeductionSaved уведомляет чат о добавленном или изменённом вычете.
func (n *Notifier) DeductionSaved(submittedBy, driver, amount string, created bool) {
	if n == nil {
		return
	}
	action := "updated"
	if created {
		action = "added"
	}
	n.send(fmt.Sprintf("Deduction %s: %s, amount %s. Submitted by %s.", action, driver, amount, submittedBy))
}
