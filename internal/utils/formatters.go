// Файл: internal/utils/formatters.go

package utils

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"smartfleet/internal/constants"
)

// NormalizeDate приводит дату к виду YYYY-MM-DD: отрезает время суток,
// пришедшее после "T" или пробела. Для уже нормализованной даты ничего
// не меняет (идемпотентна).
// NormalizeDate folds a date to YYYY-MM-DD: strips a time-of-day suffix
// after "T" or a space. Idempotent for an already normalized date.
func NormalizeDate(date string) string {
	dateStr := strings.TrimSpace(date)
	if dateStr == "" {
		return ""
	}
	if idx := strings.IndexByte(dateStr, 'T'); idx >= 0 {
		return dateStr[:idx]
	}
	if idx := strings.IndexByte(dateStr, ' '); idx >= 0 {
		return dateStr[:idx]
	}
	return dateStr
}

// FormatMoney форматирует денежное значение строго с двумя знаками после
// запятой - так суммы ходят по проводу ("1500.00", "-40.50").
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// JoinNonEmpty склеивает непустые строки через разделитель.
// Используется для объединения компаний (", ") и заметок ("; ")
// нескольких водителей одного грузовика.
func JoinNonEmpty(parts []string, sep string) string {
	var out []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

// DefaultPeriodEnd возвращает конец недельного периода: начало + 6 дней.
// При невалидной дате начала возвращает пустую строку.
func DefaultPeriodEnd(startDate string) string {
	start, err := time.Parse(constants.DATE_FORMAT, NormalizeDate(startDate))
	if err != nil {
		return ""
	}
	return start.AddDate(0, 0, constants.PERIOD_DAYS).Format(constants.DATE_FORMAT)
}

// FormatPeriodForDisplay форматирует период для отображения и сообщений.
func FormatPeriodForDisplay(startDate, endDate string) string {
	s := NormalizeDate(startDate)
	e := NormalizeDate(endDate)
	if s == "" && e == "" {
		return "период не указан"
	}
	return s + " to " + e
}
