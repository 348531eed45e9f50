package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"smartfleet/internal/constants"
)

// nonMoneyChars вырезает из суммы всё, кроме цифр, точки и минуса.
// Пользователь может вбить "1,500.00" или "$60" - на провод уходят
// только чистые числа.
var nonMoneyChars = regexp.MustCompile(`[^0-9.\-]`)

// CleanAmount очищает строку суммы от форматирования и парсит её в decimal.
// Пустая строка трактуется как ноль. Возвращает ошибку только если после
// очистки осталось нечто непохожее на число.
// CleanAmount strips formatting characters from an amount string and parses
// it into a decimal. Empty input is treated as zero.
func CleanAmount(raw string) (decimal.Decimal, error) {
	cleaned := nonMoneyChars.ReplaceAllString(strings.TrimSpace(raw), "")
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("не удалось разобрать сумму '%s': %w", raw, err)
	}
	return d, nil
}

// CleanAmountOrZero - как CleanAmount, но ошибки парсинга сводятся к нулю.
// Так вёл себя дашборд: parseFloat(...) || 0.
func CleanAmountOrZero(raw string) decimal.Decimal {
	d, err := CleanAmount(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ValidateDate проверяет, что строка является датой в формате YYYY-MM-DD
// (после нормализации). Возвращает нормализованную дату.
func ValidateDate(date string) (string, error) {
	normalized := NormalizeDate(date)
	if normalized == "" {
		return "", fmt.Errorf("дата пуста")
	}
	if _, err := time.Parse(constants.DATE_FORMAT, normalized); err != nil {
		return "", fmt.Errorf("неверный формат даты '%s', ожидается YYYY-MM-DD", date)
	}
	return normalized, nil
}

// ValidatePeriod проверяет пару дат периода: обе заданы, обе валидны,
// конец не раньше начала. Возвращает нормализованные даты.
func ValidatePeriod(startDate, endDate string) (string, string, error) {
	start, err := ValidateDate(startDate)
	if err != nil {
		return "", "", fmt.Errorf("начало периода: %w", err)
	}
	end, err := ValidateDate(endDate)
	if err != nil {
		return "", "", fmt.Errorf("конец периода: %w", err)
	}
	if end < start {
		// Строкового сравнения достаточно: формат YYYY-MM-DD сортируется лексикографически.
		return "", "", fmt.Errorf("конец периода (%s) раньше начала (%s)", end, start)
	}
	return start, end, nil
}
