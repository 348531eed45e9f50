package utils

import (
	"fmt"
	"log"

	"github.com/skip2/go-qrcode"
)

// GenerateStatementQR генерирует QR-код со ссылкой на PDF стейтмента.
// Используется для печатных отчётов: бухгалтер сканирует код и открывает
// оригинальный стейтмент.
func GenerateStatementQR(pdfURL string) ([]byte, error) {
	if pdfURL == "" {
		return nil, fmt.Errorf("ссылка на PDF стейтмента пуста")
	}

	// qrcode.Medium - уровень коррекции ошибок, 256 - размер QR-кода в пикселях.
	qrBytes, err := qrcode.Encode(pdfURL, qrcode.Medium, 256)
	if err != nil {
		log.Printf("GenerateStatementQR: ошибка кодирования QR-кода для ссылки '%s': %v", pdfURL, err)
		return nil, err
	}
	return qrBytes, nil
}
