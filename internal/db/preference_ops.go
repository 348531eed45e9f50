// Файл: internal/db/preference_ops.go
package db

import (
	"database/sql"
	"log"
)

// Preferences - сохранённые настройки дашборда сотрудника: выбранный
// владелец и общий период. Подхватываются при следующем входе, чтобы не
// выбирать всё заново.
type Preferences struct {
	SelectedOwner string `json:"selected_owner"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
}

// SavePreferences сохраняет настройки пользователя.
func SavePreferences(username string, p Preferences) {
	if !Enabled() || username == "" {
		return
	}
	_, err := DB.Exec(`
        INSERT INTO user_preferences (username, selected_owner, start_date, end_date, updated_at)
        VALUES ($1, $2, $3, $4, NOW())
        ON CONFLICT (username) DO UPDATE SET
            selected_owner = EXCLUDED.selected_owner,
            start_date = EXCLUDED.start_date,
            end_date = EXCLUDED.end_date,
            updated_at = NOW()`,
		username, p.SelectedOwner, p.StartDate, p.EndDate)
	if err != nil {
		log.Printf("SavePreferences: ошибка сохранения настроек '%s': %v", username, err)
	}
}

// GetPreferences возвращает настройки пользователя. Отсутствие записи
// не ошибка: возвращаются пустые настройки.
func GetPreferences(username string) Preferences {
	var p Preferences
	if !Enabled() || username == "" {
		return p
	}
	err := DB.QueryRow(`
        SELECT COALESCE(selected_owner, ''), COALESCE(start_date, ''), COALESCE(end_date, '')
        FROM user_preferences WHERE username = $1`, username).
		Scan(&p.SelectedOwner, &p.StartDate, &p.EndDate)
	if err != nil && err != sql.ErrNoRows {
		log.Printf("GetPreferences: ошибка чтения настроек '%s': %v", username, err)
	}
	return p
}
