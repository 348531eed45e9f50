// Файл: internal/db/session_ops.go
package db

import (
	"database/sql"
	"log"

	"smartfleet/internal/session"
)

// SaveSession сохраняет выданную сессию. Без подключённой базы - no-op:
// сессия переживёт только текущий процесс.
func SaveSession(s session.Session) {
	if !Enabled() {
		return
	}
	_, err := DB.Exec(`
        INSERT INTO sessions (id, upstream_token, refresh_token, username, department, remember, created_at, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (id) DO UPDATE SET
            upstream_token = EXCLUDED.upstream_token,
            refresh_token = EXCLUDED.refresh_token,
            expires_at = EXCLUDED.expires_at`,
		s.ID, s.Token, sql.NullString{String: s.Refresh, Valid: s.Refresh != ""},
		s.User.Username, s.User.Department, s.Remember, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		log.Printf("SaveSession: ошибка сохранения сессии '%s': %v", s.ID, err)
	}
}

// DeleteSession удаляет сессию по id.
func DeleteSession(sessionID string) {
	if !Enabled() {
		return
	}
	if _, err := DB.Exec("DELETE FROM sessions WHERE id = $1", sessionID); err != nil {
		log.Printf("DeleteSession: ошибка удаления сессии '%s': %v", sessionID, err)
	}
}

// DeleteSessionsByToken удаляет все сессии с данным access-токеном бэкенда.
func DeleteSessionsByToken(token string) {
	if !Enabled() || token == "" {
		return
	}
	if _, err := DB.Exec("DELETE FROM sessions WHERE upstream_token = $1", token); err != nil {
		log.Printf("DeleteSessionsByToken: ошибка удаления сессий: %v", err)
	}
}

// LoadActiveSessions возвращает неистекшие сессии для восстановления
// после рестарта. Профиль восстанавливается частично (username,
// department): полный профиль бэкенд выдаёт только при логине.
func LoadActiveSessions() ([]session.Session, error) {
	if !Enabled() {
		return nil, nil
	}

	rows, err := DB.Query(`
        SELECT id, upstream_token, COALESCE(refresh_token, ''), COALESCE(username, ''),
               COALESCE(department, ''), remember, created_at, expires_at
        FROM sessions WHERE expires_at > NOW()`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []session.Session
	for rows.Next() {
		var s session.Session
		if err := rows.Scan(&s.ID, &s.Token, &s.Refresh, &s.User.Username,
			&s.User.Department, &s.Remember, &s.CreatedAt, &s.ExpiresAt); err != nil {
			log.Printf("LoadActiveSessions: пропущена нечитаемая строка: %v", err)
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// CleanExpiredSessions убирает истекшие сессии из базы.
func CleanExpiredSessions() int {
	if !Enabled() {
		return 0
	}
	res, err := DB.Exec("DELETE FROM sessions WHERE expires_at <= NOW()")
	if err != nil {
		log.Printf("CleanExpiredSessions: ошибка очистки: %v", err)
		return 0
	}
	n, _ := res.RowsAffected()
	return int(n)
}
