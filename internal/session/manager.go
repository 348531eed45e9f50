package session

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"smartfleet/internal/calc"
	"smartfleet/internal/constants"
	"smartfleet/internal/models"
)

// Session - авторизованная сессия сотрудника. Хранит токены бэкенда и
// профиль, выданные эндпоинтом /token/. Значение неизменяемо после выдачи,
// менеджер заменяет его целиком.
// Session is an authenticated staff session holding the upstream tokens
// and profile. The value is immutable once issued.
type Session struct {
	ID        string      // собственный bearer-токен дашборда (uuid)
	Token     string      // access-токен бэкенда
	Refresh   string      // refresh-токен бэкенда, если выдан
	User      models.User // профиль сотрудника
	Remember  bool        // длинный срок жизни ("remember me")
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired сообщает, истекла ли сессия.
func (s Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Manager управляет сессиями и черновиками расчётов в памяти.
// Manager keeps sessions and calculation drafts in memory.
type Manager struct {
	sessions      map[string]Session // Ключ: id сессии (наш bearer-токен)
	sessionsMutex sync.RWMutex

	drafts      map[string]calc.Draft // Ключ: id сессии
	draftsMutex sync.RWMutex
}

// NewManager создает и возвращает новый экземпляр Manager.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]Session),
		drafts:   make(map[string]calc.Draft),
	}
}

// --- Сессии / Sessions ---

// Create выдаёт новую сессию для пары токенов бэкенда.
// remember продлевает срок жизни с 12 часов до 30 дней.
func (m *Manager) Create(token, refresh string, user models.User, remember bool) Session {
	ttl := constants.SESSION_TTL
	if remember {
		ttl = constants.SESSION_REMEMBER_TTL
	}
	now := time.Now()
	sess := Session{
		ID:        uuid.NewString(),
		Token:     token,
		Refresh:   refresh,
		User:      user,
		Remember:  remember,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	m.sessionsMutex.Lock()
	m.sessions[sess.ID] = sess
	m.sessionsMutex.Unlock()

	log.Printf("SessionManager.Create: выдана сессия для пользователя '%s' (remember=%v).", user.Username, remember)
	return sess
}

// Restore кладёт в менеджер сессию, восстановленную из базы после
// рестарта. Истекшие сессии игнорируются.
func (m *Manager) Restore(sess Session) {
	if sess.ID == "" || sess.Expired() {
		return
	}
	m.sessionsMutex.Lock()
	m.sessions[sess.ID] = sess
	m.sessionsMutex.Unlock()
}

// Get возвращает сессию по id. Истекшая сессия считается отсутствующей
// и удаляется.
func (m *Manager) Get(sessionID string) (Session, bool) {
	m.sessionsMutex.RLock()
	sess, ok := m.sessions[sessionID]
	m.sessionsMutex.RUnlock()
	if !ok {
		return Session{}, false
	}
	if sess.Expired() {
		m.Revoke(sessionID)
		return Session{}, false
	}
	return sess, true
}

// Revoke удаляет сессию и её черновик.
func (m *Manager) Revoke(sessionID string) {
	m.sessionsMutex.Lock()
	delete(m.sessions, sessionID)
	m.sessionsMutex.Unlock()

	m.draftsMutex.Lock()
	delete(m.drafts, sessionID)
	m.draftsMutex.Unlock()
}

// RevokeByUpstreamToken удаляет все сессии с данным access-токеном бэкенда.
// Вызывается, когда бэкенд ответил 401: токен мёртв, держать сессии на нём
// бессмысленно.
func (m *Manager) RevokeByUpstreamToken(token string) int {
	if token == "" {
		return 0
	}

	m.sessionsMutex.Lock()
	var dead []string
	for id, sess := range m.sessions {
		if sess.Token == token {
			dead = append(dead, id)
			delete(m.sessions, id)
		}
	}
	m.sessionsMutex.Unlock()

	if len(dead) > 0 {
		m.draftsMutex.Lock()
		for _, id := range dead {
			delete(m.drafts, id)
		}
		m.draftsMutex.Unlock()
		log.Printf("SessionManager.RevokeByUpstreamToken: отозвано %d сессий по мёртвому токену бэкенда.", len(dead))
	}
	return len(dead)
}

// CleanExpired убирает истекшие сессии вместе с их черновиками.
// Запускается периодически из main.
func (m *Manager) CleanExpired() int {
	m.sessionsMutex.Lock()
	var dead []string
	for id, sess := range m.sessions {
		if sess.Expired() {
			dead = append(dead, id)
			delete(m.sessions, id)
		}
	}
	m.sessionsMutex.Unlock()

	if len(dead) > 0 {
		m.draftsMutex.Lock()
		for _, id := range dead {
			delete(m.drafts, id)
		}
		m.draftsMutex.Unlock()
	}
	return len(dead)
}

// Count возвращает число живых сессий (для логов).
func (m *Manager) Count() int {
	m.sessionsMutex.RLock()
	defer m.sessionsMutex.RUnlock()
	return len(m.sessions)
}

// --- Черновики расчётов / Calculation drafts ---

// GetDraft возвращает копию черновика сессии (пустой черновик, если его
// ещё нет). Изменённый черновик сохраняется через UpdateDraft.
func (m *Manager) GetDraft(sessionID string) calc.Draft {
	m.draftsMutex.RLock()
	defer m.draftsMutex.RUnlock()
	return m.drafts[sessionID]
}

// UpdateDraft сохраняет черновик сессии.
func (m *Manager) UpdateDraft(sessionID string, draft calc.Draft) {
	m.draftsMutex.Lock()
	m.drafts[sessionID] = draft
	m.draftsMutex.Unlock()
}

// ClearDraft сбрасывает черновик сессии после успешной отправки.
func (m *Manager) ClearDraft(sessionID string) {
	m.draftsMutex.Lock()
	delete(m.drafts, sessionID)
	m.draftsMutex.Unlock()
}
