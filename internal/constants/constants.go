package constants

import "time"

// Статусы строки расчёта (юнита) в черновике.
// Draft calculation unit statuses.
const (
	UNIT_STATUS_LOADING = "loading" // Стейтменты водителей ещё загружаются / Driver statements are still being fetched
	UNIT_STATUS_FETCHED = "fetched" // Данные подтянуты из стейтмента / Data populated from a statement
	UNIT_STATUS_MANUAL  = "manual"  // Водителя нет или стейтмент не найден, поля заполняются вручную / No driver or no statement, fields are filled by hand
)

// Теги кэша запросов. Мутации инвалидируют теги, читающие стороны перезагружают данные.
// Query cache tags. Mutations invalidate tags, readers refetch.
const (
	CACHE_TAG_OWNER             = "owner"
	CACHE_TAG_OWNER_CALCULATION = "owner-calculation"
	CACHE_TAG_TRUCKS            = "trucks"
	CACHE_TAG_STATEMENT         = "statement"
)

// Время жизни записей кэша справочников и списков.
const (
	CACHE_TTL_TRUCKS  = 5 * time.Minute
	CACHE_TTL_DEFAULT = 2 * time.Minute
)

// Отделы пользователей, приходящие из /token/.
// User departments as returned by /token/.
const (
	DEPARTMENT_ACCOUNTING = "accounting"
	DEPARTMENT_OWNER      = "owner"
)

// Недельный период: конец периода по умолчанию = начало + 6 дней (включительно).
// Weekly period: default end = start + 6 days (inclusive).
const PERIOD_DAYS = 6

// Формат дат на проводе. Всё, что приходит с временем суток, нормализуется к нему.
const DATE_FORMAT = "2006-01-02"

// Параметры HTTP-сессий дашборда.
const (
	SESSION_TTL            = 12 * time.Hour
	SESSION_REMEMBER_TTL   = 30 * 24 * time.Hour
	SESSION_CLEANUP_PERIOD = 1 * time.Hour
)
