package calc

import (
	"context"
	"fmt"
	"log"
	"strings"

	"smartfleet/internal/fleetapi"
	"smartfleet/internal/models"
	"smartfleet/internal/utils"
)

// CalculationAPI - срез клиента бэкенда, который нужен сверке.
// Интерфейс позволяет подставить заглушку в тестах.
type CalculationAPI interface {
	OwnerCalculations(ctx context.Context, token string, q fleetapi.OwnerCalculationQuery) ([]models.OwnerCalculation, error)
	CreateOwnerCalculation(ctx context.Context, token string, payload fleetapi.CalculationPayload) (*models.OwnerCalculation, error)
	UpdateOwnerCalculation(ctx context.Context, token string, calcID int64, payload fleetapi.CalculationPayload) (*models.OwnerCalculation, error)
}

// Reconciler отправляет черновик на бэкенд по схеме create-or-merge:
// если расчёт на этого владельца и этот период уже существует, новые юниты
// доливаются в него, иначе создаётся новый расчёт. Дубликаты по грузовику
// не создаются, существующие юниты всегда побеждают.
type Reconciler struct {
	API CalculationAPI
}

// NewReconciler создаёт Reconciler поверх клиента бэкенда.
func NewReconciler(api CalculationAPI) *Reconciler {
	return &Reconciler{API: api}
}

// SubmitResult - итог отправки черновика.
type SubmitResult struct {
	Calculation *models.OwnerCalculation `json:"calculation,omitempty"`
	Created     bool                     `json:"created"`
	Added       int                      `json:"added"`
	Message     string                   `json:"message"`
}

// FindExisting ищет существующий расчёт владельца за точный период.
// Совпадение строгое: имя владельца целиком (или его числовой id) и
// нормализованные даты символ в символ. Ошибки поиска не фатальны,
// отсутствие расчёта - штатный ответ.
func (r *Reconciler) FindExisting(ctx context.Context, token, owner, startDate, endDate string) *models.OwnerCalculation {
	start := utils.NormalizeDate(startDate)
	end := utils.NormalizeDate(endDate)

	calcs, err := r.API.OwnerCalculations(ctx, token, fleetapi.OwnerCalculationQuery{
		Search:    owner,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		log.Printf("Reconciler.FindExisting: поиск расчёта не удался: %v", err)
		return nil
	}

	for i := range calcs {
		c := &calcs[i]
		if !c.MatchesOwner(owner) {
			continue
		}
		if utils.NormalizeDate(c.StartDate) == start && utils.NormalizeDate(c.EndDate) == end {
			return c
		}
	}
	return nil
}

// BuildUnitPayloads переводит юниты черновика в исходящую форму.
// Суммы очищаются от форматирования и уходят строками с двумя знаками,
// юниты без грузовика из справочника пропускаются.
func BuildUnitPayloads(draft *Draft, trucks []models.Truck) []fleetapi.UnitPayload {
	byID := make(map[int64]models.Truck, len(trucks))
	for _, t := range trucks {
		byID[t.TruckID()] = t
	}

	payloads := make([]fleetapi.UnitPayload, 0, len(draft.Units))
	for _, u := range draft.Units {
		if _, ok := byID[u.TruckID]; !ok {
			log.Printf("Reconciler.BuildUnitPayloads: грузовик %d не найден в справочнике, юнит пропущен", u.TruckID)
			continue
		}
		p := fleetapi.UnitPayload{
			Truck:     u.TruckID,
			Amount:    utils.FormatMoney(utils.CleanAmountOrZero(u.Amount)),
			Escrow:    utils.FormatMoney(utils.CleanAmountOrZero(u.Escrow)),
			Driver:    strings.TrimSpace(u.DriverName),
			DriverID:  u.DriverID,
			Statement: u.StatementID,
			Note:      strings.TrimSpace(u.Note),
		}
		payloads = append(payloads, p)
	}
	return payloads
}

// FormatExistingUnits переводит юниты существующего расчёта обратно в
// исходящую форму для PATCH. Суммы сохраняются как есть, пустые
// становятся "0.00".
func FormatExistingUnits(units []models.CalculationUnit) []fleetapi.UnitPayload {
	payloads := make([]fleetapi.UnitPayload, 0, len(units))
	for _, u := range units {
		p := fleetapi.UnitPayload{
			Truck:     u.TruckRef(),
			Amount:    u.Amount.String(),
			Escrow:    u.Escrow.String(),
			DriverID:  u.DriverID.Int64(),
			Statement: u.StatementRefID(),
			Note:      u.Note,
		}
		if p.Amount == "" {
			p.Amount = "0.00"
		}
		if p.Escrow == "" {
			p.Escrow = "0.00"
		}
		if name := strings.TrimSpace(u.Driver); name != "" {
			p.Driver = name
		}
		payloads = append(payloads, p)
	}
	return payloads
}

// FilterNewUnits отбрасывает из входящих юнитов те, чей грузовик уже
// присутствует в существующем расчёте. Существующий юнит всегда побеждает.
func FilterNewUnits(existing []models.CalculationUnit, incoming []fleetapi.UnitPayload) []fleetapi.UnitPayload {
	taken := make(map[int64]bool, len(existing))
	for _, u := range existing {
		if id := u.TruckRef(); id != 0 {
			taken[id] = true
		}
	}

	fresh := make([]fleetapi.UnitPayload, 0, len(incoming))
	for _, p := range incoming {
		if taken[p.Truck] {
			continue
		}
		fresh = append(fresh, p)
	}
	return fresh
}

// Submit проводит полный цикл отправки черновика:
//  1. валидация и сборка исходящих юнитов;
//  2. поиск существующего расчёта за тот же период;
//  3. найден - PATCH со слитым списком (существующие юниты + новые);
//  4. не найден - POST; если POST отбит конфликтом "already exists",
//     расчёт перечитывается и слитый список уходит POST-ом на коллекцию
//     (бэкенд принимает такую форму как догрузку).
func (r *Reconciler) Submit(ctx context.Context, token string, draft *Draft, trucks []models.Truck) (*SubmitResult, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	incoming := BuildUnitPayloads(draft, trucks)
	if len(incoming) == 0 {
		return nil, ValidationError("No valid units to save.")
	}

	payload := fleetapi.CalculationPayload{
		Owner:     draft.Owner,
		StartDate: utils.NormalizeDate(draft.StartDate),
		EndDate:   utils.NormalizeDate(draft.EndDate),
		Units:     incoming,
	}

	if existing := r.FindExisting(ctx, token, draft.Owner, draft.StartDate, draft.EndDate); existing != nil {
		return r.mergeInto(ctx, token, existing, payload)
	}

	created, err := r.API.CreateOwnerCalculation(ctx, token, payload)
	if err == nil {
		return &SubmitResult{
			Calculation: created,
			Created:     true,
			Added:       len(incoming),
			Message:     "Calculation created successfully!",
		}, nil
	}

	if fleetapi.ClassifyError(err) != fleetapi.ErrKindConflict {
		return nil, err
	}

	// Создание отбито конфликтом: кто-то успел сохранить расчёт между
	// нашим поиском и POST-ом. Перечитываем и доливаем новые юниты.
	log.Printf("Reconciler.Submit: расчёт уже существует, переключаемся на догрузку: %v", err)
	existing := r.FindExisting(ctx, token, draft.Owner, draft.StartDate, draft.EndDate)
	if existing == nil {
		return nil, err
	}

	fresh := FilterNewUnits(existing.AllUnits(), incoming)
	if len(fresh) == 0 {
		return nil, ValidationError("All units already exist in this calculation. Nothing to add.")
	}

	merged := payload
	merged.Units = append(FormatExistingUnits(existing.AllUnits()), fresh...)
	updated, err := r.API.CreateOwnerCalculation(ctx, token, merged)
	if err != nil {
		return nil, err
	}
	return &SubmitResult{
		Calculation: updated,
		Created:     false,
		Added:       len(fresh),
		Message:     fmt.Sprintf("Calculation updated! Added %d new unit(s) in batch.", len(fresh)),
	}, nil
}

// mergeInto доливает новые юниты в найденный расчёт через PATCH ресурса.
func (r *Reconciler) mergeInto(ctx context.Context, token string, existing *models.OwnerCalculation, payload fleetapi.CalculationPayload) (*SubmitResult, error) {
	fresh := FilterNewUnits(existing.AllUnits(), payload.Units)
	if len(fresh) == 0 {
		return nil, ValidationError("All units already exist in this calculation. Nothing to add.")
	}

	merged := payload
	merged.Units = append(FormatExistingUnits(existing.AllUnits()), fresh...)
	updated, err := r.API.UpdateOwnerCalculation(ctx, token, existing.ID.Int64(), merged)
	if err != nil {
		return nil, err
	}
	return &SubmitResult{
		Calculation: updated,
		Created:     false,
		Added:       len(fresh),
		Message:     fmt.Sprintf("Calculation updated! Added %d new unit(s).", len(fresh)),
	}, nil
}
