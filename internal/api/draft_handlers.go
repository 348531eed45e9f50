// Файл: internal/api/draft_handlers.go
package api

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"smartfleet/internal/calc"
	"smartfleet/internal/constants"
	"smartfleet/internal/db"
	"smartfleet/internal/models"
	"smartfleet/internal/utils"
)

// GetDraft возвращает текущий черновик расчёта сессии.
func (d *Deps) GetDraft(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	writeJSONSuccess(w, "", d.Sessions.GetDraft(sess.ID))
}

// ResetDraft полностью сбрасывает черновик.
func (d *Deps) ResetDraft(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	d.Sessions.ClearDraft(sess.ID)
	writeJSONSuccess(w, "Draft cleared", nil)
}

// DraftOwnerRequest - тело запроса на выбор владельца черновика.
type DraftOwnerRequest struct {
	Owner string `json:"owner"`
}

// SetDraftOwner выбирает владельца черновика. Смена владельца очищает
// уже добавленные юниты.
func (d *Deps) SetDraftOwner(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	var req DraftOwnerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	draft := d.Sessions.GetDraft(sess.ID)
	draft.SetOwner(req.Owner)
	d.Sessions.UpdateDraft(sess.ID, draft)
	writeJSONSuccess(w, "Owner selected", draft)
}

// DraftPeriodRequest - тело запроса на установку периода черновика.
type DraftPeriodRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// SetDraftPeriod задаёт недельный период черновика. Пустой конец периода
// достраивается как начало + 6 дней.
func (d *Deps) SetDraftPeriod(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	var req DraftPeriodRequest
	if !decodeBody(w, r, &req) {
		return
	}

	draft := d.Sessions.GetDraft(sess.ID)
	if err := draft.SetPeriod(req.StartDate, req.EndDate); err != nil {
		writeAPIError(w, err, "Invalid period.")
		return
	}
	d.Sessions.UpdateDraft(sess.ID, draft)
	writeJSONSuccess(w, "Period set", draft)
}

// DraftUnitRequest - тело запроса на добавление грузовика в черновик.
type DraftUnitRequest struct {
	TruckID int64 `json:"truck_id"`
}

// AddDraftUnit добавляет грузовик в черновик и подтягивает стейтменты его
// водителей за период черновика. Стейтменты грузятся параллельно; отказ по
// одному водителю деградирует его вклад до нуля, а не валит юнит целиком.
func (d *Deps) AddDraftUnit(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	var req DraftUnitRequest
	if !decodeBody(w, r, &req) {
		return
	}

	trucks, err := d.loadTrucks(r.Context(), sess.Token)
	if err != nil {
		writeAPIError(w, err, "Failed to load trucks.")
		return
	}

	var truck *models.Truck
	for i := range trucks {
		if trucks[i].TruckID() == req.TruckID {
			truck = &trucks[i]
			break
		}
	}
	if truck == nil {
		writeJSONError(w, http.StatusNotFound, "Truck not found.")
		return
	}

	draft := d.Sessions.GetDraft(sess.ID)
	unit, err := draft.AddUnit(*truck)
	if err != nil {
		writeAPIError(w, err, "Failed to add unit.")
		return
	}

	results := d.fetchStatements(r.Context(), sess.Token, truck.Drivers(), draft.StartDate, draft.EndDate)
	draft.ApplyStatementResults(unit.TruckID, results)
	d.Sessions.UpdateDraft(sess.ID, draft)

	writeJSONSuccess(w, "Unit added", draft.Unit(req.TruckID))
}

// fetchStatements параллельно загружает стейтменты всех водителей грузовика.
// Результаты возвращаются в порядке водителей.
func (d *Deps) fetchStatements(ctx context.Context, token string, drivers []models.Driver, startDate, endDate string) []calc.StatementResult {
	results := make([]calc.StatementResult, len(drivers))
	var wg sync.WaitGroup
	for i, drv := range drivers {
		wg.Add(1)
		go func(i int, drv models.Driver) {
			defer wg.Done()
			stmt, err := d.Fleet.StatementByDriver(ctx, token, drv.ID.Int64(), startDate, endDate)
			if err != nil {
				log.Printf("fetchStatements: стейтмент водителя %d не загружен: %v", drv.ID.Int64(), err)
			}
			results[i] = calc.StatementResult{Driver: drv, Statement: stmt, Err: err}
		}(i, drv)
	}
	wg.Wait()
	return results
}

// loadTrucks возвращает справочник грузовиков через кэш.
func (d *Deps) loadTrucks(ctx context.Context, token string) ([]models.Truck, error) {
	cacheKey := "trucks:" + token
	if cached, ok := d.Cache.Get(cacheKey); ok {
		if trucks, ok := cached.([]models.Truck); ok {
			return trucks, nil
		}
	}
	trucks, err := d.Fleet.AllTrucks(ctx, token)
	if err != nil {
		return nil, err
	}
	d.Cache.Set(cacheKey, trucks, constants.CACHE_TTL_TRUCKS, constants.CACHE_TAG_TRUCKS)
	return trucks, nil
}

// DraftFieldRequest - тело запроса на правку поля юнита.
type DraftFieldRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// UpdateDraftUnit правит одно поле юнита черновика.
func (d *Deps) UpdateDraftUnit(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	truckID, err := strconv.ParseInt(chi.URLParam(r, "truckID"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid truck id.")
		return
	}
	var req DraftFieldRequest
	if !decodeBody(w, r, &req) {
		return
	}

	draft := d.Sessions.GetDraft(sess.ID)
	if err := draft.UpdateUnitField(truckID, req.Field, req.Value); err != nil {
		writeAPIError(w, err, "Failed to update unit.")
		return
	}
	d.Sessions.UpdateDraft(sess.ID, draft)
	writeJSONSuccess(w, "Unit updated", draft.Unit(truckID))
}

// RemoveDraftUnit убирает юнит из черновика.
func (d *Deps) RemoveDraftUnit(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	truckID, err := strconv.ParseInt(chi.URLParam(r, "truckID"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid truck id.")
		return
	}

	draft := d.Sessions.GetDraft(sess.ID)
	if !draft.RemoveUnit(truckID) {
		writeJSONError(w, http.StatusNotFound, "Unit not found in draft.")
		return
	}
	d.Sessions.UpdateDraft(sess.ID, draft)
	writeJSONSuccess(w, "Unit removed", draft)
}

// SubmitDraft отправляет черновик на бэкенд по схеме create-or-merge.
// После успеха черновик очищается, кэш расчётов инвалидируется, в чат
// бухгалтерии уходит уведомление.
func (d *Deps) SubmitDraft(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	draft := d.Sessions.GetDraft(sess.ID)

	trucks, err := d.loadTrucks(r.Context(), sess.Token)
	if err != nil {
		writeAPIError(w, err, "Failed to load trucks.")
		return
	}

	result, err := d.Reconciler.Submit(r.Context(), sess.Token, &draft, trucks)
	if err != nil {
		writeAPIError(w, err, "Failed to save calculation.")
		return
	}

	d.Sessions.ClearDraft(sess.ID)
	d.Cache.Invalidate(constants.CACHE_TAG_OWNER_CALCULATION, constants.CACHE_TAG_OWNER)
	db.SavePreferences(sess.User.Username, db.Preferences{
		SelectedOwner: draft.Owner,
		StartDate:     utils.NormalizeDate(draft.StartDate),
		EndDate:       utils.NormalizeDate(draft.EndDate),
	})
	d.Notifier.CalculationSaved(sess.User.Username, draft.Owner, draft.StartDate, draft.EndDate, result.Added, result.Created)

	writeJSONSuccess(w, result.Message, result)
}
