// Файл: internal/api/calculation_handlers.go
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"smartfleet/internal/calc"
	"smartfleet/internal/constants"
	"smartfleet/internal/fleetapi"
	"smartfleet/internal/models"
	"smartfleet/internal/reports"
	"smartfleet/internal/utils"
)

// OwnerCalculations возвращает список расчётов по поиску и периоду.
// Ответ кэшируется с тегом owner-calculation.
func (d *Deps) OwnerCalculations(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	q := fleetapi.OwnerCalculationQuery{
		Search:    r.URL.Query().Get("search"),
		StartDate: utils.NormalizeDate(r.URL.Query().Get("start_date")),
		EndDate:   utils.NormalizeDate(r.URL.Query().Get("end_date")),
	}
	if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		q.Page = page
	}
	if size, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil {
		q.PageSize = size
	}

	cacheKey := fmt.Sprintf("owner-calcs:%s:%s:%s:%d:%d", q.Search, q.StartDate, q.EndDate, q.Page, q.PageSize)
	if cached, ok := d.Cache.Get(cacheKey); ok {
		writeJSONSuccess(w, "", cached)
		return
	}

	calcs, err := d.Fleet.OwnerCalculations(r.Context(), sess.Token, q)
	if err != nil {
		writeAPIError(w, err, "Failed to load calculations.")
		return
	}

	d.Cache.Set(cacheKey, calcs, constants.CACHE_TTL_DEFAULT, constants.CACHE_TAG_OWNER_CALCULATION)
	writeJSONSuccess(w, "", calcs)
}

// DeleteOwnerCalculation удаляет расчёт целиком.
func (d *Deps) DeleteOwnerCalculation(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	calcID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid calculation id.")
		return
	}

	if err := d.Fleet.DeleteOwnerCalculation(r.Context(), sess.Token, calcID); err != nil {
		writeAPIError(w, err, "Failed to delete calculation.")
		return
	}
	d.Cache.Invalidate(constants.CACHE_TAG_OWNER_CALCULATION)
	writeJSONSuccess(w, "Calculation deleted", nil)
}

// CalculationView - развёрнутый расчёт для экрана просмотра: строки по
// грузовикам, вычеты недели и итоговые суммы.
type CalculationView struct {
	Calculation models.OwnerCalculation  `json:"calculation"`
	Groups      []calc.TruckGroup        `json:"groups"`
	Deductions  []models.CalculationUnit `json:"deductions"`
	TotalAmount string                   `json:"total_amount"`
	TotalEscrow string                   `json:"total_escrow"`
}

// ViewOwnerCalculation собирает расчёт для просмотра: сам расчёт, все
// расчёты владельца (для привязки вычетов к неделям) и отдельно загруженные
// юниты владельца.
func (d *Deps) ViewOwnerCalculation(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	calcID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid calculation id.")
		return
	}
	owner := r.URL.Query().Get("owner")

	viewed, ownerCalcs, units, err := d.loadViewData(r.Context(), sess.Token, calcID, owner)
	if err != nil {
		writeAPIError(w, err, "Failed to load calculation.")
		return
	}
	if viewed == nil {
		writeJSONError(w, http.StatusNotFound, "Calculation not found.")
		return
	}

	trucks, err := d.loadTrucks(r.Context(), sess.Token)
	if err != nil {
		writeAPIError(w, err, "Failed to load trucks.")
		return
	}

	deductions := calc.CollectDeductions(*viewed, ownerCalcs, units)
	rows := append(append([]models.CalculationUnit{}, viewed.AllUnits()...), deductions...)
	totalAmount, totalEscrow := calc.Totals(dedupeUnits(rows))

	writeJSONSuccess(w, "", CalculationView{
		Calculation: *viewed,
		Groups:      calc.GroupByTruck(viewed.AllUnits(), trucks),
		Deductions:  deductions,
		TotalAmount: totalAmount,
		TotalEscrow: totalEscrow,
	})
}

// loadViewData загружает данные для экрана просмотра: расчёты владельца
// и его отдельные юниты. Владелец берётся из query, а если не передан,
// из самого расчёта.
func (d *Deps) loadViewData(ctx context.Context, token string, calcID int64, owner string) (*models.OwnerCalculation, []models.OwnerCalculation, []models.CalculationUnit, error) {
	query := fleetapi.OwnerCalculationQuery{Search: owner}
	ownerCalcs, err := d.Fleet.OwnerCalculations(ctx, token, query)
	if err != nil {
		return nil, nil, nil, err
	}

	var viewed *models.OwnerCalculation
	for i := range ownerCalcs {
		if ownerCalcs[i].ID.Int64() == calcID {
			viewed = &ownerCalcs[i]
			break
		}
	}
	if viewed == nil {
		return nil, ownerCalcs, nil, nil
	}

	if owner == "" {
		owner = viewed.Owner.Name
	}
	units, err := d.Fleet.CalculationUnits(ctx, token, owner)
	if err != nil {
		// Вычеты без отдельного списка юнитов всё равно можно показать
		// из вложенных в расчёт.
		units = nil
	}
	return viewed, ownerCalcs, units, nil
}

// dedupeUnits убирает дубликаты юнитов по id (юнит может прийти и в
// составе расчёта, и в отдельном списке).
func dedupeUnits(units []models.CalculationUnit) []models.CalculationUnit {
	seen := make(map[int64]bool, len(units))
	out := make([]models.CalculationUnit, 0, len(units))
	for _, u := range units {
		id := u.ID.Int64()
		if id != 0 {
			if seen[id] {
				continue
			}
			seen[id] = true
		}
		out = append(out, u)
	}
	return out
}

// ExportCalculation отдаёт xlsx-выгрузку расчёта.
func (d *Deps) ExportCalculation(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	calcID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid calculation id.")
		return
	}
	owner := r.URL.Query().Get("owner")

	viewed, _, _, err := d.loadViewData(r.Context(), sess.Token, calcID, owner)
	if err != nil {
		writeAPIError(w, err, "Failed to load calculation.")
		return
	}
	if viewed == nil {
		writeJSONError(w, http.StatusNotFound, "Calculation not found.")
		return
	}

	trucks, err := d.loadTrucks(r.Context(), sess.Token)
	if err != nil {
		writeAPIError(w, err, "Failed to load trucks.")
		return
	}

	content, err := reports.CalculationExcel(*viewed, trucks)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Failed to generate Excel file.")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", reports.CalculationFileName(*viewed)))
	w.Write(content)
}

// --- Вычеты / Deductions ---

// Deductions возвращает отдельные юниты владельца (среди них вычеты).
func (d *Deps) Deductions(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		writeJSONError(w, http.StatusBadRequest, "Owner is required.")
		return
	}

	cacheKey := "units:" + owner
	if cached, ok := d.Cache.Get(cacheKey); ok {
		writeJSONSuccess(w, "", cached)
		return
	}

	units, err := d.Fleet.CalculationUnits(r.Context(), sess.Token, owner)
	if err != nil {
		writeAPIError(w, err, "Failed to load deductions.")
		return
	}

	d.Cache.Set(cacheKey, units, constants.CACHE_TTL_DEFAULT, constants.CACHE_TAG_STATEMENT, constants.CACHE_TAG_OWNER_CALCULATION)
	writeJSONSuccess(w, "", units)
}

// DeductionRequest - тело запроса на создание или правку вычета.
// StatementID приходит из автозаполнения по грузовику (ResolveDeduction).
type DeductionRequest struct {
	OwnerID     int64  `json:"owner_id"`
	Driver      string `json:"driver"`
	Amount      string `json:"amount"`
	Escrow      string `json:"escrow"`
	Note        string `json:"note"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	TruckID     int64  `json:"truck_id"`
	StatementID int64  `json:"statement_id"`
}

// buildDeductionPayload валидирует запрос и собирает исходящую форму.
// Statement заполняется, только если стейтмент водителя за период нашёлся.
func buildDeductionPayload(req DeductionRequest) (fleetapi.DeductionPayload, error) {
	var p fleetapi.DeductionPayload
	if req.OwnerID == 0 {
		return p, calc.ValidationError("Owner is required.")
	}
	if req.Driver == "" {
		return p, calc.ValidationError("Driver name is required.")
	}
	amount := utils.CleanAmountOrZero(req.Amount)
	if amount.IsZero() {
		return p, calc.ValidationError("Amount is required and cannot be 0.")
	}

	start := utils.NormalizeDate(req.StartDate)
	if start == "" {
		return p, calc.ValidationError("Start date is required.")
	}
	end := utils.NormalizeDate(req.EndDate)
	if end == "" {
		end = utils.DefaultPeriodEnd(start)
	}
	if _, _, err := utils.ValidatePeriod(start, end); err != nil {
		return p, calc.ValidationError("Please select a valid date range.")
	}

	amountF, _ := amount.Float64()
	escrowF, _ := utils.CleanAmountOrZero(req.Escrow).Float64()
	return fleetapi.DeductionPayload{
		Owner:     req.OwnerID,
		Driver:    req.Driver,
		Amount:    amountF,
		Escrow:    escrowF,
		Note:      req.Note,
		StartDate: start,
		EndDate:   end,
		Truck:     req.TruckID,
		Statement: req.StatementID,
	}, nil
}

// DeductionPrefill - автозаполнение формы вычета по выбранному грузовику:
// имя водителя и, если стейтмент за период нашёлся, суммы и его id.
type DeductionPrefill struct {
	Driver      string `json:"driver"`
	Amount      string `json:"amount,omitempty"`
	Escrow      string `json:"escrow,omitempty"`
	StatementID int64  `json:"statement_id,omitempty"`
}

// resolveDeductionStatement ищет стейтмент первого водителя грузовика за
// указанный период. Отсутствие водителя или стейтмента не ошибка: форма
// остаётся на ручном заполнении.
func (d *Deps) resolveDeductionStatement(ctx context.Context, token string, truckID int64, start, end string) (DeductionPrefill, error) {
	var prefill DeductionPrefill

	trucks, err := d.loadTrucks(ctx, token)
	if err != nil {
		return prefill, err
	}

	var truck *models.Truck
	for i := range trucks {
		if trucks[i].TruckID() == truckID {
			truck = &trucks[i]
			break
		}
	}
	if truck == nil {
		return prefill, calc.ValidationError("Unknown truck.")
	}

	drivers := truck.Drivers()
	if len(drivers) == 0 {
		return prefill, nil
	}
	driver := drivers[0]
	prefill.Driver = driver.FullName

	stmt, err := d.Fleet.StatementByDriver(ctx, token, driver.ID.Int64(), start, end)
	if err != nil {
		log.Printf("Handlers.resolveDeductionStatement: стейтмент водителя %d не загружен: %v", driver.ID.Int64(), err)
		return prefill, nil
	}
	if stmt != nil {
		prefill.Amount = utils.FormatMoney(utils.CleanAmountOrZero(stmt.ResolveAmount().String()))
		prefill.Escrow = utils.FormatMoney(utils.CleanAmountOrZero(stmt.ResolveEscrow().String()))
		prefill.StatementID = stmt.ResolveStatementID()
		if name := stmt.ResolveDriverName(); name != "" {
			prefill.Driver = name
		}
	}
	return prefill, nil
}

// ResolveDeduction автозаполняет форму вычета по выбранному грузовику.
func (d *Deps) ResolveDeduction(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	q := r.URL.Query()

	truckID, err := strconv.ParseInt(q.Get("truck_id"), 10, 64)
	if err != nil || truckID == 0 {
		writeJSONError(w, http.StatusBadRequest, "Truck is required.")
		return
	}
	start := utils.NormalizeDate(q.Get("start_date"))
	if start == "" {
		writeJSONError(w, http.StatusBadRequest, "Start date is required.")
		return
	}
	end := utils.NormalizeDate(q.Get("end_date"))
	if end == "" {
		end = utils.DefaultPeriodEnd(start)
	}

	prefill, err := d.resolveDeductionStatement(r.Context(), sess.Token, truckID, start, end)
	if err != nil {
		writeAPIError(w, err, "Failed to resolve driver statement.")
		return
	}
	writeJSONSuccess(w, "", prefill)
}

// CreateDeduction создаёт вычет.
func (d *Deps) CreateDeduction(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	var req DeductionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	payload, err := buildDeductionPayload(req)
	if err != nil {
		writeAPIError(w, err, "Invalid deduction.")
		return
	}

	// Если грузовик выбран, а стейтмент клиент не разрешил, пробуем
	// привязать его здесь. Неудача не мешает созданию вычета.
	if payload.Statement == 0 && req.TruckID != 0 {
		if prefill, rerr := d.resolveDeductionStatement(r.Context(), sess.Token, req.TruckID, payload.StartDate, payload.EndDate); rerr == nil {
			payload.Statement = prefill.StatementID
		}
	}

	unit, err := d.Fleet.CreateCalculationUnit(r.Context(), sess.Token, payload)
	if err != nil {
		writeAPIError(w, err, "Failed to create deduction.")
		return
	}

	d.Cache.Invalidate(constants.CACHE_TAG_STATEMENT, constants.CACHE_TAG_OWNER_CALCULATION)
	d.Notifier.DeductionSaved(sess.User.Username, payload.Driver, utils.FormatMoney(utils.CleanAmountOrZero(req.Amount)), true)
	writeJSONSuccess(w, "Deduction added", unit)
}

// UpdateDeduction правит существующий вычет.
func (d *Deps) UpdateDeduction(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	unitID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid deduction id.")
		return
	}
	var req DeductionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	payload, err := buildDeductionPayload(req)
	if err != nil {
		writeAPIError(w, err, "Invalid deduction.")
		return
	}

	unit, err := d.Fleet.UpdateCalculationUnit(r.Context(), sess.Token, unitID, payload)
	if err != nil {
		writeAPIError(w, err, "Failed to update deduction.")
		return
	}

	d.Cache.Invalidate(constants.CACHE_TAG_STATEMENT, constants.CACHE_TAG_OWNER_CALCULATION)
	d.Notifier.DeductionSaved(sess.User.Username, payload.Driver, utils.FormatMoney(utils.CleanAmountOrZero(req.Amount)), false)
	writeJSONSuccess(w, "Deduction updated", unit)
}

// DeleteDeduction удаляет вычет.
func (d *Deps) DeleteDeduction(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	unitID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid deduction id.")
		return
	}

	if err := d.Fleet.DeleteCalculationUnit(r.Context(), sess.Token, unitID); err != nil {
		writeAPIError(w, err, "Failed to delete deduction.")
		return
	}

	d.Cache.Invalidate(constants.CACHE_TAG_STATEMENT, constants.CACHE_TAG_OWNER_CALCULATION)
	writeJSONSuccess(w, "Deduction deleted", nil)
}
