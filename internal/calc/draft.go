// Пакет calc содержит чистую логику дашборда расчётов: черновик расчёта
// (машина состояний по юнитам), сверка create-or-merge с бэкендом и
// недельная выборка deductions для просмотра. Пакет не ходит в сеть сам:
// все вызовы API приходят через интерфейсы, поэтому логика тестируется
// без сервера.
package calc

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"smartfleet/internal/constants"
	"smartfleet/internal/models"
	"smartfleet/internal/utils"
)

// ValidationError - ошибка клиентской валидации. Не уходит на сервер,
// показывается пользователю как есть и блокирует отправку.
type ValidationError string

// Error реализует интерфейс error.
func (e ValidationError) Error() string { return string(e) }

// DraftDriver - вклад одного водителя в юнит черновика.
type DraftDriver struct {
	ID          int64  `json:"id"`
	FullName    string `json:"full_name"`
	Amount      string `json:"amount"`
	StatementID int64  `json:"statement_id,omitempty"`
}

// DraftUnit - строка черновика по одному грузовику.
// Статус: loading -> fetched | manual.
type DraftUnit struct {
	TruckID    int64         `json:"truck_id"`
	UnitNumber string        `json:"unit_number"`
	VIN        string        `json:"vin"`
	DriverID   int64         `json:"driver_id,omitempty"`
	DriverName string        `json:"driver_name"`
	Drivers    []DraftDriver `json:"drivers,omitempty"`

	Amount  string `json:"amount"`
	Escrow  string `json:"escrow"`
	Note    string `json:"note"`
	Company string `json:"company"`

	PDF         string `json:"pdf,omitempty"`
	StatementID int64  `json:"statement_id,omitempty"`

	Status string `json:"status"`

	// DriverNameAuto выставляется, когда имя водителя пришло из стейтмента.
	// Пока юнит в статусе fetched с автозаполненным именем, сумма закрыта
	// от ручного редактирования.
	DriverNameAuto bool `json:"driver_name_auto,omitempty"`
}

// UnitLabel возвращает имя юнита для сообщений об ошибках.
func (u DraftUnit) UnitLabel() string {
	if strings.TrimSpace(u.UnitNumber) != "" && u.UnitNumber != "N/A" {
		return u.UnitNumber
	}
	return fmt.Sprintf("%d", u.TruckID)
}

// Draft - черновик owner calculation, собираемый пользователем до отправки.
// Живёт только в памяти сессии, на сервер уходит целиком при submit.
type Draft struct {
	Owner     string      `json:"owner"`
	StartDate string      `json:"start_date"`
	EndDate   string      `json:"end_date"`
	Units     []DraftUnit `json:"units"`
}

// NewDraft создает пустой черновик.
func NewDraft() *Draft {
	return &Draft{}
}

// SetOwner выбирает владельца. Смена владельца сбрасывает уже добавленные
// юниты: черновик всегда принадлежит одному владельцу.
func (d *Draft) SetOwner(owner string) {
	if d.Owner != owner {
		d.Units = nil
	}
	d.Owner = owner
}

// SetPeriod задаёт период черновика. Даты нормализуются; пустой конец
// периода достраивается как начало + 6 дней.
func (d *Draft) SetPeriod(startDate, endDate string) error {
	start := utils.NormalizeDate(startDate)
	end := utils.NormalizeDate(endDate)
	if start != "" && end == "" {
		end = utils.DefaultPeriodEnd(start)
	}
	if start == "" && end == "" {
		d.StartDate = ""
		d.EndDate = ""
		return nil
	}
	validStart, validEnd, err := utils.ValidatePeriod(start, end)
	if err != nil {
		return ValidationError("Please select a valid date range.")
	}
	d.StartDate = validStart
	d.EndDate = validEnd
	return nil
}

// HasTruck сообщает, есть ли в черновике юнит для этого грузовика.
func (d *Draft) HasTruck(truckID int64) bool {
	for _, u := range d.Units {
		if u.TruckID == truckID {
			return true
		}
	}
	return false
}

// Unit возвращает указатель на юнит по id грузовика.
func (d *Draft) Unit(truckID int64) *DraftUnit {
	for i := range d.Units {
		if d.Units[i].TruckID == truckID {
			return &d.Units[i]
		}
	}
	return nil
}

// AddUnit добавляет грузовик в черновик. Проверяет, что владелец и период
// уже выбраны и что грузовик ещё не добавлен. Юнит создаётся в статусе
// loading; если у грузовика нет водителей, сразу переводится в manual
// (полей для автозаполнения не будет).
func (d *Draft) AddUnit(truck models.Truck) (*DraftUnit, error) {
	if d.Owner == "" {
		return nil, ValidationError("Please select an owner first.")
	}
	if d.StartDate == "" || d.EndDate == "" {
		return nil, ValidationError("Please select Start Date and End Date before adding units.")
	}

	truckID := truck.TruckID()
	if truckID == 0 {
		return nil, ValidationError("Unknown truck.")
	}
	if d.HasTruck(truckID) {
		return nil, ValidationError("This unit is already added.")
	}

	drivers := truck.Drivers()
	unit := DraftUnit{
		TruckID:    truckID,
		UnitNumber: truck.UnitLabel(),
		VIN:        truck.VIN,
		DriverName: truck.DriverNames(),
		Status:     constants.UNIT_STATUS_LOADING,
	}
	if unit.VIN == "" {
		unit.VIN = "N/A"
	}
	if len(drivers) > 0 {
		unit.DriverID = drivers[0].ID.Int64()
		for _, drv := range drivers {
			unit.Drivers = append(unit.Drivers, DraftDriver{
				ID:       drv.ID.Int64(),
				FullName: drv.FullName,
			})
		}
	} else {
		unit.Status = constants.UNIT_STATUS_MANUAL
	}

	d.Units = append(d.Units, unit)
	return d.Unit(truckID), nil
}

// StatementResult - результат загрузки стейтмента одного водителя.
// Ошибка или отсутствие стейтмента деградируют вклад водителя до нуля,
// а не валят весь юнит.
type StatementResult struct {
	Driver    models.Driver
	Statement *models.DriverStatement
	Err       error
}

// ApplyStatementResults сливает результаты параллельных загрузок стейтментов
// в юнит черновика: сумма по водителям складывается, непустые компании
// склеиваются через ", ", заметки через "; ", берётся первый доступный PDF.
// Юнит переходит в fetched. Если стейтмент не принёс ни один водитель
// (в том числе при пустом списке результатов), юнит переводится в manual.
func (d *Draft) ApplyStatementResults(truckID int64, results []StatementResult) {
	unit := d.Unit(truckID)
	if unit == nil {
		return
	}

	if len(results) == 0 {
		unit.Status = constants.UNIT_STATUS_MANUAL
		return
	}

	total := decimal.Zero
	var companies, notes []string
	var firstPDF string
	var fetchedName string
	anyStatement := false
	unit.Drivers = unit.Drivers[:0]

	for _, res := range results {
		dd := DraftDriver{
			ID:       res.Driver.ID.Int64(),
			FullName: res.Driver.FullName,
			Amount:   "0",
		}
		if res.Err == nil && res.Statement != nil {
			anyStatement = true
			amount := utils.CleanAmountOrZero(res.Statement.ResolveAmount().String())
			total = total.Add(amount)
			dd.Amount = amount.String()
			dd.StatementID = res.Statement.ResolveStatementID()
			companies = append(companies, res.Statement.ResolveCompany())
			notes = append(notes, res.Statement.Note)
			if firstPDF == "" {
				firstPDF = res.Statement.ResolvePDF()
			}
			if fetchedName == "" {
				fetchedName = res.Statement.ResolveDriverName()
			}
		}
		unit.Drivers = append(unit.Drivers, dd)
	}

	unit.Amount = total.String()
	unit.Company = utils.JoinNonEmpty(companies, ", ")
	unit.Note = utils.JoinNonEmpty(notes, "; ")
	unit.PDF = firstPDF

	// Ни один водитель не принёс стейтмент: данных нет, юнит заполняется
	// вручную, поля остаются свободными для редактирования.
	if !anyStatement {
		unit.Status = constants.UNIT_STATUS_MANUAL
		return
	}
	unit.Status = constants.UNIT_STATUS_FETCHED

	// Для одиночного водителя стейтмент привязывается к юниту целиком;
	// у команды ссылки остаются по-водительски в Drivers.
	if len(results) == 1 && unit.Drivers[0].StatementID != 0 {
		unit.StatementID = unit.Drivers[0].StatementID
		if fetchedName != "" {
			unit.DriverName = fetchedName
			unit.DriverNameAuto = true
		}
	}
}

// MarkManual переводит юнит в статус ручного заполнения. Используется,
// когда загрузка стейтментов полностью провалилась.
func (d *Draft) MarkManual(truckID int64) {
	if unit := d.Unit(truckID); unit != nil {
		unit.Status = constants.UNIT_STATUS_MANUAL
	}
}

// UpdateUnitField свободно редактирует поле юнита в любом статусе, кроме
// одного случая: сумма закрыта, пока юнит в fetched с автозаполненным
// именем водителя (данные пришли из стейтмента, руками их не правят).
func (d *Draft) UpdateUnitField(truckID int64, field, value string) error {
	unit := d.Unit(truckID)
	if unit == nil {
		return ValidationError("Unit not found in draft.")
	}

	switch field {
	case "driverName":
		unit.DriverName = value
		unit.DriverNameAuto = false
	case "company":
		unit.Company = value
	case "amount":
		if unit.Status == constants.UNIT_STATUS_FETCHED && unit.DriverNameAuto {
			return ValidationError(fmt.Sprintf("Amount for Unit %s is loaded from the driver statement and cannot be edited.", unit.UnitLabel()))
		}
		unit.Amount = value
	case "escrow":
		unit.Escrow = value
	case "note":
		unit.Note = value
	default:
		return ValidationError(fmt.Sprintf("Unknown field '%s'.", field))
	}
	return nil
}

// RemoveUnit убирает юнит из черновика и освобождает грузовик для
// повторного выбора.
func (d *Draft) RemoveUnit(truckID int64) bool {
	for i := range d.Units {
		if d.Units[i].TruckID == truckID {
			d.Units = append(d.Units[:i], d.Units[i+1:]...)
			return true
		}
	}
	return false
}

// HasLoading сообщает, остались ли юниты с незавершённой загрузкой.
func (d *Draft) HasLoading() bool {
	for _, u := range d.Units {
		if u.Status == constants.UNIT_STATUS_LOADING {
			return true
		}
	}
	return false
}

// Validate проверяет готовность черновика к отправке: выбран владелец,
// задан период, есть хотя бы один юнит, ни один юнит не грузится, и у
// каждого юнита ненулевая сумма (после очистки форматирования). Ошибка
// называет конкретный юнит.
func (d *Draft) Validate() error {
	if d.Owner == "" {
		return ValidationError("Please select an owner.")
	}
	if d.StartDate == "" || d.EndDate == "" {
		return ValidationError("Please select a date range.")
	}
	if len(d.Units) == 0 {
		return ValidationError("Please add at least one unit.")
	}
	if d.HasLoading() {
		return ValidationError("Please wait for driver data to load.")
	}

	for _, u := range d.Units {
		amount := utils.CleanAmountOrZero(u.Amount)
		if amount.IsZero() {
			return ValidationError(fmt.Sprintf("Total Amount is required and cannot be 0 for Unit %s.", u.UnitLabel()))
		}
	}
	return nil
}

// Reset полностью очищает черновик.
func (d *Draft) Reset() {
	d.Owner = ""
	d.StartDate = ""
	d.EndDate = ""
	d.Units = nil
}
