package models

import (
	"strconv"
	"strings"
)

// Driver - водитель, закреплённый за грузовиком. У грузовика может быть
// команда из нескольких водителей.
type Driver struct {
	ID       FlexRef `json:"id"`
	FullName string  `json:"full_name"`
}

// Truck - грузовик из справочника /calculations/all-trucks.
type Truck struct {
	ID         FlexRef    `json:"id"`
	AltID      FlexRef    `json:"_id,omitempty"`
	UnitNumber string     `json:"unit_number"`
	VIN        string     `json:"VIN"` // Матчится и с "vin": json в Go нечувствителен к регистру ключей
	Driver     DriverList `json:"driver,omitempty"`
	DriverID   FlexRef    `json:"driver_id,omitempty"`
}

// TruckID возвращает идентификатор грузовика (id или _id).
func (t Truck) TruckID() int64 {
	if t.ID != 0 {
		return t.ID.Int64()
	}
	return t.AltID.Int64()
}

// UnitLabel возвращает номер юнита для отображения.
func (t Truck) UnitLabel() string {
	if strings.TrimSpace(t.UnitNumber) == "" {
		return "N/A"
	}
	return t.UnitNumber
}

// Drivers возвращает список водителей грузовика с учётом всех форм поля
// driver и запасного поля driver_id.
func (t Truck) Drivers() []Driver {
	if len(t.Driver) > 0 {
		return []Driver(t.Driver)
	}
	if t.DriverID != 0 {
		return []Driver{{ID: t.DriverID}}
	}
	return nil
}

// DriverNames возвращает имена водителей, склеенные через " / "
// (команда на одном грузовике).
func (t Truck) DriverNames() string {
	var names []string
	for _, d := range t.Drivers() {
		if name := strings.TrimSpace(d.FullName); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, " / ")
}

// DriverStatement - рассчитанный стейтмент водителя за период.
// Только читается, клиент его никогда не создаёт.
type DriverStatement struct {
	ID             FlexRef       `json:"id"`
	Driver         FlexName      `json:"driver"`
	DriverName     string        `json:"driver_name"`
	Company        FlexName      `json:"company"`
	CompanyName    string        `json:"company_name"`
	CarrierCompany string        `json:"carrier_company"`
	TotalAmount    FlexMoney     `json:"total_amount"`
	Amount         FlexMoney     `json:"amount"`
	TotalGross     FlexMoney     `json:"total_gross"`
	Gross          FlexMoney     `json:"gross"`
	Escrow         FlexMoney     `json:"escrow"`
	TotalEscrow    FlexMoney     `json:"total_escrow"`
	Note           string        `json:"note"`
	PDF            string        `json:"pdf"`
	PDFURL         string        `json:"pdf_url"`
	PDFFile        string        `json:"pdf_file"`
	PDFFileURL     string        `json:"pdf_file_url"`
	Statement      *StatementRef `json:"statement,omitempty"`
	StatementID    FlexRef       `json:"statement_id,omitempty"`
	StartDate      string        `json:"start_date,omitempty"`
	EndDate        string        `json:"end_date,omitempty"`
}

// ResolveDriverName возвращает имя водителя с учётом всех форм поля.
func (s DriverStatement) ResolveDriverName() string {
	if s.Driver.Name != "" {
		return s.Driver.Name
	}
	return s.DriverName
}

// ResolveCompany возвращает название компании с учётом всех форм поля.
func (s DriverStatement) ResolveCompany() string {
	if s.Company.Name != "" {
		return s.Company.Name
	}
	if s.CompanyName != "" {
		return s.CompanyName
	}
	return s.CarrierCompany
}

// ResolveAmount возвращает сумму: total_amount, иначе amount.
func (s DriverStatement) ResolveAmount() FlexMoney {
	if !s.TotalAmount.IsEmpty() {
		return s.TotalAmount
	}
	return s.Amount
}

// ResolveEscrow возвращает эскроу: escrow, иначе total_escrow.
func (s DriverStatement) ResolveEscrow() FlexMoney {
	if !s.Escrow.IsEmpty() {
		return s.Escrow
	}
	return s.TotalEscrow
}

// ResolvePDF возвращает первую доступную ссылку на PDF стейтмента.
func (s DriverStatement) ResolvePDF() string {
	for _, u := range []string{s.PDF, s.PDFURL, s.PDFFile, s.PDFFileURL} {
		if u != "" {
			return u
		}
	}
	if s.Statement != nil {
		if s.Statement.PDFFile != "" {
			return s.Statement.PDFFile
		}
		return s.Statement.PDFFileURL
	}
	return ""
}

// ResolveStatementID возвращает id стейтмента: собственный id записи,
// иначе id из вложенного statement, иначе statement_id.
func (s DriverStatement) ResolveStatementID() int64 {
	if s.ID != 0 {
		return s.ID.Int64()
	}
	if s.Statement != nil && s.Statement.ID != 0 {
		return s.Statement.ID.Int64()
	}
	return s.StatementID.Int64()
}

// CalculationUnit - одна строка внутри owner calculation: либо привязанная
// к стейтменту (truck unit), либо ручной deduction (statement == null).
type CalculationUnit struct {
	ID          FlexRef       `json:"id"`
	Truck       *FlexRef      `json:"truck,omitempty"`
	TruckID     *FlexRef      `json:"truck_id,omitempty"`
	Owner       *FlexName     `json:"owner,omitempty"`
	Driver      string        `json:"driver,omitempty"`
	DriverID    FlexRef       `json:"driver_id,omitempty"`
	Amount      FlexMoney     `json:"amount"`
	Escrow      FlexMoney     `json:"escrow"`
	Note        string        `json:"note,omitempty"`
	Statement   *StatementRef `json:"statement,omitempty"`
	StatementID FlexRef       `json:"statement_id,omitempty"`
	StartDate   string        `json:"start_date,omitempty"`
	EndDate     string        `json:"end_date,omitempty"`
}

// TruckRef возвращает id грузовика юнита: truck.id || truck || truck_id.
func (u CalculationUnit) TruckRef() int64 {
	if u.Truck != nil && *u.Truck != 0 {
		return u.Truck.Int64()
	}
	if u.TruckID != nil {
		return u.TruckID.Int64()
	}
	return 0
}

// StatementRefID возвращает id связанного стейтмента или 0.
func (u CalculationUnit) StatementRefID() int64 {
	if u.Statement != nil && u.Statement.ID != 0 {
		return u.Statement.ID.Int64()
	}
	return u.StatementID.Int64()
}

// IsDeduction сообщает, является ли юнит ручным вычетом:
// поле statement отсутствует или равно null.
func (u CalculationUnit) IsDeduction() bool {
	return u.Statement == nil
}

// OwnerCalculation - сохранённый расчёт владельца за один недельный период.
type OwnerCalculation struct {
	ID               FlexRef           `json:"id"`
	Owner            FlexName          `json:"owner"`
	OwnerID          FlexRef           `json:"owner_id,omitempty"`
	StartDate        string            `json:"start_date"`
	EndDate          string            `json:"end_date"`
	TotalAmount      FlexMoney         `json:"total_amount"`
	TotalEscrow      FlexMoney         `json:"total_escrow"`
	PrevAmount       FlexMoney         `json:"prev_amount"`
	CreatedBy        FlexName          `json:"created_by"`
	Note             string            `json:"note,omitempty"`
	CalculationUnits []CalculationUnit `json:"calculation_units,omitempty"`
	Units            []CalculationUnit `json:"units,omitempty"`
}

// AllUnits возвращает юниты расчёта: calculation_units, иначе units.
func (c OwnerCalculation) AllUnits() []CalculationUnit {
	if len(c.CalculationUnits) > 0 {
		return c.CalculationUnits
	}
	return c.Units
}

// MatchesOwner проверяет точное совпадение владельца с запросом:
// имя целиком либо числовой id.
func (c OwnerCalculation) MatchesOwner(owner string) bool {
	if c.Owner.Name == owner {
		return true
	}
	id := c.Owner.ID
	if id == 0 {
		id = c.OwnerID.Int64()
	}
	return id != 0 && strconv.FormatInt(id, 10) == strings.TrimSpace(owner)
}

// AnalyticsTruck - строка разбивки по грузовикам в аналитике.
// Терпимо относится к разным написаниям полей у бэкенда.
type AnalyticsTruck struct {
	TruckUnitNumber string    `json:"truck__unit_number,omitempty"`
	UnitNumber      string    `json:"unit_number,omitempty"`
	UnitNumberAlt   string    `json:"unitNumber,omitempty"`
	Number          string    `json:"number,omitempty"`
	TruckID         FlexRef   `json:"truck_id,omitempty"`
	ID              FlexRef   `json:"id,omitempty"`
	AltID           FlexRef   `json:"_id,omitempty"`
	TruckAmount     FlexMoney `json:"truck_amount"`
	TruckEscrow     FlexMoney `json:"truck_escrow"`
}

// ResolveUnitNumber возвращает номер юнита с учётом всех написаний.
func (a AnalyticsTruck) ResolveUnitNumber() string {
	for _, n := range []string{a.TruckUnitNumber, a.UnitNumber, a.UnitNumberAlt, a.Number} {
		if n != "" {
			return n
		}
	}
	return "N/A"
}

// ResolveTruckID возвращает id грузовика: truck_id || id || _id.
func (a AnalyticsTruck) ResolveTruckID() int64 {
	if a.TruckID != 0 {
		return a.TruckID.Int64()
	}
	if a.ID != 0 {
		return a.ID.Int64()
	}
	return a.AltID.Int64()
}

// AnalyticsSummary - агрегат по владельцу за период.
type AnalyticsSummary struct {
	Owner       FlexName         `json:"owner"`
	TotalAmount FlexMoney        `json:"total_amount"`
	TotalEscrow FlexMoney        `json:"total_escrow"`
	Trucks      []AnalyticsTruck `json:"trucks"`
}

// User - профиль сотрудника, возвращаемый /token/ вместе с токеном.
type User struct {
	UserID     int64      `json:"user_id"`
	Username   string     `json:"username"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Department string     `json:"department"`
	Companies  []FlexName `json:"companies"`
}
