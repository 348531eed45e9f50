package calc

import (
	"github.com/shopspring/decimal"

	"smartfleet/internal/models"
	"smartfleet/internal/utils"
)

// weekInfo - период, к которому отнесён deduction по данным сохранённых
// расчётов владельца.
type weekInfo struct {
	start string
	end   string
}

// buildDeductionWeekMap строит карту id юнита -> период недели. Сначала
// периоды берутся из расчётов, в которые юнит вложен, потом из собственных
// дат юнита. Первое сопоставление побеждает: если юнит числится в расчёте,
// его собственным датам уже не верим.
func buildDeductionWeekMap(ownerCalcs []models.OwnerCalculation, units []models.CalculationUnit) map[int64]weekInfo {
	weeks := make(map[int64]weekInfo)

	for _, oc := range ownerCalcs {
		start := utils.NormalizeDate(oc.StartDate)
		end := utils.NormalizeDate(oc.EndDate)
		if start == "" || end == "" {
			continue
		}
		for _, u := range oc.AllUnits() {
			if !u.IsDeduction() {
				continue
			}
			id := u.ID.Int64()
			if id == 0 {
				continue
			}
			if _, seen := weeks[id]; !seen {
				weeks[id] = weekInfo{start: start, end: end}
			}
		}
	}

	for _, u := range units {
		if !u.IsDeduction() {
			continue
		}
		id := u.ID.Int64()
		if id == 0 {
			continue
		}
		if _, seen := weeks[id]; seen {
			continue
		}
		start := utils.NormalizeDate(u.StartDate)
		end := utils.NormalizeDate(u.EndDate)
		if start != "" && end != "" {
			weeks[id] = weekInfo{start: start, end: end}
		}
	}

	return weeks
}

// memberOfAnyCalc сообщает, числится ли юнит в каком-либо из расчётов.
func memberOfAnyCalc(unitID int64, ownerCalcs []models.OwnerCalculation) bool {
	if unitID == 0 {
		return false
	}
	for _, oc := range ownerCalcs {
		for _, u := range oc.AllUnits() {
			if u.ID.Int64() == unitID {
				return true
			}
		}
	}
	return false
}

// CollectDeductions собирает вычеты, относящиеся к неделе просматриваемого
// расчёта. Источника два: отдельно загруженные юниты владельца и юниты,
// вложенные прямо в просматриваемый расчёт. Юнит считается вычетом,
// когда statement == null.
// Принадлежность неделе проверяется по собственным датам юнита, а при их
// отсутствии по карте id -> неделя. Результат дедуплицирован по id.
func CollectDeductions(viewed models.OwnerCalculation, ownerCalcs []models.OwnerCalculation, units []models.CalculationUnit) []models.CalculationUnit {
	expectedStart := utils.NormalizeDate(viewed.StartDate)
	expectedEnd := utils.NormalizeDate(viewed.EndDate)
	if expectedStart == "" || expectedEnd == "" {
		return nil
	}

	weeks := buildDeductionWeekMap(ownerCalcs, units)
	matchesWeek := func(id int64) bool {
		w, ok := weeks[id]
		return ok && w.start == expectedStart && w.end == expectedEnd
	}

	seen := make(map[int64]bool)
	var out []models.CalculationUnit
	add := func(u models.CalculationUnit) {
		id := u.ID.Int64()
		if id != 0 && seen[id] {
			return
		}
		if id != 0 {
			seen[id] = true
		}
		out = append(out, u)
	}

	// Отдельно загруженные юниты: в неделю попадают либо по собственным
	// датам, либо по карте. Юнит без дат и без недели отбрасывается.
	for _, u := range units {
		if !u.IsDeduction() {
			continue
		}
		id := u.ID.Int64()
		inCalc := memberOfAnyCalc(id, ownerCalcs)
		if !inCalc && !matchesWeek(id) {
			continue
		}

		start := utils.NormalizeDate(u.StartDate)
		end := utils.NormalizeDate(u.EndDate)
		switch {
		case start != "" && end != "":
			if start == expectedStart && end == expectedEnd {
				add(u)
			}
		case matchesWeek(id):
			add(u)
		}
	}

	// Юниты, вложенные в сам просматриваемый расчёт: его период уже
	// совпадает с ожидаемым по построению.
	for _, u := range viewed.AllUnits() {
		if u.IsDeduction() {
			add(u)
		}
	}

	return out
}

// TruckGroup - строки расчёта одного грузовика для отображения:
// несколько водителей одного юнита показываются соседними строками.
type TruckGroup struct {
	TruckID    int64                    `json:"truck_id"`
	UnitNumber string                   `json:"unit_number"`
	Units      []models.CalculationUnit `json:"units"`
}

// GroupByTruck группирует юниты расчёта (кроме вычетов) по грузовику,
// сохраняя порядок первого появления. Номер юнита берётся из справочника
// грузовиков, при отсутствии - "N/A".
func GroupByTruck(units []models.CalculationUnit, trucks []models.Truck) []TruckGroup {
	labels := make(map[int64]string, len(trucks))
	for _, t := range trucks {
		labels[t.TruckID()] = t.UnitLabel()
	}

	index := make(map[int64]int)
	var groups []TruckGroup
	for _, u := range units {
		if u.IsDeduction() {
			continue
		}
		truckID := u.TruckRef()
		i, ok := index[truckID]
		if !ok {
			label := labels[truckID]
			if label == "" {
				label = "N/A"
			}
			groups = append(groups, TruckGroup{TruckID: truckID, UnitNumber: label})
			i = len(groups) - 1
			index[truckID] = i
		}
		groups[i].Units = append(groups[i].Units, u)
	}
	return groups
}

// Totals суммирует amount и escrow по юнитам (включая вычеты).
func Totals(units []models.CalculationUnit) (amount, escrow string) {
	amt := decimal.Zero
	esc := decimal.Zero
	for _, u := range units {
		amt = amt.Add(utils.CleanAmountOrZero(u.Amount.String()))
		esc = esc.Add(utils.CleanAmountOrZero(u.Escrow.String()))
	}
	return utils.FormatMoney(amt), utils.FormatMoney(esc)
}
