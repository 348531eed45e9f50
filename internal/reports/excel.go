// Пакет reports собирает печатные формы расчётов: Excel-выгрузку для
// бухгалтерии. Пакет чистый, работает только с уже загруженными данными.
package reports

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"smartfleet/internal/calc"
	"smartfleet/internal/models"
	"smartfleet/internal/utils"
)

// CalculationExcel формирует xlsx-файл по расчёту владельца: строки юнитов
// по грузовикам, затем вычеты, затем итоги. Возвращает содержимое файла.
func CalculationExcel(calculation models.OwnerCalculation, trucks []models.Truck) ([]byte, error) {
	f := excelize.NewFile()
	sheetName := "Calculation"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания листа: %w", err)
	}
	f.DeleteSheet("Sheet1") // Удаляем стандартный лист
	f.SetActiveSheet(index)

	headers := []string{"Unit", "Driver", "Amount", "Escrow", "Note"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	f.SetCellValue(sheetName, "G1", "Owner")
	f.SetCellValue(sheetName, "H1", calculation.Owner.Name)
	f.SetCellValue(sheetName, "G2", "Period")
	f.SetCellValue(sheetName, "H2", utils.FormatPeriodForDisplay(calculation.StartDate, calculation.EndDate))

	units := calculation.AllUnits()
	rowIndex := 2
	for _, group := range calc.GroupByTruck(units, trucks) {
		for _, u := range group.Units {
			f.SetCellValue(sheetName, fmt.Sprintf("A%d", rowIndex), group.UnitNumber)
			f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowIndex), u.Driver)
			f.SetCellValue(sheetName, fmt.Sprintf("C%d", rowIndex), utils.FormatMoney(utils.CleanAmountOrZero(u.Amount.String())))
			f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowIndex), utils.FormatMoney(utils.CleanAmountOrZero(u.Escrow.String())))
			f.SetCellValue(sheetName, fmt.Sprintf("E%d", rowIndex), u.Note)
			rowIndex++
		}
	}

	for _, u := range units {
		if !u.IsDeduction() {
			continue
		}
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", rowIndex), "Deduction")
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowIndex), u.Driver)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", rowIndex), utils.FormatMoney(utils.CleanAmountOrZero(u.Amount.String())))
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowIndex), utils.FormatMoney(utils.CleanAmountOrZero(u.Escrow.String())))
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", rowIndex), u.Note)
		rowIndex++
	}

	totalAmount, totalEscrow := calc.Totals(units)
	rowIndex++
	f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowIndex), "Total")
	f.SetCellValue(sheetName, fmt.Sprintf("C%d", rowIndex), totalAmount)
	f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowIndex), totalEscrow)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("ошибка записи Excel файла: %w", err)
	}
	return buf.Bytes(), nil
}

// CalculationFileName возвращает имя файла выгрузки.
func CalculationFileName(calculation models.OwnerCalculation) string {
	owner := calculation.Owner.Name
	if owner == "" {
		owner = fmt.Sprintf("owner_%d", calculation.ID.Int64())
	}
	return fmt.Sprintf("calculation_%s_%s.xlsx", owner, utils.NormalizeDate(calculation.StartDate))
}
