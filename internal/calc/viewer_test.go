package calc

import (
	"testing"

	"smartfleet/internal/models"
)

func deduction(id int64, start, end string) models.CalculationUnit {
	return models.CalculationUnit{
		ID:        models.FlexRef(id),
		Driver:    "John Doe",
		Amount:    "-50.00",
		StartDate: start,
		EndDate:   end,
	}
}

func TestCollectDeductionsByOwnDates(t *testing.T) {
	viewed := models.OwnerCalculation{ID: 1, StartDate: "2025-01-06", EndDate: "2025-01-12"}
	units := []models.CalculationUnit{
		deduction(100, "2025-01-06", "2025-01-12"),
		deduction(101, "2025-01-13", "2025-01-19"), // next week, must be excluded
	}

	got := CollectDeductions(viewed, nil, units)
	if len(got) != 1 || got[0].ID.Int64() != 100 {
		t.Errorf("CollectDeductions = %+v, want only unit 100", got)
	}
}

func TestCollectDeductionsInheritsWeekFromCalculation(t *testing.T) {
	viewed := models.OwnerCalculation{ID: 1, StartDate: "2025-01-06", EndDate: "2025-01-12"}
	// The deduction has no dates of its own but is embedded in a calculation
	// for the expected week.
	bare := models.CalculationUnit{ID: 100, Driver: "John Doe", Amount: "-50.00"}
	ownerCalcs := []models.OwnerCalculation{
		{
			ID:               2,
			StartDate:        "2025-01-06T00:00:00",
			EndDate:          "2025-01-12T00:00:00",
			CalculationUnits: []models.CalculationUnit{bare},
		},
	}

	got := CollectDeductions(viewed, ownerCalcs, []models.CalculationUnit{bare})
	if len(got) != 1 || got[0].ID.Int64() != 100 {
		t.Errorf("CollectDeductions = %+v, want inherited-week unit 100", got)
	}
}

func TestCollectDeductionsOwnDatesWinOverMembership(t *testing.T) {
	viewed := models.OwnerCalculation{ID: 1, StartDate: "2025-01-13", EndDate: "2025-01-19"}
	// The deduction carries its own dates for the previous week but is
	// embedded in another calculation for the viewed week. Its own dates
	// decide: it belongs to the previous week, not the viewed one.
	stray := deduction(100, "2025-01-06", "2025-01-12")
	ownerCalcs := []models.OwnerCalculation{
		viewed,
		{
			ID:               2,
			StartDate:        "2025-01-13",
			EndDate:          "2025-01-19",
			CalculationUnits: []models.CalculationUnit{stray},
		},
	}

	got := CollectDeductions(viewed, ownerCalcs, []models.CalculationUnit{stray})
	if len(got) != 0 {
		t.Errorf("CollectDeductions = %+v, want empty: unit dated 2025-01-06..12 must not appear in week 2025-01-13..19", got)
	}
}

func TestCollectDeductionsIgnoresOtherWeeks(t *testing.T) {
	viewed := models.OwnerCalculation{ID: 1, StartDate: "2025-01-06", EndDate: "2025-01-12"}
	bare := models.CalculationUnit{ID: 100, Driver: "John Doe", Amount: "-50.00"}
	ownerCalcs := []models.OwnerCalculation{
		{
			ID:               2,
			StartDate:        "2025-01-13",
			EndDate:          "2025-01-19",
			CalculationUnits: []models.CalculationUnit{bare},
		},
	}

	got := CollectDeductions(viewed, ownerCalcs, []models.CalculationUnit{bare})
	if len(got) != 0 {
		t.Errorf("CollectDeductions = %+v, want empty for another week", got)
	}
}

func TestCollectDeductionsIncludesEmbeddedAndDedupes(t *testing.T) {
	embedded := deduction(100, "2025-01-06", "2025-01-12")
	viewed := models.OwnerCalculation{
		ID:               1,
		StartDate:        "2025-01-06",
		EndDate:          "2025-01-12",
		CalculationUnits: []models.CalculationUnit{embedded},
	}

	// Same deduction also arrives via the standalone unit list.
	got := CollectDeductions(viewed, []models.OwnerCalculation{viewed}, []models.CalculationUnit{embedded})
	if len(got) != 1 {
		t.Errorf("CollectDeductions returned %d units, want 1 after dedupe", len(got))
	}
}

func TestCollectDeductionsSkipsStatementUnits(t *testing.T) {
	viewed := models.OwnerCalculation{ID: 1, StartDate: "2025-01-06", EndDate: "2025-01-12"}
	truckUnit := models.CalculationUnit{
		ID:        200,
		Amount:    "1500.00",
		Statement: &models.StatementRef{ID: 77},
		StartDate: "2025-01-06",
		EndDate:   "2025-01-12",
	}

	got := CollectDeductions(viewed, nil, []models.CalculationUnit{truckUnit})
	if len(got) != 0 {
		t.Errorf("CollectDeductions = %+v, statement-backed units are not deductions", got)
	}
}

func TestGroupByTruck(t *testing.T) {
	t11, t12 := models.FlexRef(11), models.FlexRef(12)
	units := []models.CalculationUnit{
		{ID: 1, Truck: &t11, Driver: "John Doe", Amount: "100.00", Statement: &models.StatementRef{ID: 71}},
		{ID: 2, Truck: &t12, Driver: "Mary Major", Amount: "200.00", Statement: &models.StatementRef{ID: 72}},
		{ID: 3, Truck: &t11, Driver: "Jane Roe", Amount: "150.00", Statement: &models.StatementRef{ID: 73}},
		{ID: 4, Driver: "Ad-hoc", Amount: "-50.00"}, // deduction, excluded from truck rows
	}
	trucks := []models.Truck{
		testTruck(11, "305"),
		testTruck(12, "418"),
	}

	groups := GroupByTruck(units, trucks)
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	if groups[0].UnitNumber != "305" || len(groups[0].Units) != 2 {
		t.Errorf("group 0 = %+v, want truck 305 with 2 rows", groups[0])
	}
	if groups[1].UnitNumber != "418" || len(groups[1].Units) != 1 {
		t.Errorf("group 1 = %+v, want truck 418 with 1 row", groups[1])
	}
}

func TestTotals(t *testing.T) {
	units := []models.CalculationUnit{
		{ID: 1, Amount: "1500.00", Escrow: "100"},
		{ID: 2, Amount: "-40", Escrow: ""},
	}
	amount, escrow := Totals(units)
	if amount != "1460.00" {
		t.Errorf("total amount = %q, want 1460.00", amount)
	}
	if escrow != "100.00" {
		t.Errorf("total escrow = %q, want 100.00", escrow)
	}
}
