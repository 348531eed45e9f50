package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"smartfleet/internal/constants"
)

// SetupRoutes настраивает все маршруты для API.
func SetupRoutes(r *chi.Mux, deps *Deps) {
	// Публичные маршруты
	r.Post("/api/login", deps.Login)
	r.Get("/api/statement-qr", deps.StatementQR)
	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSONSuccess(w, "ok", nil)
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(deps.Sessions))

		r.Post("/api/logout", deps.Logout)
		r.Get("/api/me", deps.Me)

		r.Get("/api/trucks", deps.Trucks)
		r.Get("/api/preferences", deps.GetPreferences)
		r.Put("/api/preferences", deps.SavePreferences)
		r.Get("/api/analytics", deps.Analytics)

		// Просмотр расчётов доступен всем сотрудникам
		r.Get("/api/owner-calculations", deps.OwnerCalculations)
		r.Get("/api/owner-calculations/{id}/view", deps.ViewOwnerCalculation)
		r.Get("/api/owner-calculations/{id}/export", deps.ExportCalculation)
		r.Get("/api/deductions", deps.Deductions)

		// Черновик и мутации - только бухгалтерия
		r.Group(func(r chi.Router) {
			r.Use(DepartmentMiddleware(constants.DEPARTMENT_ACCOUNTING))

			r.Get("/api/draft", deps.GetDraft)
			r.Delete("/api/draft", deps.ResetDraft)
			r.Put("/api/draft/owner", deps.SetDraftOwner)
			r.Put("/api/draft/period", deps.SetDraftPeriod)
			r.Post("/api/draft/units", deps.AddDraftUnit)
			r.Put("/api/draft/units/{truckID}", deps.UpdateDraftUnit)
			r.Delete("/api/draft/units/{truckID}", deps.RemoveDraftUnit)
			r.Post("/api/draft/submit", deps.SubmitDraft)

			r.Delete("/api/owner-calculations/{id}", deps.DeleteOwnerCalculation)

			r.Get("/api/deductions/resolve", deps.ResolveDeduction)
			r.Post("/api/deductions", deps.CreateDeduction)
			r.Put("/api/deductions/{id}", deps.UpdateDeduction)
			r.Delete("/api/deductions/{id}", deps.DeleteDeduction)
		})
	})
}
