package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"gitlab.com/commonsward/commune/internal/models"
)

func (routes *Routes) BillingRouter(r chi.Router) {
	r.With(routes.EnforceAuth).Post("/apply-credits", routes.AppHandler(routes.PostApplyCredits))
	r.Post("/confirm", routes.AppHandler(routes.PostConfirmOrder))
}

// PostApplyCredits quotes a subscription charge with credits applied.
// A fully-covered payment comes back satisfied with no gateway order.
func (routes *Routes) PostApplyCredits(w http.ResponseWriter, r *http.Request) *AppError {
	var body struct {
		AmountDue int64           `json:"amount_due"`
		Currency  models.Currency `json:"currency"`
	}
	if err := decodeJSON(r, &body); err != nil {
		return &AppError{Message: "malformed body", Code: http.StatusBadRequest, Cause: err}
	}
	if body.Currency != models.CurrencyINR && body.Currency != models.CurrencyUSD {
		return &AppError{Message: "unsupported currency", Code: http.StatusBadRequest}
	}

	payment, err := routes.db.ApplyCredits(r.Context(), *userH(r), body.AmountDue, body.Currency, routes.gateway)
	if err != nil {
		return appErrorFor(err)
	}
	renderJSON(w, http.StatusOK, payment)
	return nil
}

// PostConfirmOrder is the gateway confirmation callback; signature
// verification happens upstream of this handler.
func (routes *Routes) PostConfirmOrder(w http.ResponseWriter, r *http.Request) *AppError {
	var body struct {
		OrderRef string `json:"order_ref"`
	}
	if err := decodeJSON(r, &body); err != nil {
		return &AppError{Message: "malformed body", Code: http.StatusBadRequest, Cause: err}
	}

	payment, err := routes.db.ConfirmOrder(r.Context(), body.OrderRef)
	if err != nil {
		return appErrorFor(err)
	}
	renderJSON(w, http.StatusOK, payment)
	return nil
}
