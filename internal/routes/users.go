package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"gitlab.com/commonsward/commune/internal/models"
)

func (routes *Routes) UserRouter(r chi.Router) {
	enforced := r.With(routes.EnforceAuth)
	enforced.Get("/me", routes.AppHandler(routes.GetMe))
	enforced.Get("/me/points", routes.AppHandler(routes.GetPointHistory))
	enforced.Get("/me/referrals", routes.AppHandler(routes.GetReferrals))
	enforced.Get("/me/notifications", routes.AppHandler(routes.GetNotifications))
}

func (routes *Routes) PostSignup(w http.ResponseWriter, r *http.Request) *AppError {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Ref      string `json:"ref"`
	}
	if err := decodeJSON(r, &body); err != nil {
		return &AppError{Message: "malformed body", Code: http.StatusBadRequest, Cause: err}
	}

	user := &models.User{Name: body.Name, Email: body.Email}
	uH, err := routes.db.CreateUser(r.Context(), user, body.Password, body.Ref)
	if err != nil {
		return appErrorFor(err)
	}

	view, err := uH.ReadView(r.Context())
	if err != nil {
		return appErrorFor(err)
	}
	renderJSON(w, http.StatusCreated, view)
	return nil
}

func (routes *Routes) PostLogin(w http.ResponseWriter, r *http.Request) *AppError {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil {
		return &AppError{Message: "malformed body", Code: http.StatusBadRequest, Cause: err}
	}

	token, err := routes.db.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		return &AppError{Message: "invalid credentials", Code: http.StatusUnauthorized, Cause: err}
	}
	renderJSON(w, http.StatusOK, map[string]string{"token": token})
	return nil
}

func (routes *Routes) PostSignout(w http.ResponseWriter, r *http.Request) *AppError {
	if err := routes.db.Signout(r.Context(), bearerToken(r)); err != nil {
		return appErrorFor(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (routes *Routes) GetMe(w http.ResponseWriter, r *http.Request) *AppError {
	view, err := userH(r).ReadView(r.Context())
	if err != nil {
		return appErrorFor(err)
	}
	renderJSON(w, http.StatusOK, view)
	return nil
}

func (routes *Routes) GetPointHistory(w http.ResponseWriter, r *http.Request) *AppError {
	uH := userH(r)
	history, err := uH.PointHistory(r.Context())
	if err != nil {
		return appErrorFor(err)
	}
	credits, err := uH.Credits(r.Context())
	if err != nil {
		return appErrorFor(err)
	}
	renderJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": history,
		"credits":      credits,
	})
	return nil
}

func (routes *Routes) GetReferrals(w http.ResponseWriter, r *http.Request) *AppError {
	referred, err := userH(r).ListReferredUsers(r.Context())
	if err != nil {
		return appErrorFor(err)
	}
	renderJSON(w, http.StatusOK, referred)
	return nil
}

func (routes *Routes) GetNotifications(w http.ResponseWriter, r *http.Request) *AppError {
	notifs, err := routes.db.ListNotifications(r.Context(), *userH(r))
	if err != nil {
		return appErrorFor(err)
	}
	renderJSON(w, http.StatusOK, notifs)
	return nil
}
