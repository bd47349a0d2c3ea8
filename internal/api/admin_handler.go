package api

import (
	"net/http"

	"cv-intake/internal/admin"
	"cv-intake/internal/auth"
)

// LoginHandler authenticates an admin
// @Summary Admin login
// @Tags auth
// @Accept json
// @Produce json
// @Param body body admin.LoginInput true "Credentials"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /admin/login [post]
func (a *API) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var in admin.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	session, err := a.admins.Login(r.Context(), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, session)
}

// RegisterHandler creates an admin account
// @Summary Register admin
// @Tags auth
// @Accept json
// @Produce json
// @Param body body admin.RegisterInput true "Account"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /admin/register [post]
func (a *API) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var in admin.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	session, err := a.admins.Register(r.Context(), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, session)
}

// ProfileHandler returns the calling admin
// @Summary Admin profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /admin/profile [get]
func (a *API) ProfileHandler(w http.ResponseWriter, r *http.Request, who auth.Identity) {
	writeData(w, http.StatusOK, who)
}
