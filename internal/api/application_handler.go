package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"cv-intake/internal/application"
	"cv-intake/internal/apperr"
	"cv-intake/internal/auth"
)

type statusUpdateRequest struct {
	Status string `json:"status" example:"reviewed"`
}

// SubmitApplicationHandler accepts a public job application
// @Summary Submit application
// @Description Submit a job application with a resume attachment
// @Tags applications
// @Accept multipart/form-data
// @Produce json
// @Param fullName formData string true "Full name"
// @Param email formData string true "Email"
// @Param phone formData string true "Phone"
// @Param country formData string true "Country"
// @Param yearsOfExperience formData int true "Years of experience"
// @Param primarySkills formData string true "Skills as a JSON array or comma separated list"
// @Param portfolioUrl formData string true "Portfolio URL"
// @Param coverLetter formData string true "Cover letter (max 1000 characters)"
// @Param resume formData file true "Resume (PDF, DOC, DOCX, TXT, RTF, ODT)"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /applications [post]
func (a *API) SubmitApplicationHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.resumes.MaxBytes()+formOverhead)
	if err := r.ParseMultipartForm(formOverhead); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.writeError(w, r, apperr.Validation("Resume file is too large", []apperr.Violation{{
				Field:   "resume",
				Message: "Resume file is too large",
			}}))
			return
		}
		a.writeError(w, r, apperr.New(apperr.CodeValidation, "Invalid form data", err))
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	in := application.SubmissionInput{
		FullName:          r.FormValue("fullName"),
		Email:             r.FormValue("email"),
		Phone:             r.FormValue("phone"),
		Country:           r.FormValue("country"),
		YearsOfExperience: r.FormValue("yearsOfExperience"),
		PrimarySkills:     skillsValue(r),
		PortfolioURL:      r.FormValue("portfolioUrl"),
		CoverLetter:       r.FormValue("coverLetter"),
	}

	var upload *application.ResumeUpload
	file, header, err := r.FormFile("resume")
	switch {
	case err == nil:
		defer file.Close()
		upload = &application.ResumeUpload{Filename: header.Filename, Size: header.Size, Content: file}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		a.writeError(w, r, apperr.New(apperr.CodeValidation, "Invalid resume upload", err))
		return
	}

	created, err := a.applications.Submit(r.Context(), in, upload)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{
		Success: true,
		Message: "Application submitted successfully",
		Data:    created,
	})
}

// skillsValue accepts a single JSON/comma string or the field repeated once per skill.
func skillsValue(r *http.Request) string {
	values := r.Form["primarySkills"]
	if len(values) == 0 {
		values = r.Form["primarySkills[]"]
	}
	switch len(values) {
	case 0:
		return ""
	case 1:
		return values[0]
	default:
		b, _ := json.Marshal(values)
		return string(b)
	}
}

// ListApplicationsHandler lists applications for review
// @Summary List applications
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param search query string false "Matches name, email or country"
// @Param status query string false "new, reviewed, shortlisted, rejected, archived or all"
// @Param sortBy query string false "createdAt, fullName, email, country, yearsOfExperience or status"
// @Param order query string false "asc or desc"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size (max 100)" default(10)
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /admin/applications [get]
func (a *API) ListApplicationsHandler(w http.ResponseWriter, r *http.Request, who auth.Identity) {
	q := r.URL.Query()
	page, err := a.applications.List(r.Context(), who, application.ListParams{
		Search: q.Get("search"),
		Status: q.Get("status"),
		SortBy: q.Get("sortBy"),
		Order:  q.Get("order"),
		Page:   q.Get("page"),
		Limit:  q.Get("limit"),
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listBody{
		Success:     true,
		Data:        page.Data,
		TotalPages:  page.TotalPages,
		CurrentPage: page.CurrentPage,
		Total:       page.Total,
	})
}

// GetApplicationHandler returns one application
// @Summary Get application
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /admin/applications/{id} [get]
func (a *API) GetApplicationHandler(w http.ResponseWriter, r *http.Request, who auth.Identity) {
	app, err := a.applications.Get(r.Context(), who, r.PathValue("id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, app)
}

// UpdateStatusHandler changes an application's review status
// @Summary Update application status
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Param body body statusUpdateRequest true "New status"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /admin/applications/{id} [put]
func (a *API) UpdateStatusHandler(w http.ResponseWriter, r *http.Request, who auth.Identity) {
	var req statusUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	app, err := a.applications.UpdateStatus(r.Context(), who, r.PathValue("id"), req.Status)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, app)
}

// DeleteApplicationHandler removes an application and its resume
// @Summary Delete application
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /admin/applications/{id} [delete]
func (a *API) DeleteApplicationHandler(w http.ResponseWriter, r *http.Request, who auth.Identity) {
	if err := a.applications.Delete(r.Context(), who, r.PathValue("id")); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Application deleted successfully"})
}

// StatsHandler returns dashboard counts
// @Summary Application statistics
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /admin/stats [get]
func (a *API) StatsHandler(w http.ResponseWriter, r *http.Request, who auth.Identity) {
	stats, err := a.applications.Stats(r.Context(), who)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}

