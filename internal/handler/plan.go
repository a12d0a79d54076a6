package handler

import (
	"errors"
	"net/http"
	"strings"

	"giaoan/internal/errlog"
	"giaoan/internal/lesson"
	"giaoan/internal/plan"
)

// writePlanError maps store errors onto HTTP statuses.
func writePlanError(w http.ResponseWriter, err error) {
	if errors.Is(err, plan.ErrNotFound) {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	WriteError(w, http.StatusBadRequest, err.Error())
}

// HandlePlans serves GET (list) and POST (create) on /api/plans.
func HandlePlans(app *App) http.HandlerFunc {
	return requireUser(app, func(w http.ResponseWriter, r *http.Request, userID string) {
		switch r.Method {
		case http.MethodGet:
			list, err := app.ListPlans(userID)
			if err != nil {
				errlog.Logf("[Plan] list for %s: %v", userID, err)
				WriteError(w, http.StatusInternalServerError, "failed to list plans")
				return
			}
			WriteJSON(w, http.StatusOK, map[string]interface{}{"plans": list})
		case http.MethodPost:
			var p lesson.Plan
			if err := readJSONBodyLimit(r, &p, planBodyLimit); err != nil {
				WriteError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			rec, err := app.CreatePlan(userID, p)
			if err != nil {
				writePlanError(w, err)
				return
			}
			WriteJSON(w, http.StatusCreated, rec)
		default:
			WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})
}

// HandlePlanByID serves /api/plans/{id} (GET, PUT, DELETE) and
// /api/plans/{id}/export (GET).
func HandlePlanByID(app *App) http.HandlerFunc {
	return requireUser(app, func(w http.ResponseWriter, r *http.Request, userID string) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/plans/")
		id, action, _ := strings.Cut(rest, "/")
		if id == "" || len(id) > 64 || strings.ContainsAny(id, " \t") {
			WriteError(w, http.StatusBadRequest, "invalid plan id")
			return
		}

		switch action {
		case "":
		case "export":
			if r.Method != http.MethodGet {
				WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
				return
			}
			exp, err := app.ExportPlan(userID, id)
			if err != nil {
				if errors.Is(err, plan.ErrNotFound) {
					WriteError(w, http.StatusNotFound, err.Error())
					return
				}
				WriteError(w, http.StatusInternalServerError, "failed to generate document")
				return
			}
			writeDocx(w, exp)
			return
		default:
			WriteError(w, http.StatusNotFound, "not found")
			return
		}

		switch r.Method {
		case http.MethodGet:
			rec, err := app.GetPlan(userID, id)
			if err != nil {
				writePlanError(w, err)
				return
			}
			WriteJSON(w, http.StatusOK, rec)
		case http.MethodPut:
			var p lesson.Plan
			if err := readJSONBodyLimit(r, &p, planBodyLimit); err != nil {
				WriteError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			rec, err := app.UpdatePlan(userID, id, p)
			if err != nil {
				writePlanError(w, err)
				return
			}
			WriteJSON(w, http.StatusOK, rec)
		case http.MethodDelete:
			if err := app.DeletePlan(userID, id); err != nil {
				writePlanError(w, err)
				return
			}
			WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		default:
			WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})
}

// HandleGeneratePlan drafts a plan with the LLM and stores it.
func HandleGeneratePlan(app *App) http.HandlerFunc {
	return requireUser(app, func(w http.ResponseWriter, r *http.Request, userID string) {
		if r.Method != http.MethodPost {
			WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var req GeneratePlanRequest
		if err := ReadJSONBody(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.LessonTitle) == "" {
			WriteError(w, http.StatusBadRequest, "lesson title is required")
			return
		}
		rec, err := app.GeneratePlan(r.Context(), userID, req)
		if err != nil {
			errlog.Logf("[LLM] generate %q for %s: %v", req.LessonTitle, userID, err)
			WriteError(w, http.StatusBadGateway, "failed to generate lesson plan")
			return
		}
		WriteJSON(w, http.StatusCreated, rec)
	})
}
