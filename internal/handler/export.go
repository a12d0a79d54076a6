package handler

import (
	"net/http"
	"strconv"

	"giaoan/internal/docx"
	"giaoan/internal/lesson"
)

// writeDocx sends a rendered document as an attachment.
func writeDocx(w http.ResponseWriter, exp *Export) {
	w.Header().Set("Content-Type", docx.ContentType)
	w.Header().Set("Content-Disposition", docx.ContentDisposition(exp.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(exp.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(exp.Data)
}

// HandleRender renders a posted plan without storing it.
func HandleRender(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var p lesson.Plan
		if err := readJSONBodyLimit(r, &p, planBodyLimit); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		exp, err := app.RenderPlan(p)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to generate document")
			return
		}
		writeDocx(w, exp)
	}
}

// HandleHealth reports whether the database is reachable.
func HandleHealth(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if err := app.Health(r.Context()); err != nil {
			WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
