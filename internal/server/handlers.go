package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Swarm-DISC/SwarmPAL-processor/internal/config"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/dashboard"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/export"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/render"
)

// maxUploadBytes bounds a single product file upload.
const maxUploadBytes = 256 << 20

// handleHealth reports service status and version.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	names := make([]string, 0, len(s.dashboards))
	for _, ctrl := range s.dashboards {
		names = append(names, ctrl.Definition().Name)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "healthy",
		"version":    config.GetVersion(),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"dashboards": names,
	})
}

// handleState serves the dashboard snapshot as JSON.
func (s *Server) handleState(ctrl *dashboard.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, ctrl.Snapshot())
	}
}

// handleWidgets accepts one widget value per POST, as the UI sends on every
// change. Validation failures answer 400 and land in the activity log.
func (s *Server) handleWidgets(ctrl *dashboard.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		name := r.FormValue("name")
		value := r.FormValue("value")
		if name == "" {
			http.Error(w, "widget name required", http.StatusBadRequest)
			return
		}
		if err := ctrl.Inputs().Set(name, value); err != nil {
			ctrl.Log().Appendf(dashboard.LevelWarning, "Rejected value for %s: %v", name, err)
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// handleFetch starts a fetch-and-process run in the background. The request
// context ends with the response, so the run detaches from it.
func (s *Server) handleFetch(ctrl *dashboard.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := ctrl.StartFetchAndProcess(context.WithoutCancel(r.Context())); err != nil {
			s.dashboardError(w, ctrl, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	}
}

// handleUpload stages a multipart product file and points the dashboard's
// file slot at it. The data is read on the next file-mode fetch.
func (s *Server) handleUpload(ctrl *dashboard.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

		file, header, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file field required"})
			return
		}
		defer file.Close()

		path, err := s.uploads.Save(file, header.Filename)
		if err != nil {
			s.log.Warnf("upload staging failed: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to store upload"})
			return
		}

		input := dashboard.FileInput{Path: path, Name: header.Filename}
		if err := ctrl.Inputs().SetFile(dashboard.FileWidget, input); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		ctrl.Log().Appendf(dashboard.LevelSuccess, "Uploaded %s", header.Filename)
		writeJSON(w, http.StatusOK, map[string]string{
			"filename": header.Filename,
			"dataset":  dashboard.DatasetFromFilename(header.Filename),
		})
	}
}

// handlePlot serves the frame image. While an operation runs it answers with
// the pending placeholder; a missing frame gets the unavailable placeholder.
func (s *Server) handlePlot(ctrl *dashboard.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if ctrl.Busy() {
			writePNG(w, ctrl.Pending())
			return
		}

		var img []byte
		var ok bool
		if q := r.URL.Query().Get("frame"); q != "" {
			key, err := strconv.Atoi(q)
			if err != nil {
				http.Error(w, "frame must be an integer", http.StatusBadRequest)
				return
			}
			img, ok = ctrl.Frame(key)
		} else {
			img, ok = ctrl.CurrentFrame()
		}
		if !ok {
			img = ctrl.Unavailable()
		}
		writePNG(w, img)
	}
}

// handleView serves the data pane plus the reproduction snippets as one HTML
// fragment the page polls for.
func (s *Server) handleView(ctrl *dashboard.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		arts := ctrl.Artifacts()
		view := arts.DataViewHTML
		if view == "" {
			view = render.NoDataHTML
		}

		var buf bytes.Buffer
		buf.WriteString(view)
		if arts.CodeSnippetHTML != "" {
			buf.WriteString(`<details class="snippet"><summary>Python code</summary>`)
			buf.WriteString(arts.CodeSnippetHTML)
			buf.WriteString(`</details>`)
		}
		if arts.CLISnippetHTML != "" {
			buf.WriteString(`<details class="snippet"><summary>Command line</summary>`)
			buf.WriteString(arts.CLISnippetHTML)
			buf.WriteString(`</details>`)
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(buf.Bytes())
	}
}

// handlePlayerToggle flips playback and returns the player state.
func (s *Server) handlePlayerToggle(ctrl *dashboard.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		ctrl.Player().Toggle()
		writeJSON(w, http.StatusOK, ctrl.Player().Snapshot())
	}
}

// handlePlayerFrame scrubs to a frame key and returns the player state.
func (s *Server) handlePlayerFrame(ctrl *dashboard.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		k, err := strconv.Atoi(r.FormValue("frame"))
		if err != nil {
			http.Error(w, "frame must be an integer", http.StatusBadRequest)
			return
		}
		ctrl.Player().Scrub(k)
		writeJSON(w, http.StatusOK, ctrl.Player().Snapshot())
	}
}

// handleExport streams the processed tree in the requested format.
func (s *Server) handleExport(ctrl *dashboard.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		format, err := export.ParseFormat(r.URL.Query().Get("format"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		_, processed, _ := ctrl.Data()
		if processed.IsEmpty() {
			s.dashboardError(w, ctrl, dashboard.ErrNoData)
			return
		}

		var buf bytes.Buffer
		if err := export.Write(&buf, processed, format); err != nil {
			ctrl.Log().Appendf(dashboard.LevelError, "Export failed: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}

		filename := fmt.Sprintf("swarmpal_%s_%s.%s",
			ctrl.Definition().Name, time.Now().UTC().Format("20060102T150405"), format.Ext())
		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.Write(buf.Bytes())
	}
}

// handleLog serves the dashboard activity log as an HTML fragment.
func (s *Server) handleLog(ctrl *dashboard.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(ctrl.Log().HTML()))
	}
}

// dashboardError maps an operation error onto a status code, records it in
// the dashboard's activity log and writes the JSON error body.
func (s *Server) dashboardError(w http.ResponseWriter, ctrl *dashboard.Controller, err error) {
	msg := err.Error()
	status := http.StatusInternalServerError

	var missing *dashboard.MissingInputError
	switch {
	case errors.Is(err, dashboard.ErrBusy):
		status = http.StatusConflict
	case errors.Is(err, dashboard.ErrNoData):
		status = http.StatusConflict
		msg = "Please fetch data first"
	case errors.As(err, &missing):
		status = http.StatusBadRequest
	default:
		status = statusForPipelineError(err)
	}

	ctrl.Log().Appendf(dashboard.LevelWarning, "Request rejected: %s", msg)
	writeJSON(w, status, map[string]string{"error": msg})
}
