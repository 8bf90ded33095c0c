package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Swarm-DISC/SwarmPAL-processor/internal/config"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/dashboard"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/models"
)

// bulletinTimeout bounds the feed fetch on the index page so a slow upstream
// cannot stall page loads.
const bulletinTimeout = 5 * time.Second

var (
	indexTmpl     = template.Must(template.New("index").Parse(indexTemplate))
	dashboardTmpl = template.Must(template.New("dashboard").Parse(dashboardTemplate))
)

// indexPageData feeds the index template.
type indexPageData struct {
	Version    string
	Dashboards []indexDashboard
	Bulletins  []models.Bulletin
	CSS        template.CSS
}

type indexDashboard struct {
	Name  string
	Title string
	Href  string
}

// dashboardPageData feeds the dashboard page template.
type dashboardPageData struct {
	Name        string
	Title       string
	Version     string
	WidgetsHTML template.HTML
	APIBase     string
	CSS         template.CSS
	JS          template.JS
}

// handleIndex serves the landing page listing the dashboards, with the
// latest space-weather bulletins when a feed is configured.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data := indexPageData{
		Version: config.GetVersion(),
		CSS:     template.CSS(pageCSS),
	}
	for _, ctrl := range s.dashboards {
		def := ctrl.Definition()
		data.Dashboards = append(data.Dashboards, indexDashboard{
			Name:  def.Name,
			Title: def.Title,
			Href:  "/dashboards/" + def.Name,
		})
	}
	if s.bulletins != nil {
		ctx, cancel := context.WithTimeout(r.Context(), bulletinTimeout)
		defer cancel()
		data.Bulletins = s.bulletins.Fetch(ctx)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, data); err != nil {
		s.log.Warnf("index template failed: %v", err)
	}
}

// handleDashboardPage serves the interactive page for one dashboard.
func (s *Server) handleDashboardPage(ctrl *dashboard.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		def := ctrl.Definition()
		data := dashboardPageData{
			Name:        def.Name,
			Title:       def.Title,
			Version:     config.GetVersion(),
			WidgetsHTML: buildWidgetControls(ctrl),
			APIBase:     "/api/dashboards/" + def.Name,
			CSS:         template.CSS(pageCSS),
			JS:          template.JS(dashboardJS),
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := dashboardTmpl.Execute(w, data); err != nil {
			s.log.Warnf("dashboard template failed: %v", err)
		}
	}
}

// buildWidgetControls renders the control panel for the dashboard's widgets
// in their declared order, pre-filled with the current values.
func buildWidgetControls(ctrl *dashboard.Controller) template.HTML {
	values := ctrl.Inputs().Values()

	var buf strings.Builder
	for _, spec := range ctrl.Definition().Widgets {
		label := template.HTMLEscapeString(spec.Label)
		name := template.HTMLEscapeString(spec.Name)
		attrs := ""
		if spec.ProcessParam {
			attrs = ` data-reprocess="1"`
		}

		buf.WriteString(fmt.Sprintf(`<div class="widget"%s><label class="widget-label" for="w-%s">%s</label>`, attrs, name, label))

		switch spec.Kind {
		case dashboard.KindRadio:
			current, _ := values[spec.Name].(string)
			for _, opt := range spec.Options {
				checked := ""
				if opt == current {
					checked = " checked"
				}
				escaped := template.HTMLEscapeString(opt)
				buf.WriteString(fmt.Sprintf(
					`<label class="radio-option"><input type="radio" name="w-%s" value="%s"%s onchange="setWidget('%s', this.value)"> %s</label>`,
					name, escaped, checked, name, escaped))
			}

		case dashboard.KindSelect:
			current, _ := values[spec.Name].(string)
			buf.WriteString(fmt.Sprintf(`<select id="w-%s" onchange="setWidget('%s', this.value)">`, name, name))
			for _, opt := range spec.Options {
				selected := ""
				if opt == current {
					selected = " selected"
				}
				escaped := template.HTMLEscapeString(opt)
				buf.WriteString(fmt.Sprintf(`<option value="%s"%s>%s</option>`, escaped, selected, escaped))
			}
			buf.WriteString(`</select>`)

		case dashboard.KindInt:
			current, _ := values[spec.Name].(int)
			buf.WriteString(fmt.Sprintf(
				`<input type="number" id="w-%s" value="%d" min="%s" max="%s" step="%s" onchange="setWidget('%s', this.value)">`,
				name, current, formatBound(spec.Min), formatBound(spec.Max), formatBound(spec.Step), name))

		case dashboard.KindFloat:
			current, _ := values[spec.Name].(float64)
			buf.WriteString(fmt.Sprintf(
				`<input type="number" id="w-%s" value="%s" min="%s" max="%s" step="%s" onchange="setWidget('%s', this.value)">`,
				name, formatBound(current), formatBound(spec.Min), formatBound(spec.Max), formatBound(spec.Step), name))

		case dashboard.KindDatetime:
			current, _ := values[spec.Name].(string)
			if len(current) >= 16 {
				current = current[:16]
			}
			buf.WriteString(fmt.Sprintf(
				`<input type="datetime-local" id="w-%s" value="%s" onchange="setWidget('%s', this.value)">`,
				name, current, name))

		case dashboard.KindFile:
			uploaded, _ := values[spec.Name].(string)
			buf.WriteString(fmt.Sprintf(`<input type="file" id="w-%s" onchange="uploadFile(this)">`, name))
			if uploaded != "" {
				buf.WriteString(fmt.Sprintf(`<span class="upload-name">%s</span>`, template.HTMLEscapeString(uploaded)))
			}
		}

		buf.WriteString(`</div>`)
	}
	return template.HTML(buf.String())
}

// formatBound renders a numeric widget bound without trailing zeros.
func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
