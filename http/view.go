package http

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"automiles/ml"
)

//go:embed templates/index.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const logoURL = "https://cdn-icons-png.flaticon.com/512/3202/3202926.png"

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// pageView feeds templates/index.html.
type pageView struct {
	Weight     string
	Min        string
	Max        string
	Step       string
	HelpText   string
	LogoURL    string
	FieldError string

	ModelWarning string
	Warning      string
	Error        string
	Result       *ml.Estimate
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}

// helpText renders the worked example with grouped digits ("3,200 lbs").
func helpText(example float64) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("Enter the weight of the car. Example: %.1f means %d lbs.", example, int(example*1000+0.5))
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

func (h *Handlers) newPage(weight string) pageView {
	view := pageView{
		Weight:   weight,
		Min:      formatWeight(ml.MinWeight),
		Max:      formatWeight(ml.MaxWeight),
		Step:     formatWeight(h.step),
		HelpText: helpText(3.2),
		LogoURL:  logoURL,
	}
	if res := h.models.Load(); !res.OK() {
		view.ModelWarning = h.missingModelMessage()
	}
	return view
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, view pageView) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, view); err != nil {
		h.logger.Error("render page", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
