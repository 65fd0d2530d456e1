// Package form serves the purchase prediction page and its JSON API.
package form

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"tourismprj/internal/logger"
	"tourismprj/internal/model"
	"tourismprj/internal/predict"
	"tourismprj/internal/schema"
)

const (
	cookieName          = "tourism_session"
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
	maxBodyBytes        = 1 << 20
)

//go:embed templates/index.html
var templates embed.FS

var pageTemplate = template.Must(template.ParseFS(templates, "templates/index.html"))

type Predictor interface {
	Predict(ctx context.Context, input map[string]string) predict.Outcome
	Schema() *schema.Schema
	ModelVersion() string
}

// History lists audited predictions. Optional.
type History interface {
	Recent(ctx context.Context, limit int) ([]model.Prediction, error)
}

type Handler struct {
	Service Predictor
	States  StateStore
	History History
	Log     *logger.Logger
}

type page struct {
	Fields  []fieldView
	Outcome *predict.Outcome
}

type fieldView struct {
	Name    string
	Label   string
	Value   string
	Error   string
	Select  bool
	Options []optionView
	Min     string
	Max     string
	Step    string
}

type optionView struct {
	Value    string
	Selected bool
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	sid := h.session(w, r)

	values, err := h.States.Get(r.Context(), sid)
	if err != nil {
		h.Log.Warn("could not load form state", "session", sid, "error", err)
	}
	h.render(w, h.view(values, nil))
}

// Predict handles a form submission and re-renders the page with the result
// panel or an inline error. Submitted values are kept in the inputs.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	sid := h.session(w, r)

	input := make(map[string]string)
	for _, name := range h.Service.Schema().Names() {
		input[name] = strings.TrimSpace(r.PostForm.Get(name))
	}
	if err := h.States.Save(r.Context(), sid, input); err != nil {
		h.Log.Warn("could not save form state", "session", sid, "error", err)
	}

	out := h.Service.Predict(r.Context(), input)
	h.render(w, h.view(input, &out))
}

// APIPredict accepts one JSON object of feature values. Numbers and
// booleans are accepted alongside strings.
func (h *Handler) APIPredict(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	input, err := stringValues(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	out := h.Service.Predict(r.Context(), input)
	status := http.StatusOK
	if !out.OK() {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, out)
}

func (h *Handler) RecentPredictions(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		http.NotFound(w, r)
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	rows, err := h.History.Recent(r.Context(), limit)
	if err != nil {
		h.Log.Error("could not list predictions", "error", err)
		http.Error(w, "could not list predictions", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []model.Prediction{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":        "ok",
		"model_version": h.Service.ModelVersion(),
	})
}

// session returns the browser's session id, issuing a new cookie when the
// request carries none or an invalid one.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(cookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (h *Handler) view(values map[string]string, out *predict.Outcome) page {
	sch := h.Service.Schema()
	var errs map[string]string
	if out != nil {
		errs = out.FieldErrors
	}

	fields := make([]fieldView, 0, len(sch.Fields))
	for _, f := range sch.Fields {
		v, ok := values[f.Name]
		if !ok {
			v = f.DefaultValue()
		}
		fv := fieldView{
			Name:   f.Name,
			Label:  f.Label,
			Value:  v,
			Error:  errs[f.Name],
			Select: f.IsSelect(),
		}
		if fv.Select {
			for _, o := range f.Options() {
				fv.Options = append(fv.Options, optionView{Value: o, Selected: strings.EqualFold(o, v)})
			}
		} else {
			fv.Min = formatBound(f.Min)
			fv.Max = formatBound(f.Max)
			fv.Step = "1"
			if f.Kind == schema.KindFloat {
				fv.Step = "any"
			}
		}
		fields = append(fields, fv)
	}
	return page{Fields: fields, Outcome: out}
}

func (h *Handler) render(w http.ResponseWriter, p page) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, p); err != nil {
		h.Log.Error("render page", "error", err)
		http.Error(w, "could not render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func formatBound(b *float64) string {
	if b == nil {
		return ""
	}
	return strconv.FormatFloat(*b, 'f', -1, 64)
}

func stringValues(body map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(body))
	for k, v := range body {
		switch t := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = t
		case json.Number:
			out[k] = t.String()
		case bool:
			if t {
				out[k] = "1"
			} else {
				out[k] = "0"
			}
		default:
			return nil, fmt.Errorf("field %s: unsupported value type %T", k, v)
		}
	}
	return out, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
