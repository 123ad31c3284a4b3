package cli

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/mchmarny/defaultrisk/pkg/feature"
	"github.com/mchmarny/defaultrisk/pkg/model"
	"github.com/mchmarny/defaultrisk/pkg/scoring"
)

var templateFuncs = template.FuncMap{
	"percent": func(v float64) string {
		return fmt.Sprintf("%.1f%%", v*100)
	},
}

type option struct {
	Value int
	Label string
}

type selectField struct {
	Name    string
	Options []option
}

type formView struct {
	Version   string
	Threshold float64
	Amounts   []string
	Bills     []string
	Payments  []string
	PayStatus []selectField
	Sex       []option
	Education []option
	Marriage  []option
}

type resultView struct {
	Version      string
	ProbaDefault float64
	Prediction   int
	Threshold    float64
}

type errorView struct {
	Version string
	Message string
	Field   string
	Rule    string
}

var (
	educationLabels = map[int]string{1: "graduate school / university", 3: "high school", 4: "other"}
	marriageLabels  = map[int]string{1: "married", 2: "single", 3: "other"}
)

func codeOptions(codes []int, labels map[int]string) []option {
	opts := make([]option, len(codes))
	for i, c := range codes {
		label, ok := labels[c]
		if !ok {
			label = fmt.Sprint(c)
		}
		opts[i] = option{Value: c, Label: label}
	}
	return opts
}

func delayOptions(name string) []option {
	codes := feature.PayStatusCodes(name)
	opts := make([]option, len(codes))
	for i, c := range codes {
		label := "paid duly"
		if c > 0 {
			label = fmt.Sprintf("%d month delay", c)
		}
		opts[i] = option{Value: c, Label: label}
	}
	return opts
}

func newFormView() *formView {
	pay := make([]selectField, len(feature.PayStatusFeatures))
	for i, name := range feature.PayStatusFeatures {
		pay[i] = selectField{Name: name, Options: delayOptions(name)}
	}
	return &formView{
		Version:   version,
		Threshold: model.DecisionThreshold,
		Amounts:   []string{feature.FieldAge, feature.FieldLimit},
		Bills:     feature.BillFeatures,
		Payments:  feature.PaymentFeatures,
		PayStatus: pay,
		Sex:       []option{{0, "0"}, {1, "1"}},
		Education: codeOptions(feature.EducationCodes(), educationLabels),
		Marriage:  codeOptions(feature.MarriageCodes(), marriageLabels),
	}
}

func render(w http.ResponseWriter, tmpl *template.Template, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("template render failed", "template", name, "error", err)
	}
}

func homeViewHandler(tmpl *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		render(w, tmpl, http.StatusOK, "home", newFormView())
	}
}

func predictFormHandler(tmpl *template.Template, svc *scoring.Service, m *metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, serverMaxBodyBytes)
		if err := r.ParseForm(); err != nil {
			m.rejected(endpointPredictForm, reasonBadRequest)
			render(w, tmpl, http.StatusBadRequest, "error", &errorView{
				Version: version,
				Message: "invalid form submission",
			})
			return
		}

		lookup := func(name string) any {
			if vs, ok := r.PostForm[name]; ok && len(vs) > 0 {
				return vs[0]
			}
			return nil
		}

		preds, err := svc.ScoreRaw(r.Context(), []feature.Lookup{lookup})
		if err != nil {
			var de *feature.DomainError
			if errors.As(err, &de) {
				m.rejected(endpointPredictForm, reasonDomain)
				render(w, tmpl, http.StatusBadRequest, "error", &errorView{
					Version: version,
					Message: de.Error(),
					Field:   de.Field,
					Rule:    de.Rule,
				})
				return
			}
			slog.Error("form prediction failed", "error", err)
			m.rejected(endpointPredictForm, reasonInternal)
			render(w, tmpl, http.StatusInternalServerError, "error", &errorView{
				Version: version,
				Message: msgPredictFailed,
			})
			return
		}

		m.scored(endpointPredictForm, preds)
		p := preds[0]
		render(w, tmpl, http.StatusOK, "result", &resultView{
			Version:      version,
			ProbaDefault: p.ProbaDefault,
			Prediction:   p.Prediction,
			Threshold:    model.DecisionThreshold,
		})
	}
}
