package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mchmarny/defaultrisk/pkg/config"
	"github.com/mchmarny/defaultrisk/pkg/feature"
	"github.com/mchmarny/defaultrisk/pkg/model"
	"github.com/mchmarny/defaultrisk/pkg/scoring"
)

const (
	endpointPredict     = "predict"
	endpointPredictForm = "predict-form"

	msgPredictFailed = "prediction failed"
)

type errorResponse struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
	Invalid []string `json:"invalid,omitempty"`
	Field   string   `json:"field,omitempty"`
	Value   *float64 `json:"value,omitempty"`
	Rule    string   `json:"rule,omitempty"`
	Record  *int     `json:"record,omitempty"`
}

type schemaResponse struct {
	Source     string   `json:"source" yaml:"source"`
	Columns    []string `json:"columns" yaml:"columns"`
	Unknown    []string `json:"unknown,omitempty" yaml:"unknown,omitempty"`
	Validation string   `json:"validation" yaml:"validation"`
	Contract   string   `json:"contract,omitempty" yaml:"contract,omitempty"`
	Threshold  float64  `json:"threshold" yaml:"threshold"`
}

func newSchemaResponse(svc *scoring.Service, contract string) *schemaResponse {
	o := svc.Order()
	return &schemaResponse{
		Source:     o.Source(),
		Columns:    o.Columns(),
		Unknown:    o.Unknown(),
		Validation: string(svc.Mode()),
		Contract:   contract,
		Threshold:  model.DecisionThreshold,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, &errorResponse{Error: msg})
}

func healthAPIHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func schemaAPIHandler(svc *scoring.Service, contract string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, newSchemaResponse(svc, contract))
	}
}

func predictAPIHandler(svc *scoring.Service, contract string, m *metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := decodeRecords(w, r)
		if err != nil {
			m.rejected(endpointPredict, reasonBadRequest)
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		var preds []model.Prediction
		if contract == config.ContractRaw {
			lookups := make([]feature.Lookup, len(records))
			for i, rec := range records {
				lookups[i] = feature.MapLookup(rec)
			}
			preds, err = svc.ScoreRaw(r.Context(), lookups)
		} else {
			preds, err = svc.ScoreEncoded(r.Context(), records)
		}
		if err != nil {
			status, resp, reason := scoringErrorResponse(err)
			m.rejected(endpointPredict, reason)
			writeJSON(w, status, resp)
			return
		}

		m.scored(endpointPredict, preds)
		writeJSON(w, http.StatusOK, preds)
	}
}

// decodeRecords reads a single JSON object or an array of objects.
// Numbers are kept as json.Number so coercion sees the literal.
func decodeRecords(w http.ResponseWriter, r *http.Request) ([]map[string]any, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, serverMaxBodyBytes))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("invalid JSON payload: %w", err)
	}
	if dec.More() {
		return nil, errors.New("invalid JSON payload: unexpected data after the first value")
	}

	switch v := payload.(type) {
	case map[string]any:
		return []map[string]any{v}, nil
	case []any:
		if len(v) == 0 {
			return nil, scoring.ErrNoRecords
		}
		out := make([]map[string]any, len(v))
		for i, item := range v {
			rec, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("record %d is not a JSON object", i)
			}
			out[i] = rec
		}
		return out, nil
	default:
		return nil, errors.New("payload must be a JSON object or an array of objects")
	}
}

// scoringErrorResponse maps a scoring error to its status, body and
// rejection reason.
func scoringErrorResponse(err error) (int, *errorResponse, string) {
	var (
		se *feature.SchemaError
		de *feature.DomainError
		re *scoring.RowError
	)

	switch {
	case errors.As(err, &se):
		return http.StatusBadRequest, &errorResponse{
			Error:   se.Error(),
			Missing: se.Missing,
			Invalid: se.Invalid,
		}, reasonSchema
	case errors.As(err, &de):
		resp := &errorResponse{
			Error: de.Error(),
			Field: de.Field,
			Value: &de.Value,
			Rule:  de.Rule,
		}
		if errors.As(err, &re) {
			resp.Record = &re.Index
		}
		return http.StatusBadRequest, resp, reasonDomain
	case errors.Is(err, scoring.ErrNoRecords):
		return http.StatusBadRequest, &errorResponse{Error: err.Error()}, reasonBadRequest
	default:
		slog.Error("prediction failed", "error", err)
		return http.StatusInternalServerError, &errorResponse{Error: msgPredictFailed}, reasonInternal
	}
}
