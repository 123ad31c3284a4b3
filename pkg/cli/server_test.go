package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/mchmarny/defaultrisk/pkg/config"
	"github.com/mchmarny/defaultrisk/pkg/feature"
	"github.com/mchmarny/defaultrisk/pkg/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, contract string, mode feature.Mode) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(makeRouter(testService(t, mode), contract, prometheus.NewRegistry()))
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, ts *httptest.Server, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	switch v := body.(type) {
	case string:
		r = strings.NewReader(v)
	default:
		b, err := json.Marshal(v)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	resp, err := http.Post(ts.URL+"/predict", "application/json", r)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, config.ContractEncoded, feature.ModeStrict)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "ok", out["status"])
}

func TestRequestID_Echoed(t *testing.T) {
	ts := newTestServer(t, config.ContractEncoded, feature.ModeStrict)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set(requestIDHeader, "abc-123")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get(requestIDHeader))
}

func TestHomeView(t *testing.T) {
	ts := newTestServer(t, config.ContractEncoded, feature.ModeStrict)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	for _, n := range []string{"LIMIT_BAL", "PAY_6", "BILL_AMT3", "PAY_AMT1", "EDUCATION", "MARRIAGE"} {
		assert.Contains(t, string(b), `name="`+n+`"`)
	}
}

func TestPredict_Encoded(t *testing.T) {
	ts := newTestServer(t, config.ContractEncoded, feature.ModeStrict)

	late := encodedRecord()
	late["PAY_0"] = 2

	resp, b := postJSON(t, ts, []map[string]any{encodedRecord(), late})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(b))

	var preds []model.Prediction
	require.NoError(t, json.Unmarshal(b, &preds))
	require.Len(t, preds, 2)
	assert.InDelta(t, 0.2689, preds[0].ProbaDefault, 0.001)
	assert.Equal(t, 0, preds[0].Prediction)
	assert.InDelta(t, 0.8808, preds[1].ProbaDefault, 0.001)
	assert.Equal(t, 1, preds[1].Prediction)
}

func TestPredict_SingleObject(t *testing.T) {
	ts := newTestServer(t, config.ContractEncoded, feature.ModeStrict)

	resp, b := postJSON(t, ts, encodedRecord())
	require.Equal(t, http.StatusOK, resp.StatusCode, string(b))

	var preds []model.Prediction
	require.NoError(t, json.Unmarshal(b, &preds))
	assert.Len(t, preds, 1)
}

func TestPredict_MissingColumn(t *testing.T) {
	ts := newTestServer(t, config.ContractEncoded, feature.ModeStrict)

	rec := encodedRecord()
	delete(rec, "LIMIT_BAL")

	resp, b := postJSON(t, ts, rec)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out errorResponse
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, []string{"LIMIT_BAL"}, out.Missing)
	assert.NotEmpty(t, out.Error)
}

func TestPredict_DomainError(t *testing.T) {
	ts := newTestServer(t, config.ContractEncoded, feature.ModeStrict)

	bad := encodedRecord()
	bad["PAY_5"] = 1

	resp, b := postJSON(t, ts, []map[string]any{encodedRecord(), bad})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out errorResponse
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "PAY_5", out.Field)
	require.NotNil(t, out.Value)
	assert.Equal(t, 1.0, *out.Value)
	assert.NotEmpty(t, out.Rule)
	require.NotNil(t, out.Record)
	assert.Equal(t, 1, *out.Record)
}

func TestPredict_Raw(t *testing.T) {
	ts := newTestServer(t, config.ContractRaw, feature.ModeStrict)

	rec := rawRecord()
	rec["AGE"] = "not-a-number"
	resp, b := postJSON(t, ts, rec)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(b))

	bad := rawRecord()
	bad["EDUCATION"] = 2
	resp, b = postJSON(t, ts, bad)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out errorResponse
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, feature.FieldEducation, out.Field)
}

func TestPredict_RawLenient(t *testing.T) {
	ts := newTestServer(t, config.ContractRaw, feature.ModeLenient)

	rec := rawRecord()
	rec["PAY_5"] = 0
	rec["EDUCATION"] = 2
	resp, b := postJSON(t, ts, rec)
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(b))
}

func TestPredict_BadRequests(t *testing.T) {
	ts := newTestServer(t, config.ContractEncoded, feature.ModeStrict)

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"AGE": `},
		{"empty batch", `[]`},
		{"scalar", `42`},
		{"non-object record", `[1, 2]`},
		{"trailing data", `{} {}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, b := postJSON(t, ts, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var out errorResponse
			require.NoError(t, json.Unmarshal(b, &out))
			assert.NotEmpty(t, out.Error)
		})
	}
}

func TestPredictForm(t *testing.T) {
	ts := newTestServer(t, config.ContractEncoded, feature.ModeStrict)

	form := url.Values{}
	for k, v := range rawRecord() {
		form.Set(k, v.(string))
	}
	form.Set("PAY_0", "2")

	resp, err := http.PostForm(ts.URL+"/predict-form", form)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(b), "88.1%")
	assert.Contains(t, string(b), `<strong id="prediction">1</strong>`)
}

func TestPredictForm_EveryOptionAccepted(t *testing.T) {
	ts := newTestServer(t, config.ContractEncoded, feature.ModeStrict)
	view := newFormView()

	choices := map[string][]option{
		feature.FieldSex:       view.Sex,
		feature.FieldEducation: view.Education,
		feature.FieldMarriage:  view.Marriage,
	}
	for _, f := range view.PayStatus {
		choices[f.Name] = f.Options
	}

	for name, opts := range choices {
		for _, o := range opts {
			form := url.Values{}
			for k, v := range rawRecord() {
				form.Set(k, v.(string))
			}
			form.Set(name, strconv.Itoa(o.Value))

			resp, err := http.PostForm(ts.URL+"/predict-form", form)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode, "%s=%d", name, o.Value)
		}
	}
}

func TestHomeView_StrictOptions(t *testing.T) {
	ts := newTestServer(t, config.ContractEncoded, feature.ModeStrict)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	body := string(b)
	assert.NotContains(t, body, `<option value="2">university</option>`)
	assert.Contains(t, body, `<option value="1">graduate school / university</option>`)

	start := strings.Index(body, `<select id="PAY_5"`)
	require.GreaterOrEqual(t, start, 0)
	end := strings.Index(body[start:], "</select>")
	require.Greater(t, end, 0)
	pay5 := body[start : start+end]
	assert.NotContains(t, pay5, `<option value="1">`)
	assert.Contains(t, pay5, `<option value="2">`)
}

func TestPredictForm_DomainError(t *testing.T) {
	ts := newTestServer(t, config.ContractEncoded, feature.ModeStrict)

	form := url.Values{}
	for k, v := range rawRecord() {
		form.Set(k, v.(string))
	}
	form.Set("PAY_6", "1")

	resp, err := http.PostForm(ts.URL+"/predict-form", form)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(b), "PAY_6")
}

func TestSchemaAPI(t *testing.T) {
	ts := newTestServer(t, config.ContractRaw, feature.ModeLenient)

	resp, err := http.Get(ts.URL + "/schema")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out schemaResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, feature.OrderSourceModel, out.Source)
	assert.Equal(t, feature.AllFeatures, out.Columns)
	assert.Equal(t, "lenient", out.Validation)
	assert.Equal(t, config.ContractRaw, out.Contract)
	assert.Equal(t, model.DecisionThreshold, out.Threshold)
}

func TestMetrics(t *testing.T) {
	ts := newTestServer(t, config.ContractEncoded, feature.ModeStrict)

	resp, _ := postJSON(t, ts, encodedRecord())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	bad := encodedRecord()
	delete(bad, "AGE")
	resp, _ = postJSON(t, ts, bad)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	mresp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close()
	b, err := io.ReadAll(mresp.Body)
	require.NoError(t, err)

	body := string(b)
	assert.Contains(t, body, `defaultrisk_predictions_total{endpoint="predict",prediction="0"} 1`)
	assert.Contains(t, body, `defaultrisk_rejections_total{endpoint="predict",reason="schema"} 1`)
	assert.Contains(t, body, `defaultrisk_http_request_duration_seconds_count{code="200",route="POST /predict"} 1`)
}
