package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/shuttlecast/app"
	"github.com/kilianp07/shuttlecast/config"
	coremetrics "github.com/kilianp07/shuttlecast/core/metrics"
	coremon "github.com/kilianp07/shuttlecast/core/monitoring"
	"github.com/kilianp07/shuttlecast/core/prediction"
	"github.com/kilianp07/shuttlecast/infra/logger"
	"github.com/kilianp07/shuttlecast/infra/mqtt"
)

const flightsCSV = `F. Vuelo,Real,ORIGEN,Asientos Promedio
2024-03-04,10:05,MAD,180
2024-03-04,10:10,JFK,300
`

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func init() { gin.SetMode(gin.TestMode) }

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	cfg := config.Default()
	cfg.ReportLog.Path = filepath.Join(t.TempDir(), "runs.jsonl")
	cfg.Server.Metrics = true
	fixed := 95.0
	svc, err := app.New(cfg,
		app.WithPredictor(prediction.NewMockPredictor(prediction.MockConfig{Fixed: &fixed})),
		app.WithAlertPublisher(mqtt.NewMockPublisher()),
		app.WithMetrics(coremetrics.NopSink{}),
		app.WithLogger(logger.NopLogger{}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return SetupRouter(svc)
}

func upload(t *testing.T, r http.Handler, query, filename, content string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/forecasts"+query, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r := newRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	r := newRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestCreateForecast(t *testing.T) {
	r := newRouter(t)
	w := upload(t, r, "", "flights.csv", flightsCSV, map[string]string{"date": "2024-03-04", "start": "10:00", "end": "12:00"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, 0, env.Code)
	var res app.Result
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "flights.csv", res.Source)
	assert.Len(t, res.Report.Slots, 9)
	assert.Equal(t, 2, res.AlertsPublished)

	list := httptest.NewRecorder()
	r.ServeHTTP(list, httptest.NewRequest(http.MethodGet, "/api/v1/forecasts?service_date=2024-03-04&alerts_only=true", nil))
	require.Equal(t, http.StatusOK, list.Code)
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &env))
	var recs []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, res.RunID, recs[0]["run_id"])
}

func TestCreateForecast_CSV(t *testing.T) {
	r := newRouter(t)
	w := upload(t, r, "?format=csv", "flights.csv", flightsCSV, map[string]string{"date": "2024-03-04", "start": "10:30", "end": "11:00"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "slot,index,flights"))
}

func TestCreateForecast_Errors(t *testing.T) {
	r := newRouter(t)
	cases := []struct {
		name     string
		query    string
		filename string
		content  string
		fields   map[string]string
		status   int
	}{
		{"no file", "", "", "", map[string]string{"date": "2024-03-04"}, http.StatusBadRequest},
		{"bad date", "", "flights.csv", flightsCSV, map[string]string{"date": "04/03/2024"}, http.StatusBadRequest},
		{"bad window", "", "flights.csv", flightsCSV, map[string]string{"date": "2024-03-04", "start": "12:00", "end": "10:00"}, http.StatusBadRequest},
		{"bad interval", "", "flights.csv", flightsCSV, map[string]string{"date": "2024-03-04", "interval": "soon"}, http.StatusBadRequest},
		{"bad format", "?format=table", "flights.csv", flightsCSV, map[string]string{"date": "2024-03-04"}, http.StatusBadRequest},
		{"unsupported file", "", "flights.pdf", flightsCSV, map[string]string{"date": "2024-03-04"}, http.StatusBadRequest},
		{"missing columns", "", "flights.csv", "Fecha,Hora\n2024-03-04,10:00\n", map[string]string{"date": "2024-03-04"}, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := upload(t, r, tc.query, tc.filename, tc.content, tc.fields)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
			var env envelope
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
			assert.Equal(t, tc.status, env.Code)
		})
	}
}

func TestListForecasts_BadQuery(t *testing.T) {
	r := newRouter(t)
	for _, q := range []string{"since=yesterday", "alerts_only=maybe", "limit=-1"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/forecasts?"+q, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

type panicMonitor struct{ panics []any }

func (m *panicMonitor) CaptureException(error, map[string]string) {}
func (m *panicMonitor) CapturePanic(r any)                        { m.panics = append(m.panics, r) }
func (m *panicMonitor) Flush(time.Duration)                       {}

func TestHandlerPanicIsReported(t *testing.T) {
	mon := &panicMonitor{}
	coremon.Init(mon)
	defer coremon.Init(coremon.NopMonitor{})

	r := newRouter(t)
	r.GET("/boom", func(*gin.Context) { panic("nil report") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, http.StatusInternalServerError, env.Code)
	assert.Equal(t, []any{"nil report"}, mon.panics)
}
