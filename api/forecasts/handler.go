// Package forecasts exposes forecast runs over HTTP.
package forecasts

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kilianp07/shuttlecast/app"
	"github.com/kilianp07/shuttlecast/core/flights"
	"github.com/kilianp07/shuttlecast/core/reportlog"
	"github.com/kilianp07/shuttlecast/core/scheduler"
	"github.com/kilianp07/shuttlecast/pkg/export"
	"github.com/kilianp07/shuttlecast/pkg/response"
)

// Handler serves /api/v1/forecasts.
type Handler struct {
	svc *app.Service
}

// NewHandler creates a forecast handler.
func NewHandler(svc *app.Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the routes on g.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.POST("", h.Create)
	g.GET("", h.List)
}

// Create handles POST /api/v1/forecasts. The multipart form carries the
// flight file in "file" and the service date in "date"; "start", "end" and
// "interval" override the window. ?format=csv returns the slots as CSV.
func (h *Handler) Create(c *gin.Context) {
	cfg := h.svc.Config()
	format, err := export.ParseFormat(c.DefaultQuery("format", "json"))
	if err != nil || format == export.FormatTable {
		response.BadRequest(c, "format must be json or csv")
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing flight file in form field \"file\"")
		return
	}
	if fh.Size > int64(cfg.Server.MaxUploadMB)<<20 {
		response.Error(c, http.StatusRequestEntityTooLarge, "flight file too large")
		return
	}
	date, err := cfg.Service.ParseDate(c.PostForm("date"))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	interval := 0
	if s := c.PostForm("interval"); s != "" {
		if interval, err = strconv.Atoi(s); err != nil {
			response.BadRequest(c, "interval must be a whole number of minutes")
			return
		}
	}
	window, err := app.WindowOverride(cfg.Service.Window, c.PostForm("start"), c.PostForm("end"), interval)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	defer f.Close()
	batch, err := h.svc.Ingest(f, fh.Filename)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	res, err := h.svc.Forecast(c.Request.Context(), batch, app.Request{ServiceDate: date, Window: window, Source: fh.Filename})
	if err != nil {
		writeRunError(c, err)
		return
	}
	if format == export.FormatCSV {
		c.Header("Content-Disposition", "attachment; filename=forecast-"+res.Report.ServiceDate+".csv")
		c.Header("Content-Type", "text/csv")
		c.Status(http.StatusOK)
		if err := export.WriteCSV(c.Writer, res.Report); err != nil {
			_ = c.Error(err)
		}
		return
	}
	response.Success(c, res)
}

func writeRunError(c *gin.Context, err error) {
	var (
		ve  *flights.ValidationError
		sce *scheduler.ConfigurationError
	)
	switch {
	case errors.As(err, &ve):
		response.Unprocessable(c, err.Error(), gin.H{"missing_columns": ve.Missing})
	case errors.As(err, &sce):
		response.BadRequest(c, err.Error())
	case errors.Is(err, context.Canceled):
		response.Error(c, 499, "request cancelled")
	default:
		response.InternalError(c, err.Error())
	}
}

// List handles GET /api/v1/forecasts. Filters: service_date, since and
// until (RFC3339), alerts_only and limit (default 50).
func (h *Handler) List(c *gin.Context) {
	q := reportlog.Query{ServiceDate: c.Query("service_date"), Limit: 50}
	for key, dst := range map[string]*time.Time{"since": &q.Since, "until": &q.Until} {
		if s := c.Query(key); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				response.BadRequest(c, key+" must be RFC3339")
				return
			}
			*dst = t
		}
	}
	if s := c.Query("alerts_only"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			response.BadRequest(c, "alerts_only must be a boolean")
			return
		}
		q.AlertsOnly = v
	}
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			response.BadRequest(c, "limit must be a non-negative integer")
			return
		}
		q.Limit = n
	}

	recs, err := h.svc.History(c.Request.Context(), q)
	if errors.Is(err, app.ErrNoHistory) {
		response.Error(c, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	if c.Query("summary") == "true" {
		response.Success(c, export.HistoryRows(recs))
		return
	}
	response.Success(c, recs)
}
