package http

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/weather-stats-etl/internal/domain"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// observationQuery holds the query parameters of GET /api/weather.
type observationQuery struct {
	Page      int       `validate:"gte=1"`
	StartDate time.Time
	EndDate   time.Time `validate:"omitempty,gtefield=StartDate"`
}

// statsQuery holds the query parameters of GET /api/weather/stats.
type statsQuery struct {
	Page int `validate:"gte=1"`
	Year int `validate:"omitempty,gte=1,lte=9999"`
}

type observationResponse struct {
	ID            int64   `json:"id"`
	Date          string  `json:"date"`
	MaxTemp       float64 `json:"max_temp"`
	MinTemp       float64 `json:"min_temp"`
	Precipitation float64 `json:"precipitation"`
}

type statResponse struct {
	ID                 int64   `json:"id"`
	Year               int     `json:"year"`
	AvgMaxTemp         float64 `json:"avg_max_temp"`
	AvgMinTemp         float64 `json:"avg_min_temp"`
	TotalPrecipitation float64 `json:"total_precipitation"`
}

func (s *Server) handleObservations(w http.ResponseWriter, r *http.Request) {
	var q observationQuery
	if err := q.bind(r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var f domain.ObservationFilter
	if !q.StartDate.IsZero() {
		f.From = &q.StartDate
	}
	if !q.EndDate.IsZero() {
		f.To = &q.EndDate
	}

	rows, err := s.reader.ListObservations(r.Context(), f, q.Page, s.pages.Observations)
	if err != nil {
		s.logger.Error("list observations failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to query observations")
		return
	}

	out := make([]observationResponse, len(rows))
	for i, o := range rows {
		out[i] = observationResponse{
			ID:            o.ID,
			Date:          o.Date.Format(domain.DateLayout),
			MaxTemp:       o.MaxTemp,
			MinTemp:       o.MinTemp,
			Precipitation: o.Precipitation,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var q statsQuery
	if err := q.bind(r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var year *int
	if q.Year != 0 {
		year = &q.Year
	}
	rows, err := s.reader.ListYearlyStats(r.Context(), year, q.Page, s.pages.Stats)
	if err != nil {
		s.logger.Error("list yearly stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to query yearly stats")
		return
	}

	out := make([]statResponse, len(rows))
	for i, st := range rows {
		out[i] = statResponse(st)
	}
	writeJSON(w, http.StatusOK, out)
}

func (q *observationQuery) bind(v url.Values) error {
	page, err := parsePage(v.Get("page"))
	if err != nil {
		return err
	}
	q.Page = page
	if q.StartDate, err = parseDate("start_date", v.Get("start_date")); err != nil {
		return err
	}
	if q.EndDate, err = parseDate("end_date", v.Get("end_date")); err != nil {
		return err
	}
	return nil
}

func (q *statsQuery) bind(v url.Values) error {
	page, err := parsePage(v.Get("page"))
	if err != nil {
		return err
	}
	q.Page = page
	if s := v.Get("year"); s != "" {
		year, err := strconv.Atoi(s)
		if err != nil {
			return errors.New("year must be an integer")
		}
		q.Year = year
	}
	return nil
}

func parsePage(s string) (int, error) {
	if s == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("page must be an integer")
	}
	return n, nil
}

func parseDate(name, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return time.Time{}, errors.New(name + " must be a date in YYYY-MM-DD form")
	}
	return t, nil
}
