package domain

import "time"

// DateLayout is the calendar-date layout used for storage and the read API.
const DateLayout = "2006-01-02"

// Observation is one parsed, validated daily weather record.
type Observation struct {
	ID            int64     `json:"id,omitempty"`
	Date          time.Time `json:"date"`
	MaxTemp       float64   `json:"max_temp"`
	MinTemp       float64   `json:"min_temp"`
	Precipitation float64   `json:"precipitation"`
}

// NaturalKey is the full tuple used to detect duplicate observations.
// It is comparable and safe to use as a map key.
type NaturalKey struct {
	Date          string
	MaxTemp       float64
	MinTemp       float64
	Precipitation float64
}

// Key returns the observation's natural key.
func (o Observation) Key() NaturalKey {
	return NaturalKey{
		Date:          o.Date.Format(DateLayout),
		MaxTemp:       o.MaxTemp,
		MinTemp:       o.MinTemp,
		Precipitation: o.Precipitation,
	}
}

// Year is the calendar year the observation belongs to.
func (o Observation) Year() int {
	return o.Date.Year()
}

// YearlyStat summarises all observations of one calendar year.
type YearlyStat struct {
	ID                 int64   `json:"id,omitempty"`
	Year               int     `json:"year"`
	AvgMaxTemp         float64 `json:"avg_max_temp"`
	AvgMinTemp         float64 `json:"avg_min_temp"`
	TotalPrecipitation float64 `json:"total_precipitation"`
}

// ObservationFilter narrows an observation listing. Nil bounds are open;
// set bounds are inclusive and compared at day precision.
type ObservationFilter struct {
	From *time.Time
	To   *time.Time
}
