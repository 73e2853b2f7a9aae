package types

// Station mirrors one row of the station table.
type Station struct {
	ID        int64    `json:"id"`
	Station   string   `json:"station"`
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Elevation *float64 `json:"elevation"`
}

// Measurement mirrors one row of the measurement table. Date is stored and
// emitted as YYYY-MM-DD.
type Measurement struct {
	ID      int64    `json:"id"`
	Station string   `json:"station"`
	Date    string   `json:"date"`
	Prcp    *float64 `json:"prcp"`
	Tobs    *float64 `json:"tobs"`
}

type Precipitation struct {
	Date string
	Prcp *float64
}

// TemperatureSummary holds tobs aggregates; every field is nil when no
// measurement matched.
type TemperatureSummary struct {
	TMin *float64 `json:"TMIN"`
	TAvg *float64 `json:"TAVG"`
	TMax *float64 `json:"TMAX"`
}
