package standings

import (
	"time"
)

// RankChange describes how an airline moved in the ranking since the previous run.
type RankChange string

const (
	ChangeUnknown   RankChange = "unknown"
	ChangeUp        RankChange = "up"
	ChangeDown      RankChange = "down"
	ChangeUnchanged RankChange = "unchanged"
)

// Trigger names what started an update run.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
	TriggerAPI       Trigger = "api"
)

// NotApplicable is shown wherever a projection or count is unavailable.
const NotApplicable = "N/A"

// DisplayPolicy decides which fetched airlines end up in the rendered table.
type DisplayPolicy string

const (
	// DisplayAll shows every fetched airline.
	DisplayAll DisplayPolicy = "all"
	// DisplayAboveReference hides airlines with fewer lifetime flights than the reference.
	DisplayAboveReference DisplayPolicy = "above_reference"
)

// Roster is the set of airlines polled on every run.
// ReferenceID must be one of AirlineIDs.
type Roster struct {
	ReferenceID int           `yaml:"reference_id" json:"referenceId"`
	Policy      DisplayPolicy `yaml:"display_policy" json:"displayPolicy"`
	AirlineIDs  []int         `yaml:"airlines" json:"airlines"`
}

// Airline is one ranked row. Pointer counts are nil when FSHub omitted them.
type Airline struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Abbr  string `json:"abbr"`
	Owner string `json:"owner"`

	TotalPilots       *int `json:"totalPilots"`
	TotalFlights      *int `json:"totalFlights"`
	FlightsLast30Days *int `json:"flightsLast30Days"`

	DaysToPass    *int       `json:"daysToPass"`
	DaysToPassStr string     `json:"daysToPassStr"`
	Change        RankChange `json:"change"`
	Reference     bool       `json:"reference"`
}

// Snapshot is the output of a single update run.
type Snapshot struct {
	RunID              string    `json:"runId"`
	Trigger            Trigger   `json:"trigger"`
	GeneratedAt        time.Time `json:"generatedAt"` // always UTC
	ReferenceID        int       `json:"referenceId"`
	ProjectionsEnabled bool      `json:"projectionsEnabled"`
	Airlines           []Airline `json:"airlines"`

	// Omitted lists roster IDs whose fetch failed during this run.
	Omitted []int `json:"omitted,omitempty"`
}

// Reference returns the reference airline row, if it is present.
func (s Snapshot) Reference() (Airline, bool) {
	for _, a := range s.Airlines {
		if a.ID == s.ReferenceID {
			return a, true
		}
	}
	return Airline{}, false
}
