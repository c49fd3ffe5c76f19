package fshub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/airline-rank-bot/internal/standings"
)

// DefaultBaseURL is the FSHub v3 API root.
const DefaultBaseURL = "https://fshub.io/api/v3"

// ErrMissingField is returned when FSHub omits a field the table cannot do without.
var ErrMissingField = errors.New("missing expected field")

// Client implements standings.Source against the FSHub airline API.
type Client struct {
	name    string
	token   string
	baseURL string
	http    *http.Client
	retry   retryPolicy
	circuit *gobreaker.CircuitBreaker
}

// NewClient creates a Client. An empty baseURL selects DefaultBaseURL and a
// nil client selects http.DefaultClient.
func NewClient(client *http.Client, baseURL, token string) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:         "fshub",
		MaxRequests:  5,
		Interval:     1 * time.Minute,
		Timeout:      2 * time.Minute,
		IsSuccessful: breakerSuccess,
	})

	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &Client{
		name:    "fshub",
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
		retry: retryPolicy{
			MaxRetries: 3,
			BaseDelay:  500 * time.Millisecond,
			MaxDelay:   30 * time.Second,
		},
		circuit: cb,
	}
}

func (c *Client) Name() string {
	return c.name
}

type airlinePayload struct {
	Data struct {
		ID    *int    `json:"id"`
		Name  *string `json:"name"`
		Abbr  *string `json:"abbr"`
		Owner *struct {
			Name *string `json:"name"`
		} `json:"owner"`
	} `json:"data"`
}

type flightTotals struct {
	TotalFlights *int `json:"total_flights"`
}

type statsPayload struct {
	Data *struct {
		TotalPilots *int          `json:"total_pilots"`
		AllTime     *flightTotals `json:"all_time"`
		Month       *flightTotals `json:"month"`
	} `json:"data"`
}

// FetchAirline combines the airline profile and its statistics into one row.
func (c *Client) FetchAirline(ctx context.Context, id int) (standings.Airline, error) {
	if c.token == "" {
		return standings.Airline{}, fmt.Errorf("fshub token is not configured")
	}

	var profile airlinePayload
	if err := c.getJSON(ctx, fmt.Sprintf("%s/airline/%d", c.baseURL, id), &profile); err != nil {
		return standings.Airline{}, fmt.Errorf("fetch airline %d: %w", id, err)
	}

	var stats statsPayload
	if err := c.getJSON(ctx, fmt.Sprintf("%s/airline/%d/stats", c.baseURL, id), &stats); err != nil {
		return standings.Airline{}, fmt.Errorf("fetch stats %d: %w", id, err)
	}

	p := profile.Data
	switch {
	case p.ID == nil:
		return standings.Airline{}, fmt.Errorf("airline %d: %w: id", id, ErrMissingField)
	case p.Name == nil:
		return standings.Airline{}, fmt.Errorf("airline %d: %w: name", id, ErrMissingField)
	case p.Abbr == nil:
		return standings.Airline{}, fmt.Errorf("airline %d: %w: abbr", id, ErrMissingField)
	case p.Owner == nil || p.Owner.Name == nil:
		return standings.Airline{}, fmt.Errorf("airline %d: %w: owner.name", id, ErrMissingField)
	case stats.Data == nil:
		return standings.Airline{}, fmt.Errorf("airline %d: %w: stats data", id, ErrMissingField)
	}

	a := standings.Airline{
		ID:          *p.ID,
		Name:        *p.Name,
		Abbr:        *p.Abbr,
		Owner:       *p.Owner.Name,
		TotalPilots: stats.Data.TotalPilots,
		Change:      standings.ChangeUnknown,
	}
	if stats.Data.AllTime != nil {
		a.TotalFlights = stats.Data.AllTime.TotalFlights
	}
	if stats.Data.Month != nil {
		a.FlightsLast30Days = stats.Data.Month.TotalFlights
	}
	return a, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	resp, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
