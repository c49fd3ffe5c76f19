package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/airline-rank-bot/internal/standings"
	"github.com/i474232898/airline-rank-bot/internal/store"
)

var validate = validator.New()

// Standings is the part of *standings.Service the API exposes.
type Standings interface {
	Latest() (standings.Snapshot, error)
	History(from, to time.Time) ([]standings.Snapshot, error)
	OutputPath() string
	Update(ctx context.Context, trigger standings.Trigger) (standings.Snapshot, error)
}

// Options configures the standings routes.
type Options struct {
	// RunTimeout bounds updates started through the API.
	RunTimeout time.Duration
	// APIToken is the bearer token for POST /standings/update. The route is
	// not mounted when it is empty.
	APIToken string
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service Standings, opts Options) {
	v1 := app.Group("/api/v1")

	v1.Get("/standings/latest", func(c *fiber.Ctx) error {
		snapshot, err := service.Latest()
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no standings computed yet")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch standings")
		}

		return c.JSON(snapshot)
	})

	v1.Get("/standings/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		snapshots, err := service.History(req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no standings history for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch standings history")
		}

		return c.JSON(fiber.Map{
			"from":      req.From,
			"to":        req.To,
			"snapshots": snapshots,
		})
	})

	v1.Get("/standings/image", func(c *fiber.Ctx) error {
		data, err := os.ReadFile(service.OutputPath())
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fiber.NewError(fiber.StatusNotFound, "no table image rendered yet")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read table image")
		}

		c.Type("png")
		return c.Send(data)
	})

	if opts.APIToken == "" {
		return
	}

	v1.Post("/standings/update", requireToken(opts.APIToken), func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), opts.RunTimeout)
		defer cancel()

		snapshot, err := service.Update(ctx, standings.TriggerAPI)
		if err != nil {
			if errors.Is(err, standings.ErrUpdateInProgress) {
				return fiber.NewError(fiber.StatusConflict, "update already in progress")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "update failed")
		}

		return c.JSON(snapshot)
	})
}

// requireToken accepts "Authorization: Bearer <token>" and answers 401 otherwise.
func requireToken(token string) fiber.Handler {
	want := []byte(token)
	return keyauth.New(keyauth.Config{
		Validator: func(_ *fiber.Ctx, key string) (bool, error) {
			if subtle.ConstantTimeCompare([]byte(key), want) == 1 {
				return true, nil
			}
			return false, keyauth.ErrMissingOrMalformedAPIKey
		},
	})
}

// RegisterMetrics exposes the registry in Prometheus text format on /metrics.
func RegisterMetrics(app *fiber.App, gatherer prometheus.Gatherer) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
