package aistrack

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/theoremus-urban-solutions/aistrack/ingest"
	"github.com/theoremus-urban-solutions/aistrack/internal"
	"github.com/theoremus-urban-solutions/aistrack/stream"
	"github.com/theoremus-urban-solutions/aistrack/tracking"
	"github.com/theoremus-urban-solutions/aistrack/utils"
)

// NewServer builds the HTTP API over tr. Updates are streamed through hub.
func NewServer(tr *tracking.Tracker, hub *stream.Hub, env *internal.Env) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(recover.New())
	app.Use(logger.New())

	h := &handlers{tracker: tr, hub: hub, env: env}
	app.Get("/api/health", h.health)

	v := app.Group("/target/vessel")
	v.Get("/list", h.list)
	v.Get("/count", h.count)
	v.Get("/track/:mmsi", h.track)
	v.Get("/maxspeed", h.maxSpeedList)
	v.Get("/maxspeed/:mmsi", h.maxSpeed)
	v.Post("/report", h.report)
	v.Get("/:mmsi", h.current)

	stream.RegisterRoutes(app.Group("/stream"), hub)
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

type handlers struct {
	tracker *tracking.Tracker
	hub     *stream.Hub
	env     *internal.Env
}

func (h *handlers) current(c *fiber.Ctx) error {
	mmsi, err := mmsiParam(c)
	if err != nil {
		return err
	}
	v, ok := h.tracker.GetCurrent(c.UserContext(), mmsi)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "target not found")
	}
	return c.JSON(v)
}

func (h *handlers) list(c *fiber.Ctx) error {
	f, err := parseFilter(c)
	if err != nil {
		return err
	}
	return c.JSON(h.tracker.ListCurrent(c.UserContext(), f))
}

func (h *handlers) count(c *fiber.Ctx) error {
	f, err := parseFilter(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"count": h.tracker.CountCurrent(c.UserContext(), f)})
}

func (h *handlers) track(c *fiber.Ctx) error {
	mmsi, err := mmsiParam(c)
	if err != nil {
		return err
	}
	var minDist float64
	if s := c.Query("minDist"); s != "" {
		if minDist, err = strconv.ParseFloat(s, 64); err != nil || minDist < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid minDist")
		}
	}
	age, err := durationQuery(c, "age")
	if err != nil {
		return err
	}
	track, ok := h.tracker.GetHistory(c.UserContext(), mmsi, minDist, age)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "track not found")
	}
	return c.JSON(track)
}

func (h *handlers) maxSpeed(c *fiber.Ctx) error {
	mmsi, err := mmsiParam(c)
	if err != nil {
		return err
	}
	ms, ok := h.tracker.GetMaxSpeed(c.UserContext(), mmsi, c.QueryBool("fallback"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "max speed not found")
	}
	return c.JSON(ms)
}

func (h *handlers) maxSpeedList(c *fiber.Ctx) error {
	return c.JSON(h.tracker.GetMaxSpeedList(c.UserContext()))
}

func (h *handlers) report(c *fiber.Ctx) error {
	r, err := ingest.DecodeReport(c.Body(), h.env.Now())
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	h.tracker.Ingest(r)
	return c.SendStatus(fiber.StatusAccepted)
}

func mmsiParam(c *fiber.Ctx) (int, error) {
	mmsi, err := strconv.Atoi(c.Params("mmsi"))
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid mmsi")
	}
	return mmsi, nil
}

func durationQuery(c *fiber.Ctx, key string) (time.Duration, error) {
	s := c.Query(key)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+key)
	}
	return d, nil
}

// parseFilter reads ttlLive, ttlSat, mmsi and any number of geo parameters.
func parseFilter(c *fiber.Ctx) (*tracking.Filter, error) {
	var (
		f   tracking.Filter
		err error
	)
	if f.TTLLive, err = durationQuery(c, "ttlLive"); err != nil {
		return nil, err
	}
	if f.TTLSat, err = durationQuery(c, "ttlSat"); err != nil {
		return nil, err
	}
	for _, raw := range c.Context().QueryArgs().PeekMulti("mmsi") {
		set, err := tracking.ParseMMSIList(string(raw))
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if f.MMSI == nil {
			f.MMSI = set
			continue
		}
		for m := range set {
			f.MMSI[m] = struct{}{}
		}
	}
	for _, raw := range c.Context().QueryArgs().PeekMulti("geo") {
		a, err := utils.ParseArea(string(raw))
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		f.Areas = append(f.Areas, a)
	}
	return &f, nil
}
