package server

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"couchmatch/db"
	"couchmatch/models"
	"couchmatch/query"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cache"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

const (
	DefaultPageSize    = 10
	DefaultMaxPageSize = 100
)

type ServerConfig struct {
	// The catalogue to serve
	Store *db.DB

	// Page size used when a request does not ask for one
	PageSize int

	// Upper bound of the page_size query parameter
	MaxPageSize int

	// Comma separated list of origins allowed to call the API
	AllowOrigins string

	// How long listing responses are cached, zero disables the cache
	CacheExpiration time.Duration
}

// Returns a fiber.App instance serving the sofa catalogue
func Server(config *ServerConfig) *fiber.App {
	if config.PageSize < 1 {
		config.PageSize = DefaultPageSize
	}
	if config.MaxPageSize < config.PageSize {
		config.MaxPageSize = max(DefaultMaxPageSize, config.PageSize)
	}
	if config.AllowOrigins == "" {
		config.AllowOrigins = "*"
	}

	app := fiber.New(fiber.Config{
		AppName:               "couchmatch",
		DisableStartupMessage: true,
	})

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		latency := time.Since(start)
		route := c.Route().Path
		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}

		requestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		requestDuration.WithLabelValues(c.Method(), route).Observe(latency.Seconds())

		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   route,
			"status":  status,
			"latency": latency,
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: config.AllowOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Accept,Content-Type,Cache-Control",
	}))

	// Only listing pages are cached, keyed by the full URI
	app.Use(cache.New(cache.Config{
		Next: func(c *fiber.Ctx) bool {
			if config.CacheExpiration <= 0 || c.Method() != fiber.MethodGet {
				return true
			}
			return !strings.HasPrefix(c.Path(), "/api/sofas")
		},
		Expiration: config.CacheExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.Request().URI().String()
		},
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if err := config.Store.Ping(c.UserContext()); err != nil {
			log.WithFields(log.Fields{
				"error": err,
			}).Error("Catalogue database unreachable")
			return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{Error: "Database unreachable"})
		}
		return c.SendString("OK")
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Routing is not strict, the trailing slash is optional
	app.Get("/api/sofas/", listSofas(config))
	app.Get("/api/sofas/:id<int>/", getSofa(config))
	app.Post("/api/sofas/matching/", matchSofas(config))

	return app
}

// listSofas serves page number pagination in the shape
// {count, next, previous, results} where next and previous are absolute URLs
func listSofas(config *ServerConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, err := strconv.Atoi(c.Query("page", "1"))
		if err != nil || page < 1 {
			return invalidPage(c)
		}

		size := c.QueryInt("page_size", config.PageSize)
		if size < 1 {
			size = config.PageSize
		}
		size = min(size, config.MaxPageSize)

		filters := []query.FilterStrategy{}
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			filters = append(filters, &query.NameFilter{Term: search})
		}
		if c.QueryBool("in_stock") {
			filters = append(filters, &query.InStockFilter{})
		}

		sofas, count, err := config.Store.ListSofas(c.UserContext(), page, size, filters...)
		if err != nil {
			log.WithFields(log.Fields{
				"page":  page,
				"error": err,
			}).Error("Error listing sofas")
			return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "Error listing sofas"})
		}

		// The first page always exists, even for an empty catalogue
		if page > 1 && len(sofas) == 0 {
			return invalidPage(c)
		}

		resp := models.SofaPage{
			Count:   &count,
			Results: sofas,
		}
		if page*size < count {
			resp.Next = &models.PageRef{Page: page + 1, URL: pageURL(c, page+1)}
		}
		if page > 1 {
			resp.Previous = &models.PageRef{Page: page - 1, URL: pageURL(c, page-1)}
		}

		log.WithFields(log.Fields{
			"page":  page,
			"size":  size,
			"count": count,
		}).Debug("Listed sofas")

		return c.JSON(resp)
	}
}

// matchSofas filters the catalogue by budget. Similarity scoring of uploaded
// images is not done by this server.
func matchSofas(config *ServerConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Query("budget")
		if raw == "" {
			raw = c.FormValue("budget")
		}

		filters := []query.FilterStrategy{}
		if raw != "" {
			budget, err := strconv.ParseFloat(raw, 64)
			if err != nil || budget <= 0 {
				return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "could not convert budget to a positive number: " + raw})
			}
			filters = append(filters, &query.BudgetFilter{Max: budget})
		}

		if image, err := c.FormFile("image"); err == nil && image != nil {
			log.WithFields(log.Fields{
				"filename": image.Filename,
				"size":     image.Size,
			}).Warn("Rejected image match request")
			return c.Status(fiber.StatusNotImplemented).JSON(models.ErrorResponse{Error: "Image matching is not available on this server"})
		}

		sofas, err := config.Store.MatchSofas(c.UserContext(), filters...)
		if err != nil {
			log.WithFields(log.Fields{
				"budget": raw,
				"error":  err,
			}).Error("Error matching sofas")
			return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "Error matching sofas"})
		}

		log.WithFields(log.Fields{
			"budget": raw,
			"count":  len(sofas),
		}).Info("Matched sofas")

		return c.JSON(sofas)
	}
}

func getSofa(config *ServerConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return notFound(c)
		}

		sofa, err := config.Store.GetSofa(c.UserContext(), int64(id))
		if errors.Is(err, db.ErrNotFound) {
			return notFound(c)
		}
		if err != nil {
			log.WithFields(log.Fields{
				"id":    id,
				"error": err,
			}).Error("Error getting sofa")
			return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "Error getting sofa"})
		}

		return c.JSON(sofa)
	}
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{Detail: "Not found."})
}

func invalidPage(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{Detail: "Invalid page."})
}

// pageURL is the absolute URL of the current request with its page replaced.
// The first page is linked without a page parameter.
func pageURL(c *fiber.Ctx, page int) string {
	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)

	c.Request().URI().QueryArgs().CopyTo(args)
	if page == 1 {
		args.Del("page")
	} else {
		args.SetUint("page", page)
	}

	url := c.BaseURL() + c.Path()
	if args.Len() > 0 {
		url += "?" + args.String()
	}
	return url
}
