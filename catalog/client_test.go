package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"couchmatch/catalog"
	"couchmatch/db"
	"couchmatch/feed"
	"couchmatch/models"
	"couchmatch/server"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp/fasthttputil"
)

// serve runs app on an in-memory listener and returns a client connected to it
func serve(t *testing.T, app *fiber.App) *catalog.Client {
	t.Helper()

	ln := fasthttputil.NewInmemoryListener()
	go app.Listener(ln)
	t.Cleanup(func() { app.Shutdown() })

	return catalog.NewClient(catalog.ClientConfig{
		BaseURL: "http://catalog.test",
		Timeout: 2 * time.Second,
		Dial: func(addr string) (net.Conn, error) {
			return ln.Dial()
		},
	})
}

func catalogue(t *testing.T, sofas int) *catalog.Client {
	t.Helper()

	store, err := db.OpenMigrated(db.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	seed := make([]models.Sofa, 0, sofas)
	for i := 1; i <= sofas; i++ {
		seed = append(seed, models.Sofa{Name: fmt.Sprintf("Sofa %d", i), Price: float64(i * 100), Discount: 10})
	}
	_, err = store.Seed(context.Background(), seed)
	require.NoError(t, err)

	return serve(t, server.Server(&server.ServerConfig{Store: store, PageSize: 2}))
}

func TestListSofas(t *testing.T) {
	client := catalogue(t, 3)
	ctx := context.Background()

	first, err := client.ListSofas(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, first.Results, 2)
	require.NotNil(t, first.Next)
	assert.Equal(t, 2, first.Next.Page)
	assert.Equal(t, 90.0, first.Results[0].OriginalPrice)

	last, err := client.ListSofas(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, last.Results, 1)
	assert.Nil(t, last.Next)

	_, err = client.ListSofas(ctx, 3)
	var status *catalog.StatusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, fiber.StatusNotFound, status.Code)
	assert.Equal(t, "Invalid page.", status.Message)
	assert.ErrorIs(t, err, catalog.ErrTransport)
}

func TestFeedOverCatalogue(t *testing.T) {
	client := catalogue(t, 5)
	ctx := context.Background()

	f := feed.New[models.Sofa](ctx, client, feed.Config[models.Sofa]{Key: models.Sofa.Key})
	defer f.Close()

	for i := 0; i < 10 && f.FetchNextPage(ctx); i++ {
	}

	snap := f.Snapshot()
	assert.True(t, snap.IsExhausted)
	assert.Nil(t, snap.Err)
	assert.Len(t, snap.Items, 5)
	assert.Equal(t, 3, snap.Cursor)
}

type fetchErrorCase struct {
	name     string
	handler  fiber.Handler
	expected error
}

func TestFetchPageErrors(t *testing.T) {
	tests := []fetchErrorCase{
		{
			name: "server error",
			handler: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "boom"})
			},
			expected: catalog.ErrTransport,
		},
		{
			name: "not json",
			handler: func(c *fiber.Ctx) error {
				return c.SendString("<html>maintenance</html>")
			},
			expected: catalog.ErrMalformedResponse,
		},
		{
			name: "missing results",
			handler: func(c *fiber.Ctx) error {
				return c.JSON(fiber.Map{"count": 3, "next": nil})
			},
			expected: catalog.ErrMalformedResponse,
		},
	}
	for _, next := range []interface{}{
		true,
		"",
		"not a url",
		"/api/sofas/?page=2",
		"http://catalog.test/api/sofas/",
		0,
		1,
	} {
		next := next
		tests = append(tests, fetchErrorCase{
			name: fmt.Sprintf("bad next token %#v", next),
			handler: func(c *fiber.Ctx) error {
				return c.JSON(fiber.Map{"next": next, "results": []models.Sofa{{Id: 1, Name: "A"}}})
			},
			expected: catalog.ErrMalformedResponse,
		})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{DisableStartupMessage: true})
			app.Get(catalog.ListPath, tt.handler)
			client := serve(t, app)

			_, err := client.FetchPage(context.Background(), 1)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestFetchPageNextTokens(t *testing.T) {
	tests := []struct {
		name     string
		next     interface{}
		expected *int
	}{
		{name: "number", next: 4, expected: intPtr(4)},
		{name: "numeric string", next: "4", expected: intPtr(4)},
		{name: "url", next: "http://catalog.test/api/sofas/?page=4&search=x", expected: intPtr(4)},
		{name: "null", next: nil, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{DisableStartupMessage: true})
			app.Get(catalog.ListPath, func(c *fiber.Ctx) error {
				return c.JSON(fiber.Map{"next": tt.next, "results": []models.Sofa{{Id: 1, Name: "A"}}})
			})
			client := serve(t, app)

			page, err := client.FetchPage(context.Background(), 3)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, page.Next)
			assert.Len(t, page.Items, 1)
		})
	}
}

func TestMalformedNextDoesNotRewindFeed(t *testing.T) {
	var fetches atomic.Int32
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get(catalog.ListPath, func(c *fiber.Ctx) error {
		fetches.Add(1)
		return c.JSON(fiber.Map{"next": "http://catalog.test/api/sofas/", "results": []models.Sofa{{Id: 1, Name: "A"}}})
	})
	client := serve(t, app)

	f := feed.New[models.Sofa](context.Background(), client, feed.Config[models.Sofa]{})
	defer f.Close()

	for i := 0; i < 3; i++ {
		require.True(t, f.FetchNextPage(context.Background()))
	}

	snap := f.Snapshot()
	assert.ErrorIs(t, snap.Err, catalog.ErrMalformedResponse)
	assert.Empty(t, snap.Items)
	assert.Equal(t, 1, snap.Cursor)
	assert.False(t, snap.IsExhausted)
	assert.Equal(t, int32(3), fetches.Load())
}

func TestRequestHonoursContext(t *testing.T) {
	release := make(chan struct{})
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get(catalog.ListPath, func(c *fiber.Ctx) error {
		<-release
		return c.JSON(fiber.Map{"results": []models.Sofa{}})
	})
	client := serve(t, app)
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.ListSofas(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, catalog.ErrTransport)
}

func TestUnreachableHostIsTransportError(t *testing.T) {
	client := catalog.NewClient(catalog.ClientConfig{
		BaseURL: "http://catalog.test",
		Timeout: time.Second,
		Dial: func(addr string) (net.Conn, error) {
			return nil, errors.New("connection refused")
		},
	})

	_, err := client.ListSofas(context.Background(), 1)
	assert.ErrorIs(t, err, catalog.ErrTransport)
}

func TestMatch(t *testing.T) {
	client := catalogue(t, 4)
	ctx := context.Background()
	tomorrow := time.Now().AddDate(0, 0, 1)

	sofas, err := client.Match(ctx, models.Quotation{Budget: 200, Quantity: 1, DeliveryDate: tomorrow})
	require.NoError(t, err)
	assert.Len(t, sofas, 2)

	_, err = client.Match(ctx, models.Quotation{Budget: 0, Quantity: 1, DeliveryDate: tomorrow})
	assert.Error(t, err)

	image := filepath.Join(t.TempDir(), "couch.png")
	require.NoError(t, os.WriteFile(image, []byte("\x89PNG\r\n\x1a\n0000"), 0o600))

	_, err = client.Match(ctx, models.Quotation{Budget: 200, Quantity: 1, DeliveryDate: tomorrow, ImagePath: image})
	var status *catalog.StatusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, fiber.StatusNotImplemented, status.Code)
}

func TestMatchDecodesScoredResults(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Post(catalog.MatchingPath, func(c *fiber.Ctx) error {
		image, err := c.FormFile("image")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: err.Error()})
		}
		if c.FormValue("deliveryDate") == "" || image.Header.Get("Content-Type") != "image/png" {
			return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "bad form"})
		}
		if c.Query("budget") == "1" {
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{Message: "No match data found"})
		}
		return c.SendString(`[{"sofa": {"id": 7, "name": "Velvet", "price": 500, "similarity_score": 87.9}}]`)
	})
	client := serve(t, app)

	image := filepath.Join(t.TempDir(), "couch.png")
	require.NoError(t, os.WriteFile(image, []byte("\x89PNG\r\n\x1a\n0000"), 0o600))
	q := models.Quotation{Budget: 900, Quantity: 2, DeliveryDate: time.Now(), ImagePath: image}

	sofas, err := client.Match(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, sofas, 1)
	assert.Equal(t, "Velvet", sofas[0].Name)
	pct, ok := sofas[0].MatchPercentage()
	assert.True(t, ok)
	assert.Equal(t, 87, pct)

	q.Budget = 1
	_, err = client.Match(context.Background(), q)
	assert.ErrorIs(t, err, catalog.ErrNoMatches)
}

func TestWaitReady(t *testing.T) {
	client := catalogue(t, 1)
	require.NoError(t, client.WaitReady(context.Background(), time.Second))

	down := catalog.NewClient(catalog.ClientConfig{
		BaseURL: "http://catalog.test",
		Dial: func(addr string) (net.Conn, error) {
			return nil, errors.New("connection refused")
		},
	})
	assert.Error(t, down.WaitReady(context.Background(), 300*time.Millisecond))
}

func intPtr(n int) *int {
	return &n
}
