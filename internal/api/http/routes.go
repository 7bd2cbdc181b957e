package httpapi

import (
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/i474232898/site-analytics/internal/importer"
	"github.com/i474232898/site-analytics/internal/ingest"
	"github.com/i474232898/site-analytics/internal/metrics"
	"github.com/i474232898/site-analytics/internal/pagination"
	"github.com/i474232898/site-analytics/internal/store"
)

var validate = validator.New()

// Deps are the collaborators the HTTP handlers need. All of them are
// required.
type Deps struct {
	Sessions  *session.Store
	Cache     *store.SessionCache
	Pipeline  *importer.Pipeline
	Tracker   *importer.Tracker
	Hub       *importer.Hub
	Metrics   *metrics.Collector
	UploadDir string
	Log       zerolog.Logger
}

type handler struct {
	Deps
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	h := &handler{Deps: d}

	app.Post("/import", h.importFiles)

	api := app.Group("/api")
	api.Get("/imports", h.imports)

	stats := api.Group("/statistics")
	stats.Get("/current", h.current)
	stats.Get("/first", h.navigate(pagination.NavFirst))
	stats.Get("/last", h.navigate(pagination.NavLast))
	stats.Get("/next", h.navigate(pagination.NavNext))
	stats.Get("/previous", h.navigate(pagination.NavPrevious))
	stats.Get("/events", h.events)

	app.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))
}

// ErrorHandler renders every error as {"error":true,"message":...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// sessionID returns the caller's session id and refreshes the session so it
// stays alive in the session store.
func (h *handler) sessionID(c *fiber.Ctx) (string, error) {
	sess, err := h.Sessions.Get(c)
	if err != nil {
		return "", fiber.NewError(fiber.StatusInternalServerError, "failed to load session")
	}
	id := sess.ID()
	sess.Set("seen", time.Now().Unix())
	if err := sess.Save(); err != nil {
		return "", fiber.NewError(fiber.StatusInternalServerError, "failed to save session")
	}
	return id, nil
}

// uploadedFile is one part of an import request.
type uploadedFile struct {
	Filename string `validate:"required"`
	Size     int64  `validate:"gt=0"`
}

func (h *handler) importFiles(c *fiber.Ctx) error {
	id, err := h.sessionID(c)
	if err != nil {
		return err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "expected a multipart form with statistics files")
	}
	var files []*multipart.FileHeader
	for _, fhs := range form.File {
		files = append(files, fhs...)
	}
	if len(files) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no files uploaded")
	}
	for _, fh := range files {
		if err := validate.Struct(uploadedFile{Filename: fh.Filename, Size: fh.Size}); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid file %q: %v", fh.Filename, err))
		}
	}

	if err := os.MkdirAll(h.UploadDir, 0o750); err != nil {
		h.Log.Error().Err(err).Str("dir", h.UploadDir).Msg("cannot create upload directory")
		return fiber.NewError(fiber.StatusInternalServerError, "failed to store upload")
	}

	type job struct {
		JobID string `json:"jobId"`
		File  string `json:"file"`
	}
	jobs := make([]job, 0, len(files))
	for _, fh := range files {
		path := filepath.Join(h.UploadDir, uuid.NewString()+".csv")
		if err := c.SaveFile(fh, path); err != nil {
			h.Log.Error().Err(err).Str("file", fh.Filename).Msg("cannot store upload")
			return fiber.NewError(fiber.StatusInternalServerError, "failed to store upload")
		}
		jobID := h.Pipeline.Submit(id, ingest.Upload{Path: path, Filename: fh.Filename, Size: fh.Size})
		jobs = append(jobs, job{JobID: jobID, File: fh.Filename})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"jobs": jobs})
}

func (h *handler) imports(c *fiber.Ctx) error {
	id, err := h.sessionID(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"importing": h.Tracker.Importing(id),
		"jobs":      h.Tracker.Jobs(id),
	})
}

// view returns the caller's cached view, or nil when there is none.
func (h *handler) view(c *fiber.Ctx) (string, *pagination.View, error) {
	id, err := h.sessionID(c)
	if err != nil {
		return "", nil, err
	}
	v, err := h.Cache.Get(id)
	if errors.Is(err, store.ErrNotFound) {
		return id, nil, nil
	}
	return id, v, err
}

func (h *handler) current(c *fiber.Ctx) error {
	id, v, err := h.view(c)
	if err != nil {
		return err
	}
	if v == nil {
		resp := fiber.Map{"result": "none"}
		if st, ok := h.Tracker.Latest(id); ok {
			resp["import"] = st
		}
		return c.JSON(resp)
	}
	return c.JSON(v.Snapshot())
}

// navigate moves the caller's window. The page is what the move returned,
// so next and previous at an edge yield an empty page.
func (h *handler) navigate(nav pagination.Navigation) fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, v, err := h.view(c)
		if err != nil {
			return err
		}
		if v == nil {
			return c.JSON(fiber.Map{})
		}
		return c.JSON(v.Navigate(nav))
	}
}
