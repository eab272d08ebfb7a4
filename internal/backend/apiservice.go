package backend

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jo-hoe/imageset/internal/backend/commands"
	"github.com/jo-hoe/imageset/internal/backend/commandstructure"
	"github.com/jo-hoe/imageset/internal/backend/database"
	"github.com/jo-hoe/imageset/internal/backend/imageprocessing"
	"github.com/jo-hoe/imageset/internal/backend/runjournal"
	"github.com/labstack/echo/v4"
)

const defaultRunsLimit = 10

// ImageStore is the read side of the record store used by the API.
type ImageStore interface {
	SelectRandom(ctx context.Context) (*database.ImageRecord, error)
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

// RunHistory lists recent ingest runs.
type RunHistory interface {
	RecentRuns(ctx context.Context, n int) ([]runjournal.RunSummary, error)
}

// APIService serves stored images over HTTP. It never writes to the store.
type APIService struct {
	store    ImageStore
	runs     RunHistory
	pipeline *commandstructure.Pipeline
}

type ImageMetadata struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	BatchName    string    `json:"batchName"`
	URL          string    `json:"url"`
	DownloadedAt time.Time `json:"downloadedAt"`
	SizeBytes    int       `json:"sizeBytes"`
}

type randomImageQuery struct {
	Width         int    `query:"width" validate:"gte=0,lte=2048"`
	Height        int    `query:"height" validate:"gte=0,lte=2048"`
	Interpolation string `query:"interpolation" validate:"omitempty,oneof=nearest approx bilinear catmullrom"`
}

type runsQuery struct {
	Limit int `query:"limit" validate:"gte=0,lte=100"`
}

// NewAPIService creates the API. A nil pipeline serves images unchanged.
func NewAPIService(store ImageStore, runs RunHistory, pipeline *commandstructure.Pipeline) *APIService {
	if pipeline == nil {
		pipeline = commandstructure.NewPipeline()
	}
	return &APIService{
		store:    store,
		runs:     runs,
		pipeline: pipeline,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	e.GET("/probe", s.probe)
	e.GET("/images/random", s.randomImage)
	e.GET("/images/random/meta", s.randomImageMeta)
	e.GET("/images/random/raw", s.randomImageRaw)
	e.GET("/images/count", s.imageCount)
	e.GET("/runs", s.recentRuns)
}

func (s *APIService) probe(c echo.Context) error {
	if err := s.store.Ping(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable").SetInternal(err)
	}
	return c.String(http.StatusOK, "image set service is running")
}

func (s *APIService) randomImage(c echo.Context) error {
	var query randomImageQuery
	if err := c.Bind(&query); err != nil {
		return err
	}
	if err := c.Validate(&query); err != nil {
		return err
	}

	record, err := s.selectRandom(c)
	if err != nil {
		return err
	}

	pipeline := s.pipeline
	if query.Width > 0 || query.Height > 0 {
		scale, err := commands.NewPixelScaleCommand(scaleParams(query))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		pipeline = pipeline.With(scale)
	}

	data, err := pipeline.Execute(record.Image)
	if err != nil {
		slog.Error("failed to process image", "id", record.ID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to process image").SetInternal(err)
	}

	setImageHeaders(c, record)
	return c.Blob(http.StatusOK, "image/png", data)
}

func (s *APIService) randomImageMeta(c echo.Context) error {
	record, err := s.selectRandom(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ImageMetadata{
		ID:           record.ID,
		Title:        record.Title,
		BatchName:    record.BatchName,
		URL:          record.URL,
		DownloadedAt: record.DownloadedAt,
		SizeBytes:    len(record.Image),
	})
}

// randomImageRaw returns the image as the dataset's planar 3072-byte buffer.
func (s *APIService) randomImageRaw(c echo.Context) error {
	record, err := s.selectRandom(c)
	if err != nil {
		return err
	}
	raw, err := imageprocessing.PNGToPlanar(record.Image)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "stored image is not a 32x32 PNG").SetInternal(err)
	}
	setImageHeaders(c, record)
	return c.Blob(http.StatusOK, echo.MIMEOctetStream, raw)
}

func (s *APIService) imageCount(c echo.Context) error {
	count, err := s.store.Count(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to count images").SetInternal(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"count": count})
}

func (s *APIService) recentRuns(c echo.Context) error {
	query := runsQuery{Limit: defaultRunsLimit}
	if err := c.Bind(&query); err != nil {
		return err
	}
	if err := c.Validate(&query); err != nil {
		return err
	}

	runs, err := s.runs.RecentRuns(c.Request().Context(), query.Limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read run journal").SetInternal(err)
	}
	if runs == nil {
		runs = []runjournal.RunSummary{}
	}
	return c.JSON(http.StatusOK, runs)
}

func (s *APIService) selectRandom(c echo.Context) (*database.ImageRecord, error) {
	record, err := s.store.SelectRandom(c.Request().Context())
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to select image").SetInternal(err)
	}
	if record == nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "no images stored")
	}
	return record, nil
}

func scaleParams(query randomImageQuery) map[string]any {
	params := map[string]any{}
	if query.Width > 0 {
		params["width"] = query.Width
	}
	if query.Height > 0 {
		params["height"] = query.Height
	}
	if query.Interpolation != "" {
		params["interpolation"] = query.Interpolation
	}
	return params
}

func setImageHeaders(c echo.Context, record *database.ImageRecord) {
	h := c.Response().Header()
	h.Set("X-Image-Id", record.ID)
	h.Set("X-Image-Title", record.Title)
	h.Set("X-Image-Batch", record.BatchName)
	h.Set("X-Image-Url", record.URL)
}
