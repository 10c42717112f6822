package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"poem-mood/models"
	"poem-mood/storage"
)

const DefaultImportBatchSize = 1000

// OpenFunc öffnet ein Objekt aus einem Bucket.
type OpenFunc func(ctx context.Context, bucket, key string) (io.ReadCloser, error)

// ImportRow ist eine Zeile der Quelldatei nach dem Einlesen.
type ImportRow struct {
	Title   string `validate:"required"`
	Author  string
	Content string
	Views   int
}

// ImportReport fasst einen Import zusammen.
type ImportReport struct {
	Deleted  int64         `json:"deleted"`
	Inserted int           `json:"inserted"`
	Skipped  int           `json:"skipped"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Importer liest Gedichte aus einer CSV-Datei (Title, Author, Content, Views).
type Importer struct {
	Store     storage.Store
	Logger    *zap.Logger
	BatchSize int
	// Reset leert die Sammlung vor dem Import.
	Reset bool
	// OpenObject wird für s3://-Quellen verwendet; nil = nicht konfiguriert.
	OpenObject OpenFunc

	validate *validator.Validate
}

// NewImporter erstellt einen Importer.
func NewImporter(store storage.Store, logger *zap.Logger, batchSize int) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batchSize <= 0 {
		batchSize = DefaultImportBatchSize
	}
	return &Importer{
		Store:     store,
		Logger:    logger,
		BatchSize: batchSize,
		validate:  validator.New(),
	}
}

// Import liest source, ein lokaler Pfad oder s3://bucket/key.
func (im *Importer) Import(ctx context.Context, source string) (ImportReport, error) {
	rc, err := im.open(ctx, source)
	if err != nil {
		return ImportReport{}, err
	}
	defer rc.Close()

	im.Logger.Info("Reading poems", zap.String("source", source))
	return im.ImportFrom(ctx, rc)
}

func (im *Importer) open(ctx context.Context, source string) (io.ReadCloser, error) {
	if bucket, key, ok := storage.ParseS3URI(source); ok {
		if im.OpenObject == nil {
			return nil, fmt.Errorf("s3 source %q given but no S3 client configured", source)
		}
		return im.OpenObject(ctx, bucket, key)
	}
	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", source, err)
	}
	return f, nil
}

type columns struct {
	title, author, content, views int
}

func headerColumns(header []string) (columns, error) {
	cols := columns{title: -1, author: -1, content: -1, views: -1}
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		switch name {
		case "title":
			cols.title = i
		case "author":
			cols.author = i
		case "content":
			cols.content = i
		case "views":
			cols.views = i
		}
	}
	if cols.title < 0 || cols.content < 0 {
		return cols, fmt.Errorf("csv header must contain Title and Content, got %v", header)
	}
	return cols, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// ImportFrom liest CSV aus r und fügt die Gedichte in Stapeln ein.
func (im *Importer) ImportFrom(ctx context.Context, r io.Reader) (ImportReport, error) {
	started := time.Now()
	var rep ImportReport

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return rep, fmt.Errorf("read csv header: %w", err)
	}
	cols, err := headerColumns(header)
	if err != nil {
		return rep, err
	}

	if im.Reset {
		n, err := im.Store.DeleteAll(ctx)
		if err != nil {
			return rep, err
		}
		rep.Deleted = n
		im.Logger.Info("Poems collection cleared", zap.Int64("deleted", n))
	}

	batchSize := im.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultImportBatchSize
	}
	batch := make([]models.Poem, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		batchStart := time.Now()
		if err := im.Store.InsertMany(ctx, batch); err != nil {
			return err
		}
		rep.Inserted += len(batch)
		importedPoems.Add(float64(len(batch)))
		im.Logger.Info("Batch inserted",
			zap.Int("batch", len(batch)),
			zap.Int("total", rep.Inserted),
			zap.Duration("elapsed", time.Since(batchStart)))
		batch = make([]models.Poem, 0, batchSize)
		return nil
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			rep.Skipped++
			im.Logger.Warn("Skipping malformed csv row", zap.Int("line", line), zap.Error(err))
			continue
		}

		row := ImportRow{
			Title:   field(record, cols.title),
			Author:  field(record, cols.author),
			Content: field(record, cols.content),
			Views:   im.parseViews(field(record, cols.views), line),
		}
		if err := im.validate.Struct(row); err != nil {
			rep.Skipped++
			im.Logger.Warn("Skipping invalid row", zap.Int("line", line), zap.Error(err))
			continue
		}

		batch = append(batch, models.NewPoem(row.Title, row.Author, row.Content, row.Views))
		if len(batch) == batchSize {
			if err := ctx.Err(); err != nil {
				return rep, err
			}
			if err := flush(); err != nil {
				return rep, err
			}
		}
	}
	if err := flush(); err != nil {
		return rep, err
	}

	rep.Elapsed = time.Since(started)
	im.Logger.Info("Import finished",
		zap.Int("inserted", rep.Inserted),
		zap.Int("skipped", rep.Skipped),
		zap.Duration("elapsed", rep.Elapsed))
	return rep, nil
}

// parseViews: Unlesbares und negative Werte werden mit Warnung zu 0.
func (im *Importer) parseViews(raw string, line int) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			im.Logger.Warn("Non-numeric views, using 0", zap.Int("line", line), zap.String("views", raw))
			return 0
		}
		n = int(f)
	}
	if n < 0 {
		im.Logger.Warn("Negative views, using 0", zap.Int("line", line), zap.String("views", raw))
		return 0
	}
	return n
}
