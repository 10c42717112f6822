// Command export sichert die Gedichtsammlung als gzip-komprimierte JSON-Lines
// in einen S3-Bucket und rotiert ältere Exporte.
package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"poem-mood/config"
	"poem-mood/storage"
)

const exportPrefix = "poems-"

type ExportConfig struct {
	Bucket      string `envconfig:"EXPORT_S3_BUCKET" required:"true"`
	Endpoint    string `envconfig:"EXPORT_S3_ENDPOINT"`
	AccessKey   string `envconfig:"EXPORT_S3_ACCESS_KEY"`
	SecretKey   string `envconfig:"EXPORT_S3_SECRET_KEY"`
	Region      string `envconfig:"EXPORT_S3_REGION" default:"us-east-1"`
	KeepExports int    `envconfig:"KEEP_EXPORTS" default:"4"`
	PageSize    int    `envconfig:"EXPORT_PAGE_SIZE" default:"500"`
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	logger.Info("Starting export...")

	var exportCfg ExportConfig
	if err := envconfig.Process("", &exportCfg); err != nil {
		logger.Fatal("Export config load error", zap.Error(err))
	}
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Config load error", zap.Error(err))
	}

	ctx := context.Background()
	store, err := storage.Open(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to poems database", zap.Error(err))
	}
	defer store.Close()

	// 1. Sammlung exportieren
	var buf bytes.Buffer
	count, err := writeExport(ctx, store, &buf, exportCfg.PageSize)
	if err != nil {
		logger.Fatal("Export failed", zap.Error(err))
	}

	// 2. Hochladen
	client, err := storage.NewS3Client(ctx, storage.S3Settings{
		URL:    exportCfg.Endpoint,
		Region: exportCfg.Region,
		Key:    exportCfg.AccessKey,
		Secret: exportCfg.SecretKey,
	})
	if err != nil {
		logger.Fatal("S3 client creation failed", zap.Error(err))
	}
	key := exportKey(time.Now())
	uri, err := storage.UploadFile(ctx, client, exportCfg.Bucket, key, buf.Bytes())
	if err != nil {
		logger.Fatal("Upload failed", zap.Error(err))
	}
	logger.Info("Export uploaded", zap.String("uri", uri), zap.Int("poems", count))

	// 3. Alte Exporte rotieren
	if err := rotateExports(ctx, client, exportCfg, logger); err != nil {
		logger.Fatal("Rotating old exports failed", zap.Error(err))
	}
	logger.Info("Export finished.")
}

func exportKey(now time.Time) string {
	return fmt.Sprintf("%s%s.jsonl.gz", exportPrefix, now.UTC().Format("2006-01-02T15-04-05Z"))
}

// writeExport schreibt jedes Gedicht als eine JSON-Zeile, gzip-komprimiert.
func writeExport(ctx context.Context, store storage.Store, w io.Writer, pageSize int) (int, error) {
	if pageSize <= 0 {
		pageSize = 500
	}
	ids, err := store.FindIDs(ctx, storage.Filter{}, 0)
	if err != nil {
		return 0, err
	}

	gz := gzip.NewWriter(w)
	enc := json.NewEncoder(gz)
	count := 0
	for lo := 0; lo < len(ids); lo += pageSize {
		hi := min(lo+pageSize, len(ids))
		poems, err := store.Find(ctx, storage.Filter{IDs: ids[lo:hi]}, 0)
		if err != nil {
			return count, err
		}
		for i := range poems {
			if err := enc.Encode(&poems[i]); err != nil {
				return count, err
			}
			count++
		}
	}
	if err := gz.Close(); err != nil {
		return count, err
	}
	return count, nil
}

// staleExports liefert die Schlüssel aller Exporte außer den keep neuesten.
func staleExports(objects []types.Object, keep int) []string {
	var exports []types.Object
	for _, obj := range objects {
		if obj.Key != nil && obj.LastModified != nil && strings.HasPrefix(*obj.Key, exportPrefix) {
			exports = append(exports, obj)
		}
	}
	if len(exports) <= keep {
		return nil
	}
	sort.Slice(exports, func(i, j int) bool {
		return exports[i].LastModified.After(*exports[j].LastModified)
	})
	keys := make([]string, 0, len(exports)-keep)
	for _, obj := range exports[keep:] {
		keys = append(keys, *obj.Key)
	}
	return keys
}

func rotateExports(ctx context.Context, client *s3.Client, cfg ExportConfig, logger *zap.Logger) error {
	output, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(cfg.Bucket),
		Prefix: aws.String(exportPrefix),
	})
	if err != nil {
		return err
	}

	stale := staleExports(output.Contents, cfg.KeepExports)
	if len(stale) == 0 {
		logger.Info("No rotation needed", zap.Int("keep", cfg.KeepExports))
		return nil
	}
	for _, key := range stale {
		logger.Info("Deleting old export", zap.String("key", key))
		_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(cfg.Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			logger.Warn("Deleting old export failed", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}
