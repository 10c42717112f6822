package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"poem-mood/config"
	"poem-mood/models"
)

// insertBatchSize begrenzt die Zeilen pro INSERT (SQLite erlaubt nur begrenzt viele Parameter).
const insertBatchSize = 200

// GormStore implementiert Store über gorm (PostgreSQL oder SQLite).
type GormStore struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

var _ Store = (*GormStore)(nil)

// Open verbindet sich mit der konfigurierten Datenbank und migriert das Schema.
func Open(cfg *config.Config, log *zap.Logger) (*GormStore, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	case "sqlite":
		dialector = sqlite.Open(cfg.DBPath)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.DBDriver, err)
	}

	s := NewGormStore(db, log)
	if err := s.Ping(context.Background()); err != nil {
		_ = s.Close()
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		_ = s.Close()
		return nil, err
	}
	log.Info("Successfully connected to poems database.", zap.String("driver", cfg.DBDriver))
	return s, nil
}

// NewGormStore kapselt eine bestehende gorm-Verbindung.
func NewGormStore(db *gorm.DB, log *zap.Logger) *GormStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &GormStore{DB: db, Logger: log}
}

// Migrate legt Tabellen und Indizes an.
func (s *GormStore) Migrate() error {
	if err := s.DB.AutoMigrate(&models.Poem{}, &models.Interaction{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// Ping prüft, ob die Datenbank erreichbar ist.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// Close schließt den Verbindungspool.
func (s *GormStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) query(ctx context.Context, filter Filter) *gorm.DB {
	q := s.DB.WithContext(ctx).Model(&models.Poem{})

	if len(filter.IDs) > 0 {
		q = q.Where("id IN ?", filter.IDs)
	}
	if filter.PrimaryUnset {
		q = q.Where(models.ColPrimarySentiment + " IS NULL")
	}
	if filter.PrimarySet {
		q = q.Where(models.ColPrimarySentiment + " IS NOT NULL")
	}
	if filter.SecondaryUnset {
		q = q.Where(models.ColSecondarySentiment + " IS NULL")
	}
	if filter.KeywordsPending {
		q = q.Where(models.ColKeywords + " IS NULL")
	}
	if filter.Feeling != "" {
		q = q.Where(models.ColGoodForFeeling+` LIKE ? ESCAPE '\'`, containsPattern(filter.Feeling))
	}
	if filter.Keyword != "" {
		q = q.Where(models.ColKeywords+` LIKE ? ESCAPE '\'`, containsPattern(filter.Keyword))
	}
	return q
}

// containsPattern baut ein LIKE-Muster, das ein Element der JSON-Liste exakt trifft.
func containsPattern(value string) string {
	quoted, _ := models.TagSet{value}.Value()
	elem := strings.TrimSuffix(strings.TrimPrefix(quoted.(string), "["), "]")
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(elem) + "%"
}

// Find lädt passende Gedichte in ID-Reihenfolge. limit <= 0 bedeutet unbegrenzt.
func (s *GormStore) Find(ctx context.Context, filter Filter, limit int) ([]models.Poem, error) {
	q := s.query(ctx, filter).Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var poems []models.Poem
	if err := q.Find(&poems).Error; err != nil {
		return nil, fmt.Errorf("find poems: %w", err)
	}
	return poems, nil
}

// FindIDs liefert nur die IDs; damit fixiert die Pipeline ihre Auswahl zu Beginn eines Passes.
func (s *GormStore) FindIDs(ctx context.Context, filter Filter, limit int) ([]uint, error) {
	q := s.query(ctx, filter).Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var ids []uint
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("select poem ids: %w", err)
	}
	return ids, nil
}

// Get lädt ein einzelnes Gedicht.
func (s *GormStore) Get(ctx context.Context, id uint) (*models.Poem, error) {
	var poem models.Poem
	if err := s.DB.WithContext(ctx).First(&poem, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get poem %d: %w", id, err)
	}
	return &poem, nil
}

// Count zählt passende Gedichte.
func (s *GormStore) Count(ctx context.Context, filter Filter) (int64, error) {
	var n int64
	if err := s.query(ctx, filter).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count poems: %w", err)
	}
	return n, nil
}

// UpdateFields schreibt nur die übergebenen Spalten in einem einzigen UPDATE.
func (s *GormStore) UpdateFields(ctx context.Context, id uint, fields Fields) error {
	if len(fields) == 0 {
		return nil
	}
	res := s.DB.WithContext(ctx).
		Model(&models.Poem{}).
		Where("id = ?", id).
		Updates(map[string]any(fields))
	if res.Error != nil {
		return fmt.Errorf("update poem %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SampleRandom zieht bis zu n zufällige Gedichte aus der Auswahl.
func (s *GormStore) SampleRandom(ctx context.Context, filter Filter, n int) ([]models.Poem, error) {
	if n <= 0 {
		n = 1
	}
	var poems []models.Poem
	if err := s.query(ctx, filter).Order("RANDOM()").Limit(n).Find(&poems).Error; err != nil {
		return nil, fmt.Errorf("sample poems: %w", err)
	}
	return poems, nil
}

// InsertMany legt neue Gedichte an; IDs werden in den Slice zurückgeschrieben.
func (s *GormStore) InsertMany(ctx context.Context, poems []models.Poem) error {
	if len(poems) == 0 {
		return nil
	}
	if err := s.DB.WithContext(ctx).CreateInBatches(&poems, insertBatchSize).Error; err != nil {
		return fmt.Errorf("insert poems: %w", err)
	}
	return nil
}

// DeleteAll leert die Sammlung (administrativer Reset).
func (s *GormStore) DeleteAll(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Poem{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete poems: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// RecordInteraction speichert einen Eintrag im Interaktionsprotokoll.
func (s *GormStore) RecordInteraction(ctx context.Context, entry *models.Interaction) error {
	if err := s.DB.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("record interaction: %w", err)
	}
	return nil
}

// IncrementRecommended erhöht metadata.times_recommended um eins.
func (s *GormStore) IncrementRecommended(ctx context.Context, id uint) error {
	err := s.DB.WithContext(ctx).
		Model(&models.Poem{}).
		Where("id = ?", id).
		UpdateColumn(models.ColTimesRecommended, gorm.Expr(models.ColTimesRecommended+" + ?", 1)).
		Error
	if err != nil {
		return fmt.Errorf("increment times_recommended for %d: %w", id, err)
	}
	return nil
}
