package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RankPosition is the GORM model behind PostgresRankStore.
type RankPosition struct {
	Key       string `gorm:"column:airline_key;primaryKey"`
	Value     string `gorm:"column:value;not null"`
	UpdatedAt time.Time
}

// TableName overrides the default table name
func (RankPosition) TableName() string {
	return "rank_positions"
}

// PostgresRankStore keeps rank positions in a single PostgreSQL table.
type PostgresRankStore struct {
	db *gorm.DB
}

// NewPostgresRankStore opens dsn and migrates the rank table.
func NewPostgresRankStore(dsn string) (*PostgresRankStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.AutoMigrate(&RankPosition{}); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return &PostgresRankStore{db: db}, nil
}

func (s *PostgresRankStore) Get(ctx context.Context, key string) (string, bool, error) {
	var row RankPosition
	err := s.db.WithContext(ctx).Where("airline_key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("postgres: get %q: %w", key, err)
	}
	return row.Value, true, nil
}

func (s *PostgresRankStore) Set(ctx context.Context, key, value string) error {
	row := RankPosition{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "airline_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("postgres: upsert %q: %w", key, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *PostgresRankStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
