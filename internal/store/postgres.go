package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// playerRow mirrors the original schema: username primary key, record
// serialized as an opaque blob.
type playerRow struct {
	Username string `gorm:"primaryKey;column:username"`
	Data     []byte `gorm:"column:data"`
}

func (playerRow) TableName() string { return "players" }

// PostgresStore keeps player records in a two-column postgres table.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&playerRow{}); err != nil {
		return nil, fmt.Errorf("migrate players table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Get(ctx context.Context, username string) (*PlayerRecord, error) {
	var row playerRow
	err := s.db.WithContext(ctx).First(&row, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get player %q: %w", username, err)
	}

	var rec PlayerRecord
	if err := json.Unmarshal(row.Data, &rec); err != nil {
		return nil, fmt.Errorf("decode player %q: %w", username, err)
	}
	return &rec, nil
}

func (s *PostgresStore) Put(ctx context.Context, record *PlayerRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode player %q: %w", record.Username, err)
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"data"}),
	}).Create(&playerRow{Username: record.Username, Data: data}).Error
	if err != nil {
		return fmt.Errorf("put player %q: %w", record.Username, err)
	}
	return nil
}
