package db

import (
	"fmt"
	"log/slog"

	"mentora/internal/config"
	"mentora/internal/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Store struct {
	DB           *gorm.DB
	Integrations *IntegrationRepository
}

// NewStore opens postgres when POSTGRES_DSN is set. Without it the store has
// no repositories and callers fall back to in-memory state.
func NewStore(cfg config.Config, log *slog.Logger) (*Store, error) {
	if cfg.PostgresDSN == "" {
		logger.OrDefault(log).Warn("POSTGRES_DSN not set; google integrations are kept in memory")
		return &Store{}, nil
	}

	gdb, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &Store{DB: gdb, Integrations: NewIntegrationRepository(gdb)}, nil
}

func (s *Store) Enabled() bool {
	return s != nil && s.DB != nil
}

func (s *Store) Close() error {
	if !s.Enabled() {
		return nil
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
