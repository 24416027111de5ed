package db

import (
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// zerologWriter routes gorm's SQL log lines through zerolog.
type zerologWriter struct{ l zerolog.Logger }

func (w zerologWriter) Printf(format string, args ...any) {
	w.l.Debug().Str("component", "gorm").Msgf(format, args...)
}

func newGormLogger(l zerolog.Logger) logger.Interface {
	level := logger.Warn
	if l.GetLevel() <= zerolog.DebugLevel {
		level = logger.Info
	}
	return logger.New(zerologWriter{l: l}, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

func OpenGorm(dsn string, l zerolog.Logger) (*gorm.DB, error) {
	return OpenGormWithDialector(mysql.Open(dsn), l)
}

// OpenGormWithDialector opens, tunes the pool and pings. TranslateError is
// on so unique violations surface as gorm.ErrDuplicatedKey.
func OpenGormWithDialector(d gorm.Dialector, l zerolog.Logger) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger:         newGormLogger(l),
		TranslateError: true,
	}
	db, err := gorm.Open(d, cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(30)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	l.Info().Str("dialect", d.Name()).Msg("gorm: connected")
	return db, nil
}
