package postgres

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to postgres. Driver errors are translated so duplicate keys
// surface as gorm.ErrDuplicatedKey.
func Open(dsn string, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	log.Debug("postgres connected")
	return db, nil
}

// AutoMigrate creates the tables from the row structs. Production schemas come
// from the SQL migrations; this serves embedded databases.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&userRow{}, &refreshTokenRow{})
}
