package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/thereayou/score-rooms/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Connect открывает хранилище и накатывает схему.
func (d *Database) Connect(driver, dsn string) error {
	if dsn == "" {
		return errors.New("DATABASE_URL is not set")
	}

	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres, "":
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if driver == DriverSQLite {
		// SQLite допускает одного писателя, транзакции выстраиваются в очередь на соединении
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := Migrate(db); err != nil {
		return err
	}

	d.db = db

	return nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Room{}, &models.Member{}, &models.Transaction{})
}

func (d *Database) Close() error {
	if d.db == nil {
		return nil
	}
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// OpenInMemory поднимает изолированную SQLite базу в памяти (тесты, локальный запуск)
func OpenInMemory(name string) (*Database, error) {
	name = strings.NewReplacer("/", "_", " ", "_").Replace(name)
	d := &Database{}
	if err := d.Connect(DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", name)); err != nil {
		return nil, err
	}
	return d, nil
}
