package database

import (
	"fmt"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/lendingdesk/internal/config"
	"github.com/mrlokans/lendingdesk/internal/database/settings"
	"github.com/mrlokans/lendingdesk/internal/entities"
)

// models lists every entity managed by AutoMigrate, in dependency order.
var models = []any{
	&entities.Category{},
	&entities.Book{},
	&entities.BookCopy{},
	&entities.Class{},
	&entities.Student{},
	&entities.Staff{},
	&entities.Borrowing{},
	&entities.Fine{},
	&entities.FineSetting{},
	&entities.TheftReport{},
	&entities.Setting{},
	&entities.AuditEvent{},
}

type Database struct {
	DB       *gorm.DB
	settings *settings.Repository
}

// NewDatabase opens (or creates) a sqlite database at dbPath and migrates it.
func NewDatabase(dbPath string) (*Database, error) {
	return Open(config.Database{Driver: config.DriverSQLite, Path: dbPath}, nil)
}

// Open connects to the configured driver and migrates the schema.
func Open(cfg config.Database, log *zap.Logger) (*Database, error) {
	if log == nil {
		log = zap.NewNop()
	}

	dialector, target, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(log),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(models...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info("database initialized", zap.String("driver", cfg.Driver), zap.String("target", target))

	return &Database{DB: db, settings: settings.NewRepository(db)}, nil
}

// newGormLogger routes slow queries and SQL errors through zap. Lookups that find
// nothing are normal control flow in the repositories and are not logged.
func newGormLogger(log *zap.Logger) logger.Interface {
	return logger.New(zap.NewStdLog(log.Named("gorm")), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

func dialectorFor(cfg config.Database) (gorm.Dialector, string, error) {
	switch cfg.Driver {
	case "", config.DriverSQLite:
		return sqlite.Open(cfg.Path), cfg.Path, nil
	case config.DriverMySQL:
		dsn := MySQLDSN(cfg)
		return mysql.Open(dsn), fmt.Sprintf("%s:%d/%s", cfg.Host, cfg.Port, cfg.Name), nil
	default:
		return nil, "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// MySQLDSN renders the connection string for the mysql driver.
func MySQLDSN(cfg config.Database) string {
	dsn := mysqldriver.NewConfig()
	dsn.User = cfg.User
	dsn.Passwd = cfg.Password
	dsn.Net = "tcp"
	dsn.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	dsn.DBName = cfg.Name
	dsn.ParseTime = true
	dsn.Loc = time.UTC
	dsn.Params = map[string]string{"charset": "utf8mb4"}
	return dsn.FormatDSN()
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks connectivity of the underlying pool.
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (d *Database) GetSetting(key string) (*entities.Setting, error) {
	return d.settings.GetSetting(key)
}

func (d *Database) SetSetting(key, value string) error {
	return d.settings.SetSetting(key, value)
}

func (d *Database) DeleteSetting(key string) error {
	return d.settings.DeleteSetting(key)
}
