package orm

import (
	"context"
	"database/sql"
	"strings"
	"time"

	goMysql "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrRecordNotFound = gorm.ErrRecordNotFound
	ErrDuplicatedKey  = gorm.ErrDuplicatedKey
)

const (
	mySQLDuplicateEntry     = 1062
	postgresUniqueViolation = "23505"
)

type postgresConfig struct {
	dns string
}

type mySQLConfig struct {
	dns string
}

type sqliteConfig struct {
	fileName string
}

type poolConfig struct {
	maxOpenConns    int
	maxIdleConns    int
	connMaxLifetime time.Duration
}

type DB struct {
	gormClient *gorm.DB

	dbType dbType

	mySQLConfig    *mySQLConfig
	sqliteConfig   *sqliteConfig
	postgresConfig *postgresConfig
	poolConfig     *poolConfig
}

type TX = gorm.DB

type dbType int

const (
	dbTypeMySQL dbType = iota
	dbTypeSQLite
	dbTypePostgres
)

type Option func(*DB)

func UseMySQL(dns string) Option {
	return func(db *DB) {
		db.dbType = dbTypeMySQL
		db.mySQLConfig = &mySQLConfig{
			dns: dns,
		}
	}
}

func UsePostgres(dns string) Option {
	return func(db *DB) {
		db.dbType = dbTypePostgres
		db.postgresConfig = &postgresConfig{
			dns: dns,
		}
	}
}

// UseSQLite opens fileName with foreign keys enforced on every connection.
func UseSQLite(fileName string) Option {
	return func(db *DB) {
		db.dbType = dbTypeSQLite
		db.sqliteConfig = &sqliteConfig{
			fileName: sqliteDSN(fileName),
		}
	}
}

func sqliteDSN(fileName string) string {
	if strings.Contains(fileName, "_foreign_keys=") || strings.Contains(fileName, "_fk=") {
		return fileName
	}
	if strings.Contains(fileName, "?") {
		return fileName + "&_foreign_keys=1"
	}
	return fileName + "?_foreign_keys=1"
}

func UseConnectionPool(maxOpenConns, maxIdleConns int, connMaxLifetime time.Duration) Option {
	return func(db *DB) {
		db.poolConfig = &poolConfig{
			maxOpenConns:    maxOpenConns,
			maxIdleConns:    maxIdleConns,
			connMaxLifetime: connMaxLifetime,
		}
	}
}

func CreateDB(useDB Option, options ...Option) (*DB, error) {
	var gormDB DB

	useDB(&gormDB)
	for _, option := range options {
		option(&gormDB)
	}

	var dialector gorm.Dialector
	switch gormDB.dbType {
	case dbTypeMySQL:
		dialector = mysql.Open(gormDB.mySQLConfig.dns)
	case dbTypeSQLite:
		dialector = sqlite.Open(gormDB.sqliteConfig.fileName)
	case dbTypePostgres:
		dialector = postgres.Open(gormDB.postgresConfig.dns)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect db failed")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get core db failed")
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, errors.Wrap(err, "ping core db failed")
	}
	if gormDB.poolConfig != nil {
		sqlDB.SetMaxOpenConns(gormDB.poolConfig.maxOpenConns)
		sqlDB.SetMaxIdleConns(gormDB.poolConfig.maxIdleConns)
		sqlDB.SetConnMaxLifetime(gormDB.poolConfig.connMaxLifetime)
	}

	gormDB.gormClient = db

	return &gormDB, nil
}

func (db *DB) WithContext(ctx context.Context) *TX {
	return db.gormClient.WithContext(ctx)
}

func (db *DB) AutoMigrate(dst ...interface{}) error {
	return db.gormClient.AutoMigrate(dst...)
}

func (db *DB) Raw(sql string, values ...interface{}) *TX {
	return db.gormClient.Raw(sql, values...)
}

func (db *DB) Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) (err error) {
	return db.gormClient.Transaction(fc, opts...)
}

func (db *DB) Model(value interface{}) *TX {
	return db.gormClient.Model(value)
}

func (db *DB) Create(value interface{}) *TX {
	return db.gormClient.Create(value)
}

func (db *DB) First(dest interface{}, conds ...interface{}) error {
	return db.gormClient.First(dest, conds...).Error
}

func (db *DB) Close() error {
	sqlDB, err := db.gormClient.DB()
	if err != nil {
		return errors.Wrap(err, "get core db failed")
	}
	return sqlDB.Close()
}

// IsDuplicatedKeyErr reports a unique constraint violation from any supported driver.
func IsDuplicatedKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicatedKey) {
		return true
	}
	if _, ok := ConvertMySQLErr(err); ok {
		return true
	}
	if _, ok := ConvertPostgresErr(err); ok {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed") // sqlite
}

func ConvertMySQLErr(err error) (error, bool) {
	var mysqlErr *goMysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mySQLDuplicateEntry {
		return ErrDuplicatedKey, true
	}
	return nil, false
}

func ConvertPostgresErr(err error) (error, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == postgresUniqueViolation {
		return ErrDuplicatedKey, true
	}
	return nil, false
}
