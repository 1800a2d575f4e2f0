package users

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrEmailTaken 邮箱已被注册
	ErrEmailTaken = errors.New("users: email already registered")
	// ErrUnsupportedDriver 不支持的数据库驱动
	ErrUnsupportedDriver = errors.New("users: unsupported database driver")
)

// 支持的数据库驱动
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// OpenDB 按驱动名打开数据库
func OpenDB(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	case DriverMySQL:
		dialector = mysql.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("users: open %s: %w", driver, err)
	}
	return db, nil
}

// Migrate 创建或更新表结构
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{})
}

// Repository 用户存储
type Repository interface {
	Create(ctx context.Context, u *User) error
	List(ctx context.Context) ([]User, error)
	ExistsEmail(ctx context.Context, email string) (bool, error)
}

// GormRepository 基于 gorm 的用户存储
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository 创建 gorm 存储
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, u *User) error {
	err := r.db.WithContext(ctx).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("users: insert: %w", err)
	}
	return nil
}

func (r *GormRepository) List(ctx context.Context) ([]User, error) {
	var out []User
	if err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	return out, nil
}

func (r *GormRepository) ExistsEmail(ctx context.Context, email string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return false, fmt.Errorf("users: count email: %w", err)
	}
	return n > 0, nil
}
