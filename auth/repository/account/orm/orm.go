package orm

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/superj80820/url-shortener/domain"
	ormKit "github.com/superj80820/url-shortener/kit/orm"
	utilKit "github.com/superj80820/url-shortener/kit/util"
)

type accountEntity struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false"`
	Email     string    `gorm:"size:255;not null;uniqueIndex:idx_accounts_email"`
	Password  string    `gorm:"size:255;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (accountEntity) TableName() string {
	return "accounts"
}

func (a *accountEntity) toDomain() *domain.Account {
	return &domain.Account{
		ID:        a.ID,
		Email:     a.Email,
		Password:  a.Password,
		CreatedAt: a.CreatedAt.UTC(),
		UpdatedAt: a.UpdatedAt.UTC(),
	}
}

type accountRepo struct {
	db *ormKit.DB
}

func CreateAccountRepo(db *ormKit.DB) domain.AccountRepo {
	return &accountRepo{
		db: db,
	}
}

func Migrate(db *ormKit.DB) error {
	if err := db.AutoMigrate(&accountEntity{}); err != nil {
		return errors.Wrap(err, "migrate accounts failed")
	}
	return nil
}

// Create stores the account with a bcrypt hash of password. A taken email returns domain.ErrDuplicate.
func (a *accountRepo) Create(ctx context.Context, email string, password string) (*domain.Account, error) {
	uniqueIDGenerate, err := utilKit.GetUniqueIDGenerate()
	if err != nil {
		return nil, errors.Wrap(err, "generate unique id failed")
	}

	hash, err := utilKit.GetBcrypt(password)
	if err != nil {
		return nil, errors.Wrap(err, "get bcrypt failed")
	}

	account := accountEntity{
		ID:       uniqueIDGenerate.Generate().GetInt64(),
		Email:    email,
		Password: hash,
	}

	if err := a.db.WithContext(ctx).Create(&account).Error; ormKit.IsDuplicatedKeyErr(err) {
		return nil, errors.Wrapf(domain.ErrDuplicate, "email %s", email)
	} else if err != nil {
		return nil, errors.Wrap(err, "create failed")
	}

	return account.toDomain(), nil
}

func (a *accountRepo) Get(ctx context.Context, userID int64) (*domain.Account, error) {
	var account accountEntity
	if err := a.db.WithContext(ctx).First(&account, userID).Error; errors.Is(err, ormKit.ErrRecordNotFound) {
		return nil, errors.Wrapf(domain.ErrNoData, "account %d", userID)
	} else if err != nil {
		return nil, errors.Wrap(err, "get account failed")
	}
	return account.toDomain(), nil
}

func (a *accountRepo) GetEmail(ctx context.Context, email string) (*domain.Account, error) {
	var account accountEntity
	if err := a.db.WithContext(ctx).First(&account, "email = ?", email).Error; errors.Is(err, ormKit.ErrRecordNotFound) {
		return nil, errors.Wrapf(domain.ErrNoData, "account %s", email)
	} else if err != nil {
		return nil, errors.Wrap(err, "get account failed")
	}
	return account.toDomain(), nil
}
