package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/frahmantamala/salescrm/internal/access"
	userDatamodel "github.com/frahmantamala/salescrm/internal/core/datamodel/user"
	"github.com/frahmantamala/salescrm/internal/core/predicate"
	"github.com/frahmantamala/salescrm/internal/user"
)

var dialect = predicate.ColumnDialect{}

// Directory is the user directory backed by the typed users table.
type Directory struct {
	db *gorm.DB
}

func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

// FindUsers renders the access query onto the typed columns and returns matching ids.
func (d *Directory) FindUsers(ctx context.Context, q access.UserQuery) ([]string, error) {
	where, err := predicate.RenderSQL(q.Expr(), dialect)
	if err != nil {
		return nil, fmt.Errorf("render user query: %w", err)
	}

	var ids []string
	err = d.db.WithContext(ctx).
		Model(&userDatamodel.User{}).
		Where(where.Clause, where.Args...).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	return ids, nil
}

func (d *Directory) GetByID(ctx context.Context, id string) (*user.User, error) {
	var m userDatamodel.User
	err := d.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return user.FromDataModel(&m), nil
}

func (d *Directory) Save(ctx context.Context, u *user.User) error {
	return d.db.WithContext(ctx).Save(user.ToDataModel(u)).Error
}

func (d *Directory) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
