package postgres

import (
	"errors"

	"github.com/dom/document-viewer/internal/domain"
	"github.com/dom/document-viewer/internal/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every table, in dependency order, for AutoMigrate and truncation.
var Models = []any{
	&domain.User{},
	&domain.UserGroup{},
	&domain.GroupMembership{},
	&domain.Session{},
	&domain.Document{},
	&domain.DocumentPermission{},
}

func NewConnection(databaseURL string, logLevel logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models...)
}

func NewRepositories(db *gorm.DB) *repository.Repositories {
	return &repository.Repositories{
		User:     NewUserRepository(db),
		Group:    NewGroupRepository(db),
		Session:  NewSessionRepository(db),
		Document: NewDocumentRepository(db),
	}
}

// updateRow writes every column of value to its existing row. Unlike Save it
// never inserts, so a row deleted since it was read stays deleted and the
// write reports gorm.ErrRecordNotFound.
func updateRow(db *gorm.DB, value any) error {
	res := db.Model(value).Select("*").Updates(value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// translate maps gorm's translated errors onto the shared repository errors.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repository.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repository.ErrDuplicate
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return repository.ErrReferenced
	}
	return err
}
