package storage

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/resultportal/core"
	"github.com/trezcool/resultportal/storage/database"
	dummydb "github.com/trezcool/resultportal/storage/database/dummy"
	sqlxstore "github.com/trezcool/resultportal/storage/database/sqlx"
	reststore "github.com/trezcool/resultportal/storage/rest"
)

// Handle is an opened TabularStore. DB is only set for the postgres driver.
type Handle struct {
	Store core.TabularStore
	DB    *sqlx.DB
}

func (h Handle) Close() error {
	if h.DB != nil {
		return h.DB.Close()
	}
	return nil
}

// Open opens the store selected by conf.Store.Driver.
// With migrate set, a postgres database is created if need be and migrated up.
func Open(ctx context.Context, conf *core.Config, migrate bool) (Handle, error) {
	switch conf.Store.Driver {
	case core.StoreMemory:
		db, err := dummydb.Open()
		if err != nil {
			return Handle{}, errors.Wrap(err, "opening in-memory store")
		}
		return Handle{Store: db}, nil

	case core.StoreREST:
		return Handle{Store: reststore.NewStore(conf.Store.URL, conf.Store.APIKey, conf.Store.Timeout)}, nil

	case core.StorePostgres:
		if migrate {
			if err := database.CreateIfNotExist(ctx, conf); err != nil {
				return Handle{}, errors.Wrap(err, "creating database")
			}
		}
		db, err := database.Open(ctx, conf)
		if err != nil {
			return Handle{}, errors.Wrap(err, "opening database")
		}
		if migrate {
			if err = database.Migrate(db.DB, "up"); err != nil {
				_ = db.Close()
				return Handle{}, errors.Wrap(err, "migrating database")
			}
		}
		return Handle{Store: sqlxstore.NewStore(db), DB: db}, nil
	}
	return Handle{}, errors.Errorf("unknown store driver %q", conf.Store.Driver)
}
