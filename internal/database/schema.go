package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/listingboard/backend/internal/customers"
	"github.com/MarcoPoloResearchLab/listingboard/backend/internal/links"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	stepCreateLinks        = "create_links"
	stepCreateCustomerInfo = "create_customer_info"
	stepSeedCustomer       = "seed_customer"
)

// SchemaOptions tunes schema initialisation.
type SchemaOptions struct {
	DefaultCustomerName string
	Logger              *zap.Logger
}

type schemaStep struct {
	name  string
	apply func(*gorm.DB) (bool, error)
}

// InitSchema creates the links and customer_info tables when absent and seeds the
// customer row. Every step is idempotent, so it runs on each process start.
func (a *Adapter) InitSchema(ctx context.Context, opts SchemaOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = a.logger
	}
	defaultName := opts.DefaultCustomerName
	if defaultName == "" {
		defaultName = customers.DefaultCustomerName
	}

	db, err := a.Connect(ctx)
	if err != nil {
		return err
	}

	steps := []schemaStep{
		{name: stepCreateLinks, apply: createTableStep(links.Table, linksDDL(a.backend))},
		{name: stepCreateCustomerInfo, apply: createTableStep(customers.Table, customerInfoDDL(defaultName))},
		{name: stepSeedCustomer, apply: seedCustomerStep(defaultName)},
	}

	for _, step := range steps {
		applied, err := step.apply(db)
		if err != nil {
			return fmt.Errorf("schema step %s: %w", step.name, err)
		}
		if applied {
			logger.Info("schema step applied",
				zap.String("step", step.name),
				zap.String("backend", string(a.backend)))
		}
	}
	return nil
}

func createTableStep(table, ddl string) func(*gorm.DB) (bool, error) {
	return func(db *gorm.DB) (bool, error) {
		if db.Migrator().HasTable(table) {
			return false, nil
		}
		if err := db.Exec(ddl).Error; err != nil {
			return false, err
		}
		return true, nil
	}
}

func seedCustomerStep(defaultName string) func(*gorm.DB) (bool, error) {
	return func(db *gorm.DB) (bool, error) {
		profile := customers.Profile{ID: customers.ProfileID, CustomerName: defaultName}
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).Create(&profile)
		if result.Error != nil {
			return false, result.Error
		}
		return result.RowsAffected > 0, nil
	}
}

func linksDDL(backend Backend) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id %s,
	url TEXT NOT NULL,
	platform TEXT NOT NULL,
	added_by TEXT NOT NULL,
	date_added TEXT NOT NULL,
	rating INTEGER DEFAULT %d,
	liked BOOLEAN DEFAULT %s,
	disliked BOOLEAN DEFAULT %s,
	memo TEXT DEFAULT ''
)`, links.Table, backend.serialPrimaryKey(), links.DefaultRating, backend.boolLiteral(false), backend.boolLiteral(false))
}

func customerInfoDDL(defaultName string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY,
	customer_name TEXT DEFAULT %s,
	move_in_date TEXT DEFAULT ''
)`, customers.Table, quoteLiteral(defaultName))
}

func quoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
