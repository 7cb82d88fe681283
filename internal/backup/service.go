package backup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MarcoPoloResearchLab/listingboard/backend/internal/customers"
	"github.com/MarcoPoloResearchLab/listingboard/backend/internal/database"
	"github.com/MarcoPoloResearchLab/listingboard/backend/internal/failures"
	"github.com/MarcoPoloResearchLab/listingboard/backend/internal/links"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opServiceNew = "backup.service.new"
	opExport     = "backup.export"
	opRestore    = "backup.restore"

	defaultPlatform = "other"
	defaultAddedBy  = "unknown"
	insertBatchSize = 100
)

var (
	errMissingConnector = errors.New("database connector is required")
	errMissingColumns   = errors.New("column lister is required")
)

// Connector hands out request-scoped database sessions.
type Connector interface {
	Connect(ctx context.Context) (*gorm.DB, error)
}

// ColumnLister reports the live column layout of a table.
type ColumnLister interface {
	ColumnNames(ctx context.Context, table string) ([]string, error)
}

// Snapshot is a full point-in-time export. Link entries carry every stored
// column by name; display numbers are not part of it.
type Snapshot struct {
	BackupDate   string           `json:"backup_date" yaml:"backup_date"`
	Links        []map[string]any `json:"links" yaml:"links"`
	CustomerInfo map[string]any   `json:"customer_info" yaml:"customer_info"`
}

// RestoreResult reports how many links a restore inserted.
type RestoreResult struct {
	Restored int
	Message  string
}

type ServiceConfig struct {
	Connector           Connector
	Columns             ColumnLister
	Clock               func() time.Time
	DefaultCustomerName string
	// Transactional wraps the delete and reinsert sequence of Restore in a single
	// transaction. When false a failure leaves whatever the last statement produced.
	Transactional bool
	Logger        *zap.Logger
}

type Service struct {
	connector     Connector
	columns       ColumnLister
	clock         func() time.Time
	defaultName   string
	transactional bool
	logger        *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Connector == nil {
		return nil, failures.Storage(opServiceNew, "missing_connector", errMissingConnector)
	}
	if cfg.Columns == nil {
		return nil, failures.Storage(opServiceNew, "missing_columns", errMissingColumns)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	defaultName := cfg.DefaultCustomerName
	if defaultName == "" {
		defaultName = customers.DefaultCustomerName
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		connector:     cfg.Connector,
		columns:       cfg.Columns,
		clock:         clock,
		defaultName:   defaultName,
		transactional: cfg.Transactional,
		logger:        logger,
	}, nil
}

// Export reads every link (oldest first) and the customer profile.
func (s *Service) Export(ctx context.Context) (Snapshot, error) {
	db, err := s.connector.Connect(ctx)
	if err != nil {
		return Snapshot{}, s.storageError(opExport, "connect_failed", err)
	}

	linkColumns, err := s.columns.ColumnNames(ctx, links.Table)
	if err != nil {
		return Snapshot{}, s.storageError(opExport, "introspect_failed", err)
	}
	var linkRows []map[string]any
	if err := db.Table(links.Table).Order("id ASC").Find(&linkRows).Error; err != nil {
		return Snapshot{}, s.storageError(opExport, "links_query_failed", err)
	}

	customerColumns, err := s.columns.ColumnNames(ctx, customers.Table)
	if err != nil {
		return Snapshot{}, s.storageError(opExport, "introspect_failed", err)
	}
	var customerRows []map[string]any
	if err := db.Table(customers.Table).Order("id ASC").Limit(1).Find(&customerRows).Error; err != nil {
		return Snapshot{}, s.storageError(opExport, "customer_query_failed", err)
	}

	snapshot := Snapshot{
		BackupDate: s.clock().Format(time.RFC3339),
		Links:      make([]map[string]any, 0, len(linkRows)),
	}
	for _, row := range linkRows {
		snapshot.Links = append(snapshot.Links, project(row, linkColumns))
	}
	if len(customerRows) > 0 {
		snapshot.CustomerInfo = project(customerRows[0], customerColumns)
	}

	s.logger.Info("snapshot exported", zap.Int("links", len(snapshot.Links)))
	return snapshot, nil
}

// project keeps the named columns of a generic row and normalises driver values
// so both backends export the same shapes.
func project(row map[string]any, columns []string) map[string]any {
	entry := make(map[string]any, len(columns))
	for _, column := range columns {
		value := row[column]
		switch column {
		case "liked", "disliked":
			entry[column] = database.ToBool(value)
			continue
		case "id", "rating":
			if number, ok := database.ToInt64(value); ok {
				entry[column] = number
				continue
			}
		}
		if raw, ok := value.([]byte); ok {
			value = string(raw)
		}
		entry[column] = value
	}
	return entry
}

// Restore replaces every link and the customer profile with the snapshot's
// contents. Link ids are regenerated by the store.
func (s *Service) Restore(ctx context.Context, request RestoreRequest) (RestoreResult, error) {
	if request.Links == nil {
		return RestoreResult{}, failures.Validation(opRestore, "missing_links", errMissingLinks)
	}

	db, err := s.connector.Connect(ctx)
	if err != nil {
		return RestoreResult{}, s.storageError(opRestore, "connect_failed", err)
	}

	today := s.clock().Format(links.DateLayout)
	rows := make([]links.Link, 0, len(request.Links))
	for _, record := range request.Links {
		rows = append(rows, record.toLink(today))
	}
	profile := s.profileFrom(request.CustomerInfo)

	replace := func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&links.Link{}).Error; err != nil {
			return s.storageError(opRestore, "delete_links_failed", err)
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&customers.Profile{}).Error; err != nil {
			return s.storageError(opRestore, "delete_customer_failed", err)
		}
		if err := tx.Create(&profile).Error; err != nil {
			return s.storageError(opRestore, "insert_customer_failed", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&rows, insertBatchSize).Error; err != nil {
			return s.storageError(opRestore, "insert_links_failed", err)
		}
		return nil
	}

	if s.transactional {
		err = db.Transaction(replace)
	} else {
		err = replace(db)
	}
	if err != nil {
		return RestoreResult{}, err
	}

	s.logger.Info("snapshot restored",
		zap.Int("links", len(rows)),
		zap.Bool("transactional", s.transactional))
	return RestoreResult{
		Restored: len(rows),
		Message:  fmt.Sprintf("%d links restored", len(rows)),
	}, nil
}

func (s *Service) profileFrom(record *CustomerRecord) customers.Profile {
	profile := customers.Profile{ID: customers.ProfileID, CustomerName: s.defaultName}
	if record == nil {
		return profile
	}
	if record.CustomerName != nil {
		profile.CustomerName = *record.CustomerName
	}
	if record.MoveInDate != nil {
		profile.MoveInDate = *record.MoveInDate
	}
	return profile
}

func (r LinkRecord) toLink(today string) links.Link {
	link := links.Link{
		URL:       stringOr(r.URL, ""),
		Platform:  stringOr(r.Platform, defaultPlatform),
		AddedBy:   stringOr(r.AddedBy, defaultAddedBy),
		DateAdded: stringOr(r.DateAdded, today),
		Rating:    links.DefaultRating,
		Memo:      stringOr(r.Memo, ""),
	}
	if r.Rating != nil {
		link.Rating = *r.Rating
	}
	if r.Liked != nil {
		link.Liked = *r.Liked
	}
	if r.Disliked != nil {
		link.Disliked = *r.Disliked
	}
	// liked wins when a hand-edited snapshot sets both.
	if link.Liked && link.Disliked {
		link.Disliked = false
	}
	return link
}

func stringOr(value *string, fallback string) string {
	if value == nil {
		return fallback
	}
	return *value
}

func (s *Service) storageError(operation, reason string, err error) error {
	s.logger.Error("backup service error",
		zap.String("operation", operation),
		zap.String("reason", reason),
		zap.Error(err))
	return failures.Storage(operation, reason, err)
}
