package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/MarcoPoloResearchLab/listingboard/backend/internal/failures"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opGet = "customers.get"
	opSet = "customers.set"
)

var errMissingConnector = errors.New("customers: database connector required")

// Connector hands out request-scoped database sessions.
type Connector interface {
	Connect(ctx context.Context) (*gorm.DB, error)
}

// ServiceConfig describes the dependencies of the profile store.
type ServiceConfig struct {
	Connector   Connector
	DefaultName string
	Logger      *zap.Logger
}

// Service reads and replaces the single customer profile row.
type Service struct {
	connector   Connector
	defaultName string
	logger      *zap.Logger
}

// NewService constructs the profile store.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Connector == nil {
		return nil, fmt.Errorf("customers: %w", errMissingConnector)
	}
	defaultName := cfg.DefaultName
	if defaultName == "" {
		defaultName = DefaultCustomerName
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		connector:   cfg.Connector,
		defaultName: defaultName,
		logger:      logger,
	}, nil
}

// DefaultProfile is what Get reports when the row is missing.
func (s *Service) DefaultProfile() Profile {
	return Profile{ID: ProfileID, CustomerName: s.defaultName}
}

// Get returns the profile, or the defaults when the row is absent.
func (s *Service) Get(ctx context.Context) (Profile, error) {
	db, err := s.connector.Connect(ctx)
	if err != nil {
		s.logger.Error("customer profile connect failed", zap.String("operation", opGet), zap.Error(err))
		return Profile{}, failures.Storage(opGet, "connect_failed", err)
	}

	var profile Profile
	err = db.Where("id = ?", ProfileID).Take(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Warn("customer profile row missing, using defaults")
		return s.DefaultProfile(), nil
	}
	if err != nil {
		s.logger.Error("customer profile query failed", zap.String("operation", opGet), zap.Error(err))
		return Profile{}, failures.Storage(opGet, "query_failed", err)
	}
	return profile, nil
}

// Set overwrites the profile row. A missing row is left missing, as the schema
// initializer owns its creation.
func (s *Service) Set(ctx context.Context, request SetRequest) error {
	name := s.defaultName
	if request.CustomerName != nil {
		name = *request.CustomerName
	}
	moveInDate := ""
	if request.MoveInDate != nil {
		moveInDate = *request.MoveInDate
	}

	db, err := s.connector.Connect(ctx)
	if err != nil {
		s.logger.Error("customer profile connect failed", zap.String("operation", opSet), zap.Error(err))
		return failures.Storage(opSet, "connect_failed", err)
	}

	err = db.Model(&Profile{}).
		Where("id = ?", ProfileID).
		Updates(map[string]any{"customer_name": name, "move_in_date": moveInDate}).
		Error
	if err != nil {
		s.logger.Error("customer profile update failed", zap.String("operation", opSet), zap.Error(err))
		return failures.Storage(opSet, "update_failed", err)
	}
	return nil
}
