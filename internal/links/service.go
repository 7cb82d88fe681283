package links

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/listingboard/backend/internal/failures"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingConnector     = errors.New("database connector is required")
	errMissingRequiredField = errors.New("url, platform and added_by are required")
	noOpLogger              = zap.NewNop()
)

const (
	opServiceNew  = "links.service.new"
	opCreate      = "links.create"
	opList        = "links.list"
	opUpdate      = "links.update"
	opDelete      = "links.delete"
	opCount       = "links.count"
	opDistinct    = "links.distinct"
	reasonConnect = "connect_failed"
)

// Connector hands out request-scoped database sessions.
type Connector interface {
	Connect(ctx context.Context) (*gorm.DB, error)
}

type ServiceConfig struct {
	Connector Connector
	Clock     func() time.Time
	Logger    *zap.Logger
}

// Service is the link repository.
type Service struct {
	connector Connector
	clock     func() time.Time
	logger    *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Connector == nil {
		return nil, failures.Storage(opServiceNew, "missing_connector", errMissingConnector)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		connector: cfg.Connector,
		clock:     clock,
		logger:    logger,
	}, nil
}

// Create validates and inserts a link stamped with today's date, returning its id.
func (s *Service) Create(ctx context.Context, request CreateRequest) (int64, error) {
	if strings.TrimSpace(request.URL) == "" ||
		strings.TrimSpace(request.Platform) == "" ||
		strings.TrimSpace(request.AddedBy) == "" {
		return 0, failures.Validation(opCreate, "missing_fields", errMissingRequiredField)
	}

	db, err := s.connect(ctx, opCreate)
	if err != nil {
		return 0, err
	}

	link := Link{
		URL:       request.URL,
		Platform:  request.Platform,
		AddedBy:   request.AddedBy,
		DateAdded: s.clock().Format(DateLayout),
		Rating:    DefaultRating,
		Memo:      request.Memo,
	}
	if err := db.Create(&link).Error; err != nil {
		s.logError(opCreate, "insert_failed", err, zap.String("platform", request.Platform))
		return 0, failures.Storage(opCreate, "insert_failed", err)
	}
	return link.ID, nil
}

// List returns the filtered links newest first with display numbers computed over
// the filtered set.
func (s *Service) List(ctx context.Context, filter Filter) ([]NumberedLink, error) {
	db, err := s.connect(ctx, opList)
	if err != nil {
		return nil, err
	}

	var ordered []Link
	if err := filter.apply(db.Model(&Link{})).Order("id DESC").Find(&ordered).Error; err != nil {
		s.logError(opList, "query_failed", err)
		return nil, failures.Storage(opList, "query_failed", err)
	}
	return number(ordered), nil
}

// Update applies one action. Missing ids and unrecognised actions succeed without
// changing any row.
func (s *Service) Update(ctx context.Context, id int64, request UpdateRequest) error {
	changes, known := request.changes()
	if !known {
		// TODO: report unknown actions as validation errors instead of silent successes.
		s.loggerOrDefault().Warn("ignoring unknown link action",
			zap.Int64("link_id", id),
			zap.String("action", string(request.Action)))
		return nil
	}

	db, err := s.connect(ctx, opUpdate)
	if err != nil {
		return err
	}

	if err := db.Model(&Link{}).Where("id = ?", id).Updates(changes).Error; err != nil {
		s.logError(opUpdate, "update_failed", err,
			zap.Int64("link_id", id),
			zap.String("action", string(request.Action)))
		return failures.Storage(opUpdate, "update_failed", err)
	}
	return nil
}

func (r UpdateRequest) changes() (map[string]any, bool) {
	switch r.Action {
	case ActionRating:
		rating := DefaultRating
		if r.Rating != nil {
			rating = *r.Rating
		}
		return map[string]any{"rating": rating}, true
	case ActionLike:
		return map[string]any{"liked": valueOr(r.Liked), "disliked": false}, true
	case ActionDislike:
		return map[string]any{"disliked": valueOr(r.Disliked), "liked": false}, true
	case ActionMemo:
		memo := ""
		if r.Memo != nil {
			memo = *r.Memo
		}
		return map[string]any{"memo": memo}, true
	default:
		return nil, false
	}
}

func valueOr(flag *bool) bool {
	return flag != nil && *flag
}

// Delete removes a link by id; deleting a missing id is not an error.
func (s *Service) Delete(ctx context.Context, id int64) error {
	db, err := s.connect(ctx, opDelete)
	if err != nil {
		return err
	}
	if err := db.Where("id = ?", id).Delete(&Link{}).Error; err != nil {
		s.logError(opDelete, "delete_failed", err, zap.Int64("link_id", id))
		return failures.Storage(opDelete, "delete_failed", err)
	}
	return nil
}

// Count returns the number of stored links.
func (s *Service) Count(ctx context.Context) (int64, error) {
	db, err := s.connect(ctx, opCount)
	if err != nil {
		return 0, err
	}
	var total int64
	if err := db.Model(&Link{}).Count(&total).Error; err != nil {
		s.logError(opCount, "query_failed", err)
		return 0, failures.Storage(opCount, "query_failed", err)
	}
	return total, nil
}

// Facets holds the distinct filter values present on the board.
type Facets struct {
	Platforms    []string `json:"platforms"`
	Contributors []string `json:"contributors"`
}

// Facets lists the distinct platforms and contributors, for filter choices.
func (s *Service) Facets(ctx context.Context) (Facets, error) {
	db, err := s.connect(ctx, opDistinct)
	if err != nil {
		return Facets{}, err
	}

	facets := Facets{Platforms: []string{}, Contributors: []string{}}
	if err := db.Model(&Link{}).Distinct().Order("platform").Pluck("platform", &facets.Platforms).Error; err != nil {
		s.logError(opDistinct, "query_failed", err, zap.String("column", "platform"))
		return Facets{}, failures.Storage(opDistinct, "query_failed", err)
	}
	if err := db.Model(&Link{}).Distinct().Order("added_by").Pluck("added_by", &facets.Contributors).Error; err != nil {
		s.logError(opDistinct, "query_failed", err, zap.String("column", "added_by"))
		return Facets{}, failures.Storage(opDistinct, "query_failed", err)
	}
	return facets, nil
}

func (s *Service) connect(ctx context.Context, operation string) (*gorm.DB, error) {
	if s == nil || s.connector == nil {
		s.logError(operation, "missing_connector", errMissingConnector)
		return nil, failures.Storage(operation, "missing_connector", errMissingConnector)
	}
	db, err := s.connector.Connect(ctx)
	if err != nil {
		s.logError(operation, reasonConnect, err)
		return nil, failures.Storage(operation, reasonConnect, err)
	}
	return db, nil
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("links service error", attrs...)
}
