// Package store provides gorm-backed persistence for parcels, box presets,
// and the ship-from profile.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when a keyed lookup finds no row.
var ErrNotFound = errors.New("record not found")

// Config holds database connection configuration.
type Config struct {
	Driver          string // "postgres" or "sqlite"
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// Store wraps the database handle with keyed CRUD operations. All parcel
// writes are single-row read-modify-write; no multi-row transactions are
// required beyond index assignment at creation.
type Store struct {
	db *gorm.DB
}

// Open connects to the configured database.
func Open(cfg Config) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres", "":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}

	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Migrate creates or updates the schema.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(
		&Order{},
		&Parcel{},
		&ParcelQuote{},
		&BoxPreset{},
		&ShipFromProfile{},
	)
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}

// HealthCheck pings the database.
func (s *Store) HealthCheck() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// ============================================================================
// Orders
// ============================================================================

// CreateOrder inserts a new order record.
func (s *Store) CreateOrder(ctx context.Context, order *Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	return s.db.WithContext(ctx).Create(order).Error
}

// GetOrder fetches an order by id.
func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	var order Order
	if err := s.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &order, nil
}

// ============================================================================
// Parcels
// ============================================================================

// CreateParcel inserts a parcel, assigning the next parcel index for its
// order (max existing + 1, starting at 1) inside a transaction so sibling
// creations cannot collide.
func (s *Store) CreateParcel(ctx context.Context, parcel *Parcel) error {
	if parcel.ID == uuid.Nil {
		parcel.ID = uuid.New()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxIndex int
		err := tx.Model(&Parcel{}).
			Where("order_id = ?", parcel.OrderID).
			Select("COALESCE(MAX(parcel_index), 0)").
			Scan(&maxIndex).Error
		if err != nil {
			return err
		}
		parcel.ParcelIndex = maxIndex + 1
		return tx.Create(parcel).Error
	})
}

// GetParcel fetches a parcel by order id and parcel id, with its quote cache.
func (s *Store) GetParcel(ctx context.Context, orderID, parcelID uuid.UUID) (*Parcel, error) {
	var parcel Parcel
	err := s.db.WithContext(ctx).
		Preload("Quotes", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&parcel, "id = ? AND order_id = ?", parcelID, orderID).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &parcel, nil
}

// ListParcels returns all parcels of an order in index order.
func (s *Store) ListParcels(ctx context.Context, orderID uuid.UUID) ([]Parcel, error) {
	var parcels []Parcel
	err := s.db.WithContext(ctx).
		Preload("Quotes", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("order_id = ?", orderID).
		Order("parcel_index ASC").
		Find(&parcels).Error
	return parcels, err
}

// SaveParcel persists all scalar columns of a parcel row. The quote cache
// is managed separately through ReplaceQuotes.
func (s *Store) SaveParcel(ctx context.Context, parcel *Parcel) error {
	return s.db.WithContext(ctx).Omit("Quotes").Save(parcel).Error
}

// DeleteParcel removes a parcel and its cached quotes. Lifecycle guards
// decide whether deletion is permitted; the store does not.
func (s *Store) DeleteParcel(ctx context.Context, orderID, parcelID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parcel_id = ?", parcelID).Delete(&ParcelQuote{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ? AND order_id = ?", parcelID, orderID).Delete(&Parcel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ReplaceQuotes swaps the parcel's cached rate list wholesale. Quotes are a
// cache, not a queue: there is no incremental merge.
func (s *Store) ReplaceQuotes(ctx context.Context, parcelID uuid.UUID, quotes []ParcelQuote) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parcel_id = ?", parcelID).Delete(&ParcelQuote{}).Error; err != nil {
			return err
		}
		for i := range quotes {
			quotes[i].ID = 0
			quotes[i].ParcelID = parcelID
			quotes[i].Position = i
		}
		if len(quotes) == 0 {
			return nil
		}
		return tx.Create(&quotes).Error
	})
}

// ============================================================================
// Ship-from profile
// ============================================================================

const shipFromRowID = 1

// GetShipFrom returns the singleton ship-from profile, or an empty profile
// when none has been saved yet.
func (s *Store) GetShipFrom(ctx context.Context) (*ShipFromProfile, error) {
	var profile ShipFromProfile
	err := s.db.WithContext(ctx).First(&profile, "id = ?", shipFromRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &ShipFromProfile{ID: shipFromRowID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// SaveShipFrom upserts the singleton ship-from profile.
func (s *Store) SaveShipFrom(ctx context.Context, profile *ShipFromProfile) error {
	profile.ID = shipFromRowID
	return s.db.WithContext(ctx).Save(profile).Error
}

// ============================================================================
// Box presets
// ============================================================================

// ListPresets returns all box presets ordered by name.
func (s *Store) ListPresets(ctx context.Context) ([]BoxPreset, error) {
	var presets []BoxPreset
	err := s.db.WithContext(ctx).Order("name ASC").Find(&presets).Error
	return presets, err
}

// GetPreset fetches a box preset by id.
func (s *Store) GetPreset(ctx context.Context, id uuid.UUID) (*BoxPreset, error) {
	var preset BoxPreset
	if err := s.db.WithContext(ctx).First(&preset, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &preset, nil
}

// SavePreset inserts or updates a box preset.
func (s *Store) SavePreset(ctx context.Context, preset *BoxPreset) error {
	if preset.ID == uuid.Nil {
		preset.ID = uuid.New()
	}
	return s.db.WithContext(ctx).Save(preset).Error
}

// DeletePreset removes a box preset. Parcels referencing it keep their
// reference; quoting such a parcel fails validation until it is re-pointed.
func (s *Store) DeletePreset(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&BoxPreset{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
