package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ccstock-backend/internal/model"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when creating a row whose id already exists.
	ErrDuplicate = errors.New("record already exists")
)

// Store defines the interface for all database operations.
type Store interface {
	// InsertPlacement appends an event, assigning its ID and Timestamp.
	InsertPlacement(ctx context.Context, p *model.Placement) error
	// ListPlacements returns the whole log ordered by timestamp, then id.
	ListPlacements(ctx context.Context) ([]model.Placement, error)
	ListPlacementsForMachine(ctx context.Context, machineID string) ([]model.Placement, error)

	CreateMachine(ctx context.Context, m *model.Machine) error
	CreateLocation(ctx context.Context, l *model.Location) error
	// UpsertMachines inserts machines whose id is new and returns how many were added.
	UpsertMachines(ctx context.Context, machines []model.Machine) (int64, error)
	UpsertLocations(ctx context.Context, locations []model.Location) (int64, error)
	ListMachines(ctx context.Context) ([]model.Machine, error)
	ListLocations(ctx context.Context) ([]model.Location, error)
	GetLocation(ctx context.Context, id string) (model.Location, error)
	SetMachineStatus(ctx context.Context, id string, status model.MachineStatus) error

	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db  *gorm.DB
	now func() time.Time

	clockMu sync.Mutex
	last    time.Time
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db, now: time.Now}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// placementLockKey is the Postgres advisory lock taken around placement
// inserts so instances sharing the database stamp events in commit order.
const placementLockKey int64 = 0x63637374

// nextTimestamp hands out strictly increasing timestamps at the database's
// microsecond precision, never at or before floor.
func (s *gormStore) nextTimestamp(floor time.Time) time.Time {
	ts := s.now().UTC().Truncate(time.Microsecond)
	if !ts.After(s.last) {
		ts = s.last.Add(time.Microsecond)
	}
	if !ts.After(floor) {
		ts = floor.UTC().Add(time.Microsecond)
	}
	s.last = ts
	return ts
}

// InsertPlacement stamps p after the newest stored event, so the order holds
// even when several processes with skewed clocks write to one database.
func (s *gormStore) InsertPlacement(ctx context.Context, p *model.Placement) error {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()

	p.ID = 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", placementLockKey).Error; err != nil {
				return err
			}
		}
		var latest model.Placement
		if err := tx.Order("timestamp DESC").Order("id DESC").Limit(1).Find(&latest).Error; err != nil {
			return err
		}
		p.Timestamp = s.nextTimestamp(latest.Timestamp)
		return tx.Create(p).Error
	})
	if err != nil {
		return fmt.Errorf("failed to insert placement for machine %s: %w", p.MachineID, err)
	}
	return nil
}

func (s *gormStore) ListPlacements(ctx context.Context) ([]model.Placement, error) {
	var placements []model.Placement
	if err := s.db.WithContext(ctx).
		Order("timestamp ASC").
		Order("id ASC").
		Find(&placements).Error; err != nil {
		return nil, fmt.Errorf("failed to list placements: %w", err)
	}
	return placements, nil
}

func (s *gormStore) ListPlacementsForMachine(ctx context.Context, machineID string) ([]model.Placement, error) {
	var placements []model.Placement
	if err := s.db.WithContext(ctx).
		Where("machine_id = ?", machineID).
		Order("timestamp ASC").
		Order("id ASC").
		Find(&placements).Error; err != nil {
		return nil, fmt.Errorf("failed to list placements for machine %s: %w", machineID, err)
	}
	return placements, nil
}

func (s *gormStore) CreateMachine(ctx context.Context, m *model.Machine) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureAbsent(tx, &model.Machine{}, m.ID); err != nil {
			return err
		}
		return translate(tx.Create(m).Error, "machine", m.ID)
	})
}

func (s *gormStore) CreateLocation(ctx context.Context, l *model.Location) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureAbsent(tx, &model.Location{}, l.ID); err != nil {
			return err
		}
		return translate(tx.Create(l).Error, "location", l.ID)
	})
}

func (s *gormStore) UpsertMachines(ctx context.Context, machines []model.Machine) (int64, error) {
	if len(machines) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&machines)
	if res.Error != nil {
		return 0, fmt.Errorf("batch upsert machines failed: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *gormStore) UpsertLocations(ctx context.Context, locations []model.Location) (int64, error) {
	if len(locations) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&locations)
	if res.Error != nil {
		return 0, fmt.Errorf("batch upsert locations failed: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *gormStore) ListMachines(ctx context.Context) ([]model.Machine, error) {
	var machines []model.Machine
	if err := s.db.WithContext(ctx).Order("id").Find(&machines).Error; err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}
	return machines, nil
}

func (s *gormStore) ListLocations(ctx context.Context) ([]model.Location, error) {
	var locations []model.Location
	if err := s.db.WithContext(ctx).Order("id").Find(&locations).Error; err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return locations, nil
}

func (s *gormStore) GetLocation(ctx context.Context, id string) (model.Location, error) {
	var loc model.Location
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&loc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Location{}, fmt.Errorf("location %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Location{}, fmt.Errorf("failed to look up location %q: %w", id, err)
	}
	return loc, nil
}

func (s *gormStore) SetMachineStatus(ctx context.Context, id string, status model.MachineStatus) error {
	res := s.db.WithContext(ctx).
		Model(&model.Machine{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to set status of machine %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("machine %s: %w", id, ErrNotFound)
	}
	return nil
}

func ensureAbsent(tx *gorm.DB, dst any, id string) error {
	var count int64
	if err := tx.Model(dst).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%q: %w", id, ErrDuplicate)
	}
	return nil
}

// translate maps a unique violation that slipped past ensureAbsent (a concurrent
// insert) onto ErrDuplicate.
func translate(err error, kind, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s %q: %w", kind, id, ErrDuplicate)
	}
	return fmt.Errorf("failed to create %s %q: %w", kind, id, err)
}
