// Package placement validates and records machine movements and keeps the
// reference tables of machines and locations.
package placement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"ccstock-backend/internal/feed"
	"ccstock-backend/internal/metrics"
	"ccstock-backend/internal/model"
	"ccstock-backend/internal/parse"
	"ccstock-backend/internal/store"
)

// AnonymousUser is recorded when a request carries no identity.
const AnonymousUser = "anon"

// ImportResult summarises a bulk import.
type ImportResult struct {
	Added    int64    `json:"added"`
	Existing int64    `json:"existing"`
	Rejected []string `json:"rejected"`
}

// Service is the placement orchestrator.
type Service struct {
	store   store.Store
	pub     feed.Publisher
	metrics *metrics.Metrics
}

// NewService creates a Service. pub and m may be nil.
func NewService(s store.Store, pub feed.Publisher, m *metrics.Metrics) *Service {
	return &Service{store: s, pub: pub, metrics: m}
}

// PlaceMachine records that machineID now sits at locationID and marks it in use.
func (s *Service) PlaceMachine(ctx context.Context, machineID, locationID, actingUser string) (model.Placement, error) {
	machineID, err := parse.MachineID(machineID)
	if err != nil {
		return model.Placement{}, s.fail("place", err)
	}
	locationID, err = parse.LocationID(locationID)
	if err != nil {
		return model.Placement{}, s.fail("place", err)
	}

	if _, err := s.store.GetLocation(ctx, locationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Placement{}, s.fail("place", fmt.Errorf("%w: %q", ErrUnknownLocation, locationID))
		}
		return model.Placement{}, s.fail("place", fmt.Errorf("%w: look up location %q: %w", ErrStore, locationID, err))
	}

	p := model.Placement{
		MachineID:  machineID,
		LocationID: &locationID,
		UserEmail:  actor(actingUser),
	}
	if err := s.store.InsertPlacement(ctx, &p); err != nil {
		return model.Placement{}, s.fail("place", fmt.Errorf("%w: record placement of %s: %w", ErrStore, machineID, err))
	}

	if err := s.store.SetMachineStatus(ctx, machineID, model.StatusInUse); err != nil {
		s.metrics.StatusUpdateFailed()
		log.Warn().Err(err).Str("machine_id", machineID).Int64("placement_id", p.ID).Msg("placement recorded but status update failed")
	}

	s.metrics.PlacementRecorded("place")
	s.publish(p)
	log.Info().Str("machine_id", machineID).Str("location_id", locationID).Str("user", p.UserEmail).Msg("machine placed")
	return p, nil
}

// DeliverMachine marks machineID delivered and records a placement with no location.
func (s *Service) DeliverMachine(ctx context.Context, machineID, actingUser string) (model.Placement, error) {
	machineID, err := parse.MachineID(machineID)
	if err != nil {
		return model.Placement{}, s.fail("deliver", err)
	}

	if err := s.store.SetMachineStatus(ctx, machineID, model.StatusDelivered); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Placement{}, s.fail("deliver", fmt.Errorf("%w: %s", ErrUnknownMachine, machineID))
		}
		return model.Placement{}, s.fail("deliver", fmt.Errorf("%w: mark %s delivered: %w", ErrStore, machineID, err))
	}

	p := model.Placement{MachineID: machineID, UserEmail: actor(actingUser)}
	if err := s.store.InsertPlacement(ctx, &p); err != nil {
		log.Error().Err(err).Str("machine_id", machineID).Msg("machine marked delivered but delivery event was not recorded")
		return model.Placement{}, s.fail("deliver", fmt.Errorf("%w: %s: %w", ErrPartialDelivery, machineID, err))
	}

	s.metrics.PlacementRecorded("deliver")
	s.publish(p)
	log.Info().Str("machine_id", machineID).Str("user", p.UserEmail).Msg("machine delivered")
	return p, nil
}

// AddMachine registers a machine with status in_use.
func (s *Service) AddMachine(ctx context.Context, id string) (model.Machine, error) {
	id, err := parse.MachineID(id)
	if err != nil {
		return model.Machine{}, s.fail("add_machine", err)
	}
	m := model.Machine{ID: id, Status: model.StatusInUse}
	if err := s.store.CreateMachine(ctx, &m); err != nil {
		return model.Machine{}, s.fail("add_machine", storeErr(err))
	}
	return m, nil
}

// AddLocation registers a location. A capacity below 1 is stored as 1.
func (s *Service) AddLocation(ctx context.Context, id string, capacity int) (model.Location, error) {
	id, err := parse.LocationID(id)
	if err != nil {
		return model.Location{}, s.fail("add_location", err)
	}
	if capacity <= 0 {
		capacity = 1
	}
	l := model.Location{ID: id, Capacity: capacity}
	if err := s.store.CreateLocation(ctx, &l); err != nil {
		return model.Location{}, s.fail("add_location", storeErr(err))
	}
	return l, nil
}

// ImportMachines registers every valid machine id found in raw. Tokens that are
// not machine ids are returned as rejected.
func (s *Service) ImportMachines(ctx context.Context, raw string) (ImportResult, error) {
	var res ImportResult
	var machines []model.Machine
	for _, tok := range parse.SplitIDList(raw) {
		if !parse.IsMachineID(tok) {
			res.Rejected = append(res.Rejected, tok)
			continue
		}
		machines = append(machines, model.Machine{ID: tok, Status: model.StatusInUse})
	}
	if len(machines) == 0 {
		return res, s.fail("import_machines", fmt.Errorf("%w: no machine ids in input", ErrInvalidMachineID))
	}

	added, err := s.store.UpsertMachines(ctx, machines)
	if err != nil {
		return res, s.fail("import_machines", fmt.Errorf("%w: import machines: %w", ErrStore, err))
	}
	res.Added = added
	res.Existing = int64(len(machines)) - added
	log.Info().Int64("added", res.Added).Int("rejected", len(res.Rejected)).Msg("machines imported")
	return res, nil
}

// ImportLocations registers every location id found in raw with capacity 1.
func (s *Service) ImportLocations(ctx context.Context, raw string) (ImportResult, error) {
	var res ImportResult
	ids := parse.SplitIDList(raw)
	if len(ids) == 0 {
		return res, s.fail("import_locations", fmt.Errorf("%w: no location ids in input", ErrInvalidLocationID))
	}
	locations := make([]model.Location, 0, len(ids))
	for _, id := range ids {
		locations = append(locations, model.Location{ID: id, Capacity: 1})
	}

	added, err := s.store.UpsertLocations(ctx, locations)
	if err != nil {
		return res, s.fail("import_locations", fmt.Errorf("%w: import locations: %w", ErrStore, err))
	}
	res.Added = added
	res.Existing = int64(len(locations)) - added
	log.Info().Int64("added", res.Added).Msg("locations imported")
	return res, nil
}

// History returns placements newest first, optionally for one machine.
func (s *Service) History(ctx context.Context, machineID string) ([]model.Placement, error) {
	var (
		events []model.Placement
		err    error
	)
	if machineID = strings.TrimSpace(machineID); machineID != "" {
		if !parse.IsMachineID(machineID) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMachineID, machineID)
		}
		events, err = s.store.ListPlacementsForMachine(ctx, machineID)
	} else {
		events, err = s.store.ListPlacements(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: list placements: %w", ErrStore, err)
	}

	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.ID > b.ID
	})
	return events, nil
}

// Machines lists registered machines ordered by id.
func (s *Service) Machines(ctx context.Context) ([]model.Machine, error) {
	machines, err := s.store.ListMachines(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list machines: %w", ErrStore, err)
	}
	return machines, nil
}

// Locations lists registered locations ordered by id.
func (s *Service) Locations(ctx context.Context) ([]model.Location, error) {
	locations, err := s.store.ListLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list locations: %w", ErrStore, err)
	}
	return locations, nil
}

func (s *Service) publish(p model.Placement) {
	if s.pub != nil {
		s.pub.Publish(p)
	}
}

func (s *Service) fail(op string, err error) error {
	s.metrics.OperationFailed(op, Code(err))
	return err
}

func storeErr(err error) error {
	if errors.Is(err, store.ErrDuplicate) {
		return fmt.Errorf("%w: %w", ErrDuplicateID, err)
	}
	return fmt.Errorf("%w: %w", ErrStore, err)
}

func actor(user string) string {
	if user = strings.TrimSpace(user); user != "" {
		return user
	}
	return AnonymousUser
}
