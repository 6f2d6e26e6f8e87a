// Package schedule resolves and edits the recurring weekly availability
// template of a service provider.
package schedule

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slotline/scheduling/internal/model"
)

// Store persists weekly templates. GetWeek returns model.ErrNotFound for an
// unknown provider.
type Store interface {
	GetWeek(ctx context.Context, providerID string) ([]model.DayAvailability, error)
	UpsertDay(ctx context.Context, providerID string, day model.DayAvailability) error
}

// Locations is the read-only branch directory collaborator.
type Locations interface {
	FirstActiveLocation(ctx context.Context) (string, error)
	LocationActive(ctx context.Context, id string) (bool, error)
}

type Service struct {
	store     Store
	locations Locations
	logger    *slog.Logger
}

func NewService(store Store, locations Locations, logger *slog.Logger) *Service {
	return &Service{store: store, locations: locations, logger: logger}
}

// Resolve returns the template entry matching the date's weekday. The second
// return is false when the provider does not work that day.
func (s *Service) Resolve(ctx context.Context, providerID, date string) (model.DayAvailability, bool, error) {
	weekday, err := model.WeekdayOf(date)
	if err != nil {
		return model.DayAvailability{}, false, err
	}
	week, err := s.store.GetWeek(ctx, providerID)
	if err != nil {
		return model.DayAvailability{}, false, err
	}
	for _, day := range week {
		if day.Weekday == weekday {
			if !day.IsActive {
				return model.DayAvailability{}, false, nil
			}
			return day, true, nil
		}
	}
	return model.DayAvailability{}, false, nil
}

func (s *Service) Week(ctx context.Context, providerID string) ([]model.DayAvailability, error) {
	return s.store.GetWeek(ctx, providerID)
}

// EditDay validates and stores one weekday of the template. Activating a day
// without a location assigns the first active branch as a convenience
// default. Clearing the break start clears the break end as well, so a
// half-configured break is not representable.
func (s *Service) EditDay(ctx context.Context, providerID string, day model.DayAvailability) (model.DayAvailability, error) {
	if day.Weekday < 0 || day.Weekday > 6 {
		return model.DayAvailability{}, fmt.Errorf("%w: weekday must be 0-6", model.ErrValidation)
	}

	if !day.IsActive {
		// Inactive days carry no window or break.
		day.StartMinute, day.EndMinute = 0, 0
		day.BreakStart, day.BreakEnd = nil, nil
		day.LocationID = ""
		if err := s.store.UpsertDay(ctx, providerID, day); err != nil {
			return model.DayAvailability{}, err
		}
		return day, nil
	}

	if day.EndMinute <= day.StartMinute {
		return model.DayAvailability{}, fmt.Errorf("%w: end time must be after start time", model.ErrValidation)
	}
	if day.BreakStart == nil {
		day.BreakEnd = nil
	}
	if day.BreakStart != nil {
		if day.BreakEnd == nil {
			return model.DayAvailability{}, fmt.Errorf("%w: break end required when break start is set", model.ErrValidation)
		}
		if *day.BreakEnd <= *day.BreakStart {
			return model.DayAvailability{}, fmt.Errorf("%w: break end must be after break start", model.ErrValidation)
		}
		if *day.BreakStart < day.StartMinute || *day.BreakEnd > day.EndMinute {
			return model.DayAvailability{}, fmt.Errorf("%w: break must fall within the working window", model.ErrValidation)
		}
	}

	if day.LocationID == "" {
		loc, err := s.locations.FirstActiveLocation(ctx)
		if err != nil {
			return model.DayAvailability{}, err
		}
		s.logger.Info("auto-assigned location to schedule day",
			"provider_id", providerID, "weekday", day.Weekday, "location_id", loc)
		day.LocationID = loc
	} else {
		active, err := s.locations.LocationActive(ctx, day.LocationID)
		if err != nil {
			return model.DayAvailability{}, err
		}
		if !active {
			return model.DayAvailability{}, fmt.Errorf("%w: location %s is not active", model.ErrValidation, day.LocationID)
		}
	}

	if err := s.store.UpsertDay(ctx, providerID, day); err != nil {
		return model.DayAvailability{}, err
	}
	return day, nil
}
