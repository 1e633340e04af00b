package alert

import (
	"context"
	"errors"
	"fmt"

	"github.com/pumpwatch/pumpradar/pkg/momentum"
)

// Notification is a pump warning sent to alert destinations.
type Notification struct {
	Theme           string                 `json:"theme"`
	AggregateScore  float64                `json:"aggregate_score"`
	Platforms       []string               `json:"platforms"`
	PumpProbability int                    `json:"pump_probability"`
	PumpType        string                 `json:"pump_type"`
	Summary         string                 `json:"summary"`
	Events          []momentum.ScoredEvent `json:"events"`
}

// Notifier delivers alerts to a specific destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// Manager broadcasts notifications to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a new alert manager.
func NewManager(notifiers []Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers returns true if at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return len(m.notifiers) > 0
}

// Broadcast sends a notification to all registered notifiers. A failing
// destination never blocks the others.
func (m *Manager) Broadcast(ctx context.Context, n *Notification) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}
