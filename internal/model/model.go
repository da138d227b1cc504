package model

import "fmt"

// Status is the appointment lifecycle state as reported by the API. It only
// affects presentation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Class maps a status onto one of the three known presentation classes.
// Unknown values render like pending.
func (s Status) Class() string {
	switch s {
	case StatusCompleted, StatusCancelled:
		return string(s)
	default:
		return string(StatusPending)
	}
}

// WalkIn is the label used when an appointment has no resolvable customer.
const WalkIn = "Walk-in"

// ServiceRef is a service as embedded in an appointment response.
type ServiceRef struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category,omitempty"`
	Price    float64 `json:"price,omitempty"`
	// Duration is in minutes.
	Duration int `json:"duration,omitempty"`
}

// Appointment is the wire shape of GET /appointments/.
type Appointment struct {
	ID            int64        `json:"id"`
	CustomerID    *int64       `json:"customer_id"`
	StaffID       *int64       `json:"staff_id,omitempty"`
	Date          string       `json:"date"` // YYYY-MM-DD
	Time          string       `json:"time"` // HH:MM[:SS]
	Status        Status       `json:"status"`
	PaymentStatus string       `json:"payment_status,omitempty"`
	TotalAmount   float64      `json:"total_amount"`
	Services      []ServiceRef `json:"services"`
}

// Customer is the wire shape of GET /customers/.
type Customer struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// CalendarEvent is the read-only projection of an appointment used by the
// scheduler. Date and Time never change for the lifetime of a view.
type CalendarEvent struct {
	ID            int64    `json:"id"`
	Date          Date     `json:"date"`
	Time          Clock    `json:"time"`
	Status        Status   `json:"status"`
	CustomerLabel string   `json:"customer_label"`
	Services      []string `json:"services"`
	TotalAmount   float64  `json:"total_amount"`
	// DurationMin is the sum of service durations; zero when unknown.
	DurationMin int `json:"duration_min,omitempty"`
}

// FirstService returns the name shown in a grid cell, or "".
func (e CalendarEvent) FirstService() string {
	if len(e.Services) == 0 {
		return ""
	}
	return e.Services[0]
}

// Directory is a read-only customer id -> display name table, built once
// per fetch cycle.
type Directory struct {
	names map[int64]string
}

func NewDirectory(customers []Customer) Directory {
	names := make(map[int64]string, len(customers))
	for _, c := range customers {
		names[c.ID] = c.Name
	}
	return Directory{names: names}
}

// Name resolves a customer id. Nil, unknown and blank-named ids resolve to
// WalkIn.
func (d Directory) Name(id *int64) string {
	if id == nil || d.names == nil {
		return WalkIn
	}
	name, ok := d.names[*id]
	if !ok || name == "" {
		return WalkIn
	}
	return name
}

func (d Directory) Len() int {
	return len(d.names)
}

// Project converts an API appointment into a CalendarEvent, resolving the
// customer label through dir.
func Project(a Appointment, dir Directory) (CalendarEvent, error) {
	date, err := ParseDate(a.Date)
	if err != nil {
		return CalendarEvent{}, fmt.Errorf("appointment %d: %w", a.ID, err)
	}
	clock, err := ParseClock(a.Time)
	if err != nil {
		return CalendarEvent{}, fmt.Errorf("appointment %d: %w", a.ID, err)
	}

	ev := CalendarEvent{
		ID:            a.ID,
		Date:          date,
		Time:          clock,
		Status:        a.Status,
		CustomerLabel: dir.Name(a.CustomerID),
		Services:      make([]string, 0, len(a.Services)),
		TotalAmount:   a.TotalAmount,
	}
	for _, s := range a.Services {
		ev.Services = append(ev.Services, s.Name)
		ev.DurationMin += s.Duration
	}
	return ev, nil
}
