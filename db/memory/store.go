package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/samber/lo"

	"trips/entity"
)

type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// Store keeps everything in process memory. Transactions are serialised by a
// single mutex, so every read-modify-write is atomic.
type Store struct {
	publisher EventPublisher

	mu         sync.Mutex
	activities map[string]entity.Activity
	bookings   map[string]entity.Booking
	tickets    map[string]entity.Ticket // by booking id
	history    map[string][]entity.DataLakeEvent
}

// NewStore creates an empty store. Committed events are handed to publisher, which may be nil.
func NewStore(publisher EventPublisher) *Store {
	return &Store{
		publisher:  publisher,
		activities: make(map[string]entity.Activity),
		bookings:   make(map[string]entity.Booking),
		tickets:    make(map[string]entity.Ticket),
		history:    make(map[string][]entity.DataLakeEvent),
	}
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx entity.Tx) error) error {
	events, err := s.runTx(ctx, fn)
	if err != nil {
		return err
	}

	if s.publisher == nil {
		return nil
	}
	for _, e := range events {
		if err := s.publisher.Publish(ctx, e); err != nil {
			log.FromContext(ctx).WithError(err).Errorf("could not publish %s", cqrs.StructName(e))
		}
	}
	return nil
}

func (s *Store) runTx(ctx context.Context, fn func(ctx context.Context, tx entity.Tx) error) ([]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{
		store:      s,
		activities: make(map[string]entity.Activity),
		bookings:   make(map[string]entity.Booking),
		tickets:    make(map[string]entity.Ticket),
	}

	if err := fn(ctx, t); err != nil {
		return nil, err
	}

	for id, a := range t.activities {
		s.activities[id] = a
	}
	for id, b := range t.bookings {
		s.bookings[id] = b
	}
	for id, ticket := range t.tickets {
		s.tickets[id] = ticket
	}
	for _, e := range t.events {
		s.recordHistory(ctx, e)
	}

	return t.events, nil
}

// BookingHistory returns the events recorded for a booking, oldest first.
func (s *Store) BookingHistory(_ context.Context, bookingID string) ([]entity.DataLakeEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]entity.DataLakeEvent(nil), s.history[bookingID]...), nil
}

func (s *Store) recordHistory(ctx context.Context, event any) {
	name := cqrs.StructName(event)

	payload, err := json.Marshal(event)
	if err != nil {
		log.FromContext(ctx).WithError(err).Errorf("could not record %s in history", name)
		return
	}

	var e struct {
		Header    entity.EventHeader `json:"header"`
		BookingID string             `json:"booking_id"`
	}
	if err := json.Unmarshal(payload, &e); err != nil {
		log.FromContext(ctx).WithError(err).Errorf("could not record %s in history", name)
		return
	}
	if e.BookingID == "" {
		return
	}

	s.history[e.BookingID] = append(s.history[e.BookingID], entity.DataLakeEvent{
		ID:          e.Header.ID,
		PublishedAt: e.Header.PublishedAt,
		Name:        name,
		Payload:     payload,
	})
}

// tx sees the store's committed state plus its own uncommitted writes.
type tx struct {
	store *Store

	activities map[string]entity.Activity
	bookings   map[string]entity.Booking
	tickets    map[string]entity.Ticket
	events     []any
}

func (t *tx) AddActivity(_ context.Context, activity entity.Activity) error {
	if _, err := t.activity(activity.ActivityID); err == nil {
		return fmt.Errorf("activity %s already exists", activity.ActivityID)
	}
	t.activities[activity.ActivityID] = activity
	return nil
}

func (t *tx) Activity(_ context.Context, activityID string) (entity.Activity, error) {
	return t.activity(activityID)
}

func (t *tx) activity(activityID string) (entity.Activity, error) {
	if a, ok := t.activities[activityID]; ok {
		return a, nil
	}
	if a, ok := t.store.activities[activityID]; ok {
		return a, nil
	}
	return entity.Activity{}, fmt.Errorf("activity %s: %w", activityID, entity.ErrNotFound)
}

func (t *tx) ReserveSeat(_ context.Context, activityID string) error {
	a, err := t.activity(activityID)
	if err != nil {
		return err
	}
	if a.ReservedSeats >= a.Capacity {
		return entity.ErrCapacityExceeded
	}

	a.ReservedSeats++
	t.activities[activityID] = a
	return nil
}

func (t *tx) ReleaseSeat(_ context.Context, activityID string) error {
	a, err := t.activity(activityID)
	if err != nil {
		return err
	}
	if a.ReservedSeats == 0 {
		return nil
	}

	a.ReservedSeats--
	t.activities[activityID] = a
	return nil
}

func (t *tx) UpdateActivityStatus(_ context.Context, activityID string, status entity.ActivityStatus) error {
	a, err := t.activity(activityID)
	if err != nil {
		return err
	}

	a.Status = status
	t.activities[activityID] = a
	return nil
}

func (t *tx) ActivitiesInStatus(_ context.Context, statuses ...entity.ActivityStatus) ([]entity.Activity, error) {
	ids := make(map[string]struct{}, len(t.store.activities)+len(t.activities))
	for id := range t.store.activities {
		ids[id] = struct{}{}
	}
	for id := range t.activities {
		ids[id] = struct{}{}
	}

	var result []entity.Activity
	for id := range ids {
		a, err := t.activity(id)
		if err != nil {
			return nil, err
		}
		if lo.Contains(statuses, a.Status) {
			result = append(result, a)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartsAt.Equal(result[j].StartsAt) {
			return result[i].StartsAt.Before(result[j].StartsAt)
		}
		return result[i].ActivityID < result[j].ActivityID
	})
	return result, nil
}

func (t *tx) HasActiveBooking(_ context.Context, userID, activityID string) (bool, error) {
	for _, b := range t.allBookings() {
		if b.UserID == userID && b.ActivityID == activityID && b.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) AddBooking(_ context.Context, booking entity.Booking) error {
	for _, b := range t.allBookings() {
		if b.BookingID == booking.BookingID || b.Code == booking.Code {
			return fmt.Errorf("booking %s already exists", booking.BookingID)
		}
		if booking.Active() && b.Active() && b.UserID == booking.UserID && b.ActivityID == booking.ActivityID {
			return entity.ErrDuplicateBooking
		}
	}

	t.bookings[booking.BookingID] = booking
	return nil
}

func (t *tx) Booking(_ context.Context, bookingID string) (entity.Booking, error) {
	if b, ok := t.bookings[bookingID]; ok {
		return b, nil
	}
	if b, ok := t.store.bookings[bookingID]; ok {
		return b, nil
	}
	return entity.Booking{}, fmt.Errorf("booking %s: %w", bookingID, entity.ErrNotFound)
}

func (t *tx) BookingByCode(_ context.Context, code string) (entity.Booking, error) {
	for _, b := range t.allBookings() {
		if b.Code == code {
			return b, nil
		}
	}
	return entity.Booking{}, fmt.Errorf("booking with code %s: %w", code, entity.ErrNotFound)
}

func (t *tx) UpdateBooking(ctx context.Context, booking entity.Booking) error {
	if _, err := t.Booking(ctx, booking.BookingID); err != nil {
		return err
	}
	t.bookings[booking.BookingID] = booking
	return nil
}

func (t *tx) BookingsByUser(_ context.Context, userID string) ([]entity.Booking, error) {
	return t.filterBookings(func(b entity.Booking) bool { return b.UserID == userID }), nil
}

func (t *tx) BookingsByActivity(_ context.Context, activityID string) ([]entity.Booking, error) {
	return t.filterBookings(func(b entity.Booking) bool { return b.ActivityID == activityID }), nil
}

func (t *tx) TicketByBooking(_ context.Context, bookingID string) (entity.Ticket, error) {
	if ticket, ok := t.tickets[bookingID]; ok {
		return ticket, nil
	}
	if ticket, ok := t.store.tickets[bookingID]; ok {
		return ticket, nil
	}
	return entity.Ticket{}, fmt.Errorf("ticket for booking %s: %w", bookingID, entity.ErrNotFound)
}

func (t *tx) AddTicket(ctx context.Context, ticket entity.Ticket) error {
	if _, err := t.TicketByBooking(ctx, ticket.BookingID); err == nil {
		return fmt.Errorf("ticket for booking %s already exists", ticket.BookingID)
	}
	t.tickets[ticket.BookingID] = ticket
	return nil
}

func (t *tx) UpdateTicket(ctx context.Context, ticket entity.Ticket) error {
	if _, err := t.TicketByBooking(ctx, ticket.BookingID); err != nil {
		return err
	}
	t.tickets[ticket.BookingID] = ticket
	return nil
}

func (t *tx) Publish(_ context.Context, event any) error {
	t.events = append(t.events, event)
	return nil
}

func (t *tx) allBookings() []entity.Booking {
	all := make([]entity.Booking, 0, len(t.store.bookings)+len(t.bookings))
	for id, b := range t.store.bookings {
		if _, ok := t.bookings[id]; !ok {
			all = append(all, b)
		}
	}
	for _, b := range t.bookings {
		all = append(all, b)
	}
	return all
}

func (t *tx) filterBookings(keep func(entity.Booking) bool) []entity.Booking {
	var result []entity.Booking
	for _, b := range t.allBookings() {
		if keep(b) {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].BookingID < result[j].BookingID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}
