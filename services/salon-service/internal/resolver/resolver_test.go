package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/outbox"
)

type staffSource struct {
	rows  map[string]model.Staff
	calls [][]string
	err   error
}

func (s *staffSource) ByIDs(_ context.Context, ids []string) ([]model.Staff, error) {
	s.calls = append(s.calls, ids)
	if s.err != nil {
		return nil, s.err
	}
	var out []model.Staff
	for _, id := range ids {
		if row, ok := s.rows[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

type serviceSource struct {
	rows map[string]model.Service
	err  error
}

func (s *serviceSource) ByIDs(_ context.Context, ids []string) ([]model.Service, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []model.Service
	for _, id := range ids {
		if row, ok := s.rows[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

type clientSource struct{}

func (clientSource) ByIDs(_ context.Context, ids []string) ([]model.Client, error) {
	var out []model.Client
	for _, id := range ids {
		out = append(out, model.Client{ID: id, Name: "Client " + id})
	}
	return out, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestStaffLookupIsBatchedAndCached(t *testing.T) {
	mr, rdb := newRedis(t)
	staff := &staffSource{rows: map[string]model.Staff{
		"st-1": {ID: "st-1", Name: "Ana"},
		"st-2": {ID: "st-2", Name: "Bo"},
	}}
	r := New(Config{Staff: staff, Services: &serviceSource{}, Clients: clientSource{}, Redis: rdb, TTL: time.Minute, Logger: quietLogger()})

	got, err := r.Staff(context.Background(), []string{"st-1", "st-2", "st-1"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	require.Len(t, staff.calls, 1)
	assert.ElementsMatch(t, []string{"st-1", "st-2"}, staff.calls[0])
	assert.True(t, mr.Exists("lookup:staff:st-1"))

	got, err = r.Staff(context.Background(), []string{"st-1", "st-2"})
	require.NoError(t, err)
	assert.Equal(t, "Bo", got["st-2"].Name)
	assert.Len(t, staff.calls, 1)

	r.Forget(context.Background(), KindStaff, "st-1")
	assert.False(t, mr.Exists("lookup:staff:st-1"))
	_, err = r.Staff(context.Background(), []string{"st-1", "st-2"})
	require.NoError(t, err)
	require.Len(t, staff.calls, 2)
	assert.Equal(t, []string{"st-1"}, staff.calls[1])
}

func TestLookupWithoutRedis(t *testing.T) {
	staff := &staffSource{rows: map[string]model.Staff{"st-1": {ID: "st-1", Name: "Ana"}}}
	r := New(Config{Staff: staff, Services: &serviceSource{}, Clients: clientSource{}, Logger: quietLogger()})

	got, err := r.Staff(context.Background(), []string{"st-1"})
	require.NoError(t, err)
	assert.Equal(t, "Ana", got["st-1"].Name)
}

func TestAppointmentViewsUsePlaceholders(t *testing.T) {
	staff := &staffSource{err: errors.New("db down")}
	services := &serviceSource{rows: map[string]model.Service{"svc-1": {ID: "svc-1", Name: "Haircut"}}}
	r := New(Config{Staff: staff, Services: services, Clients: clientSource{}, Logger: quietLogger()})

	views := r.AppointmentViews(context.Background(), []model.Appointment{
		{ID: "a-1", ClientID: "c-1", StaffID: "st-9", ServiceIDs: []string{"svc-1", "svc-gone"}},
	})
	require.Len(t, views, 1)
	assert.Equal(t, UnknownStaff, views[0].StaffName)
	assert.Equal(t, "Client c-1", views[0].ClientName)
	assert.Equal(t, []string{"Haircut", UnknownService}, views[0].ServiceNames)
}

func TestSaleViews(t *testing.T) {
	staff := &staffSource{rows: map[string]model.Staff{"st-1": {ID: "st-1", Name: "Ana"}}}
	r := New(Config{Staff: staff, Services: &serviceSource{}, Clients: clientSource{}, Logger: quietLogger()})

	views := r.SaleViews(context.Background(), []model.Sale{{ID: "s-1", StaffID: "st-1", ClientID: "c-1", ServiceIDs: []string{"svc-1"}}})
	require.Len(t, views, 1)
	assert.Equal(t, "Ana", views[0].StaffName)
	assert.Equal(t, []string{UnknownService}, views[0].ServiceNames)
}

func TestCacheOutageFallsBackToSource(t *testing.T) {
	mr, rdb := newRedis(t)
	staff := &staffSource{rows: map[string]model.Staff{"st-1": {ID: "st-1", Name: "Ana"}}}
	r := New(Config{Staff: staff, Services: &serviceSource{}, Clients: clientSource{}, Redis: rdb, Logger: quietLogger()})
	mr.Close()

	got, err := r.Staff(context.Background(), []string{"st-1"})
	require.NoError(t, err)
	assert.Equal(t, "Ana", got["st-1"].Name)
}

type emptyClients struct{}

func (emptyClients) ByIDs(context.Context, []string) ([]model.Client, error) { return nil, nil }

func TestNoticeCarriesNamesAndSchedule(t *testing.T) {
	staff := &staffSource{rows: map[string]model.Staff{"st-1": {ID: "st-1", Name: "Ana"}}}
	services := &serviceSource{rows: map[string]model.Service{"svc-1": {ID: "svc-1", Name: "Haircut"}}}
	r := New(Config{Staff: staff, Services: services, Clients: clientSource{}, Logger: quietLogger()})

	evt, err := r.Notice(context.Background(), outbox.EventAppointmentBooked, model.Appointment{
		ID: "a-1", ClientID: "c-1", StaffID: "st-1", ServiceIDs: []string{"svc-1"},
		Date: "2025-03-14", StartTime: "10:00", EndTime: "10:45", TotalPrice: 35,
	})
	require.NoError(t, err)
	assert.Equal(t, outbox.EventAppointmentBooked, evt.EventType)
	assert.Equal(t, "a-1", evt.AggregateID)

	var notice outbox.AppointmentNotice
	require.NoError(t, json.Unmarshal(evt.Payload, &notice))
	assert.Equal(t, "Client c-1", notice.ClientName)
	assert.Equal(t, "Ana", notice.StaffName)
	assert.Equal(t, []string{"Haircut"}, notice.ServiceNames)
	assert.Equal(t, "10:45", notice.EndTime)
}

func TestNoticeNeedsClient(t *testing.T) {
	r := New(Config{Staff: &staffSource{}, Services: &serviceSource{}, Clients: emptyClients{}, Logger: quietLogger()})
	_, err := r.Notice(context.Background(), outbox.EventAppointmentCancelled, model.Appointment{ID: "a-1", ClientID: "c-x"})
	assert.Error(t, err)
}
