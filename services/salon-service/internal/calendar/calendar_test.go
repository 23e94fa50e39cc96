package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
)

// Friday.
var anchor = time.Date(2025, 3, 14, 15, 30, 0, 0, time.UTC)

func day(s string) time.Time {
	t, _ := time.Parse(model.DateLayout, s)
	return t
}

func TestRange(t *testing.T) {
	d := Range(ViewDay, anchor)
	assert.Equal(t, day("2025-03-14"), d.From)
	assert.Equal(t, d.From, d.To)

	w := Range(ViewWeek, anchor)
	assert.Equal(t, day("2025-03-10"), w.From)
	assert.Equal(t, day("2025-03-16"), w.To)
	assert.Len(t, w.Days(), 7)

	m := Range(ViewMonth, anchor)
	assert.Equal(t, day("2025-02-24"), m.From)
	assert.Equal(t, day("2025-04-06"), m.To)
	assert.Len(t, m.Days(), 42)
	assert.Equal(t, time.Monday, m.From.Weekday())
}

func TestWeekRangeOnSunday(t *testing.T) {
	w := Range(ViewWeek, day("2025-03-16"))
	assert.Equal(t, day("2025-03-10"), w.From)
}

func TestStep(t *testing.T) {
	assert.Equal(t, 15, Step(ViewDay, anchor, 1).Day())
	assert.Equal(t, 7, Step(ViewWeek, anchor, -1).Day())
	assert.Equal(t, time.April, Step(ViewMonth, anchor, 1).Month())
}

func TestParseView(t *testing.T) {
	v, err := ParseView("")
	require.NoError(t, err)
	assert.Equal(t, ViewWeek, v)
	_, err = ParseView("year")
	assert.Error(t, err)
}

func TestConfirmedAndSearch(t *testing.T) {
	views := []model.AppointmentView{
		{Appointment: model.Appointment{ID: "1", Status: model.StatusConfirmed, Date: "2025-03-14"}, ClientName: "Maria Cruz", ServiceNames: []string{"Haircut"}},
		{Appointment: model.Appointment{ID: "2", Status: model.StatusPending, Date: "2025-03-14"}, ClientName: "Jo", ServiceNames: []string{"Facial"}},
		{Appointment: model.Appointment{ID: "3", Status: model.StatusConfirmed, Date: "2025-03-15"}, ClientName: "Ana", ServiceNames: []string{"Hair Coloring"}},
	}

	confirmed := Confirmed(views)
	require.Len(t, confirmed, 2)

	found := Search(views, "HAIR")
	require.Len(t, found, 2)
	assert.Equal(t, "1", found[0].ID)

	assert.Len(t, Search(views, "cruz"), 1)
	assert.Len(t, Search(views, "  "), 3)
	assert.Len(t, ByDay(confirmed)["2025-03-14"], 1)
	assert.True(t, Range(ViewWeek, anchor).Contains("2025-03-16"))
}
