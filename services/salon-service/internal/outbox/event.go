package outbox

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is the envelope written to the outbox table. The Kafka topic equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Tables that emit change events.
const (
	TableAppointments = "appointments"
	TableClients      = "clients"
	TableStaff        = "staff"
	TableServices     = "services"
	TableSales        = "sales"
	TableUserRoles    = "user_roles"
)

var ChangeTables = []string{
	TableAppointments, TableClients, TableStaff, TableServices, TableSales, TableUserRoles,
}

// Change is the payload of a row change event.
type Change struct {
	Table string    `json:"table"`
	Op    Op        `json:"op"`
	ID    string    `json:"id"`
	At    time.Time `json:"at"`
}

func ChangeTopic(table string) string {
	return fmt.Sprintf("salon.%s.changed.v1", table)
}

func ChangeTopics() []string {
	topics := make([]string, 0, len(ChangeTables))
	for _, t := range ChangeTables {
		topics = append(topics, ChangeTopic(t))
	}
	return topics
}

func NewChangeEvent(table string, op Op, id string) (Event, error) {
	payload, err := json.Marshal(Change{Table: table, Op: op, ID: id, At: time.Now().UTC()})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: table,
		AggregateID:   id,
		EventType:     ChangeTopic(table),
		Payload:       payload,
	}, nil
}

// Domain events consumed by notification-service.
const (
	EventAppointmentBooked    = "salon.appointment.booked.v1"
	EventAppointmentCancelled = "salon.appointment.cancelled.v1"
)

// AppointmentNotice carries everything a confirmation or cancellation message needs.
type AppointmentNotice struct {
	AppointmentID string   `json:"appointment_id"`
	ClientName    string   `json:"client_name"`
	ClientEmail   string   `json:"client_email"`
	ClientPhone   string   `json:"client_phone,omitempty"`
	StaffName     string   `json:"staff_name"`
	ServiceNames  []string `json:"service_names"`
	Date          string   `json:"appointment_date"`
	StartTime     string   `json:"start_time"`
	EndTime       string   `json:"end_time"`
	TotalPrice    float64  `json:"total_price"`
}

func NewNoticeEvent(eventType string, notice AppointmentNotice) (Event, error) {
	payload, err := json.Marshal(notice)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "appointment",
		AggregateID:   notice.AppointmentID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
