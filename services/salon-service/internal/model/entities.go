package model

import "time"

type Service struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Duration    int     `json:"duration"`
	IsActive    bool    `json:"is_active"`
}

type Staff struct {
	ID        string  `json:"id"`
	UserID    *string `json:"user_id,omitempty"`
	Name      string  `json:"name"`
	Email     string  `json:"email,omitempty"`
	Phone     string  `json:"phone,omitempty"`
	Title     string  `json:"title,omitempty"`
	Bio       string  `json:"bio,omitempty"`
	AvatarURL string  `json:"avatar_url,omitempty"`
	IsActive  bool    `json:"is_active"`
}

type Client struct {
	ID        string    `json:"id"`
	UserID    *string   `json:"user_id,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Appointment dates are "YYYY-MM-DD" and times "HH:MM", both in salon local time.
type Appointment struct {
	ID            string    `json:"id"`
	ClientID      string    `json:"client_id"`
	StaffID       string    `json:"staff_id"`
	ServiceIDs    []string  `json:"service_ids"`
	Date          string    `json:"appointment_date"`
	StartTime     string    `json:"start_time"`
	EndTime       string    `json:"end_time"`
	TotalDuration int       `json:"total_duration"`
	TotalPrice    float64   `json:"total_price"`
	Status        Status    `json:"status"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Sale struct {
	ID            string    `json:"id"`
	AppointmentID string    `json:"appointment_id"`
	ClientID      string    `json:"client_id"`
	StaffID       string    `json:"staff_id"`
	ServiceIDs    []string  `json:"service_ids"`
	Amount        float64   `json:"amount"`
	PaymentMethod string    `json:"payment_method"`
	PaymentStatus string    `json:"payment_status"`
	PaymentRef    string    `json:"payment_ref,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// AppointmentView is an appointment joined with the names it references.
type AppointmentView struct {
	Appointment
	ClientName     string   `json:"client_name"`
	StaffName      string   `json:"staff_name"`
	StaffAvatarURL string   `json:"staff_avatar_url,omitempty"`
	ServiceNames   []string `json:"service_names"`
}

type SaleView struct {
	Sale
	ClientName   string   `json:"client_name"`
	StaffName    string   `json:"staff_name"`
	ServiceNames []string `json:"service_names"`
}

type User struct {
	ID           string
	Email        string
	PasswordHash string
	FullName     string
	Phone        string
	CreatedAt    time.Time
}
