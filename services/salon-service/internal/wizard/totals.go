package wizard

import "github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"

type Totals struct {
	Price    float64 `json:"total_price"`
	Duration int     `json:"total_duration"`
}

func DeriveTotals(services []model.Service) Totals {
	var t Totals
	for _, s := range services {
		t.Price += s.Price
		t.Duration += s.Duration
	}
	return t
}

// Toggle adds svc when absent and removes it when present, matching by id.
func Toggle(services []model.Service, svc model.Service) []model.Service {
	for i, s := range services {
		if s.ID == svc.ID {
			out := make([]model.Service, 0, len(services)-1)
			out = append(out, services[:i]...)
			return append(out, services[i+1:]...)
		}
	}
	out := make([]model.Service, 0, len(services)+1)
	out = append(out, services...)
	return append(out, svc)
}

func IDs(services []model.Service) []string {
	ids := make([]string, 0, len(services))
	for _, s := range services {
		ids = append(ids, s.ID)
	}
	return ids
}

// Quote is what the confirm step shows for a selection and start time.
type Quote struct {
	Totals
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
}

func NewQuote(services []model.Service, start string) (Quote, error) {
	q := Quote{Totals: DeriveTotals(services)}
	if start == "" {
		return q, nil
	}
	end, err := EndTime(start, q.Duration)
	if err != nil {
		return Quote{}, err
	}
	q.StartTime = start
	q.EndTime = end
	return q, nil
}
