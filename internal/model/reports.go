package model

// Summary is the wire shape of GET /dashboard/summary.
type Summary struct {
	TotalCustomers    int              `json:"total_customers"`
	TotalAppointments int              `json:"total_appointments"` // pending only
	RevenueToday      float64          `json:"revenue_today"`
	TotalRevenue      float64          `json:"total_revenue"`
	PopularServices   []ServiceCounter `json:"popular_services"`
}

type ServiceCounter struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Reports is the wire shape of GET /dashboard/reports.
type Reports struct {
	DailyRevenue      []DailyRevenue     `json:"daily_revenue"`
	MonthlyRevenue    []MonthlyRevenue   `json:"monthly_revenue"`
	PopularServices   []ServiceRevenue   `json:"popular_services"`
	FrequentCustomers []FrequentCustomer `json:"frequent_customers"`
}

type DailyRevenue struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
}

type MonthlyRevenue struct {
	Month   string  `json:"month"` // YYYY-MM
	Revenue float64 `json:"revenue"`
}

type ServiceRevenue struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Bookings int     `json:"bookings"`
	Revenue  float64 `json:"revenue"`
}

type FrequentCustomer struct {
	Name   string  `json:"name"`
	Phone  string  `json:"phone"`
	Visits int     `json:"visits"`
	Spent  float64 `json:"spent"`
}

// RevenueTotal sums the daily revenue series.
func (r Reports) RevenueTotal() float64 {
	var total float64
	for _, d := range r.DailyRevenue {
		total += d.Revenue
	}
	return total
}
