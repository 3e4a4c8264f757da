package entities

// AppointmentNotification feeds the confirmation SMS and the admin email.
type AppointmentNotification struct {
	AppointmentID    string
	CustomerName     string
	CustomerPhone    string
	DateFormatted    string
	Time             string
	AppliedCoupon    string
	Discount         string
	IssuedCouponCode string
	CurrentYear      int
}
