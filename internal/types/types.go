package types

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the success body of POST /chat.
type ChatResponse struct {
	Response string `json:"response"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type RegisterRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ProfileRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// CarRequest uses pointers so a missing number can be told apart from zero.
type CarRequest struct {
	Make         string   `json:"make"`
	Model        string   `json:"model"`
	Year         *int     `json:"year"`
	LicensePlate string   `json:"license_plate"`
	VehicleValue *float64 `json:"vehicle_value"`
	Mileage      *int     `json:"mileage"`
}

// SaveQuoteRequest carries no price; the server prices the car itself.
type SaveQuoteRequest struct {
	CarID     int64 `json:"car_id"`
	ProductID int64 `json:"product_id"`
}

// MessageResponse carries a flash-style notice.
type MessageResponse struct {
	Message string `json:"message"`
}
