package models

// ErrorMessageResponse returns the error message response struct
type ErrorMessageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// HealthCheckResponse returns the health check response struct
type HealthCheckResponse struct {
	Alive bool `json:"alive"`
}
