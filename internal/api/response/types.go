package response

// ControlResponse reports the run flag after a start or stop request
type ControlResponse struct {
	Running bool `json:"running"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status string `json:"status"`
}
