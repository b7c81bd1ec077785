package response

type HealthResponse struct {
	Status string            `json:"status"` // "ok" or "degraded"
	Checks map[string]string `json:"checks"`
}

// PostStatusResponse is the API view of entity.PostStatus.
type PostStatusResponse struct {
	Link           string `json:"link"`
	CurrentStatus  string `json:"current_status"` // "unprocessed", "processed"
	ServiceRequest string `json:"service_request"`
	Date           string `json:"date,omitempty"`
}

type UnprocessedResponse struct {
	Count int      `json:"count"`
	Links []string `json:"links"`
}
