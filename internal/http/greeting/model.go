package greeting

// Data is the greeting payload. Field order is the wire order.
type Data struct {
	Message   string `json:"message" doc:"Greeting naming the application" example:"Hello from docker-multistage-demo"`
	Timestamp string `json:"timestamp" doc:"Local date-time of the request, ISO-8601 without zone" example:"2024-01-01T00:00:00"`
	Hostname  string `json:"hostname" doc:"Host that served the request, or unknown" example:"web-7f9c"`
}

// GetOutput is the response for GET /.
type GetOutput struct {
	Body Data
}
