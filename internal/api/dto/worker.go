package dto

// ProcessWorkerRequest names the worker phases to run. An empty list runs
// every phase in random order.
type ProcessWorkerRequest struct {
	Phases []string `json:"phases"`
}

// ProcessWorkerResponse carries the worker's activity summary.
type ProcessWorkerResponse struct {
	Message string `json:"message"`
}
