package dto

// EnqueueResponse acknowledges an accepted grading job.
type EnqueueResponse struct {
	SubmissionID uint   `json:"submission_id"`
	Status       string `json:"status"`
}

// RetryFailedResponse reports how many failed submissions were re-enqueued.
type RetryFailedResponse struct {
	Retried int `json:"retried"`
}
