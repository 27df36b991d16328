package models

// UploadStatus aggregates the outcome of one bulk import batch.
// Counters only ever increase while a batch runs; when it completes,
// Processed == Total and Success + Failed == Total.
type UploadStatus struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Success   int `json:"success"`
	Failed    int `json:"failed"`
}

// Done reports whether every record in the batch has been attempted.
func (s UploadStatus) Done() bool {
	return s.Processed == s.Total
}
