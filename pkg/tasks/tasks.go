// Package tasks defines the jobs exchanged over the ingestion queue.
package tasks

// IngestionTask asks the pipeline to index an already stored document.
type IngestionTask struct {
	DocID     string `json:"doc_id"`
	FileName  string `json:"file_name"`
	ObjectKey string `json:"object_key"`
	UserID    string `json:"user_id"`
}
