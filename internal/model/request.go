package model

// FileMetadata describes the analyzed file.
type FileMetadata struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	Extension string `json:"extension"`
}

// AnalysisRequest is the immutable input of one run. It is created once by the
// caller and only read by the orchestrator and analyzers.
type AnalysisRequest struct {
	Content  string       `json:"content"`
	Metadata FileMetadata `json:"metadata"`
}
