package server

import (
	"github.com/raysh454/appreviewer/internal/model"
	"github.com/raysh454/appreviewer/internal/progress"
)

// HealthResponse is returned by the liveness probe.
type HealthResponse struct {
	Status    string `json:"status" example:"healthy"`
	Timestamp string `json:"timestamp" example:"2025-01-01T12:00:00Z"`
	Version   string `json:"version" example:"1.0.0"`
}

// APIStatusResponse describes the API and its upload limits.
type APIStatusResponse struct {
	Message            string   `json:"message" example:"App Reviewer API v1 is running"`
	Version            string   `json:"version" example:"1.0.0"`
	UploadEndpoint     string   `json:"upload_endpoint"`
	AnalysisEndpoint   string   `json:"analysis_endpoint"`
	SupportedFileTypes []string `json:"supported_file_types" example:".js,.jsx,.tsx"`
	MaxFileSize        string   `json:"max_file_size" example:"10MB"`
}

// FileUploadResponse is returned after a successful upload.
type FileUploadResponse struct {
	Success         bool   `json:"success" example:"true"`
	Message         string `json:"message" example:"File uploaded successfully"`
	FileID          string `json:"file_id" example:"0b6f3c1e-5f0e-4c1e-9a63-2f1f0c6f5a10"`
	FileName        string `json:"file_name" example:"App.tsx"`
	FileSize        int64  `json:"file_size" example:"2048"`
	FileType        string `json:"file_type" example:".tsx"`
	UploadTimestamp string `json:"upload_timestamp" example:"2025-01-01T12:00:00Z"`
}

// FileInfoResponse describes a stored upload. Status is "uploaded" until an
// analysis has been started for it.
type FileInfoResponse struct {
	FileID          string `json:"file_id"`
	FileName        string `json:"file_name"`
	FileSize        int64  `json:"file_size"`
	FileType        string `json:"file_type"`
	SHA256          string `json:"sha256"`
	UploadTimestamp string `json:"upload_timestamp"`
	Status          string `json:"status" example:"uploaded"`
}

// DeleteFileResponse confirms a deleted upload.
type DeleteFileResponse struct {
	Status  string `json:"status" example:"success"`
	Message string `json:"message" example:"File deleted successfully"`
	FileID  string `json:"file_id"`
}

// AnalysisResponse is returned when starting an analysis and when fetching
// its result. AnalysisResult is only set once the analysis has completed.
type AnalysisResponse struct {
	Success        bool                  `json:"success"`
	Message        string                `json:"message"`
	AnalysisResult *model.AnalysisReport `json:"analysis_result,omitempty"`
	Error          string                `json:"error,omitempty"`
}

// AnalysisStatusResponse reports the progress of an analysis.
type AnalysisStatusResponse struct {
	FileID   string             `json:"file_id"`
	Status   progress.Lifecycle `json:"status" example:"running"`
	Progress int                `json:"progress" example:"63"`
	Message  string             `json:"message" example:"Security analysis complete"`
	Error    string             `json:"error,omitempty"`
}

// CancelAnalysisResponse confirms that analysis data was removed.
type CancelAnalysisResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Error   string `json:"error" example:"not found"`
	Details string `json:"details,omitempty"`
}
