package http

import "limedb/pkg/manifest"

type Status string

const (
	// StatusOK is used for health-check responses.
	StatusOK Status = "OK"

	// StatusSuccess indicates an operation completed successfully.
	StatusSuccess Status = "success"

	// StatusError indicates an operation failed.
	StatusError Status = "error"
)

// Response represents the standard API response format.
type Response struct {
	Status    Status           `json:"status,omitempty"`
	Value     string           `json:"value,omitempty"`
	Error     string           `json:"error,omitempty"`
	FileID    *uint32          `json:"file_id,omitempty"`
	Watermark *manifest.Record `json:"watermark,omitempty"`
	Manifest  string           `json:"manifest,omitempty"`
}

func NewOKResponse() Response {
	return Response{Status: StatusOK}
}

func NewSuccessResponse() Response {
	return Response{Status: StatusSuccess}
}

func NewValueResponse(value string) Response {
	return Response{Status: StatusSuccess, Value: value}
}

func NewWatermarkResponse(kind manifest.Kind, rec manifest.Record) Response {
	return Response{Status: StatusSuccess, Manifest: kind.String(), Watermark: &rec}
}

func NewFileIDResponse(fid uint32) Response {
	return Response{Status: StatusSuccess, FileID: &fid}
}

func NewErrorResponse(err string) Response {
	return Response{Status: StatusError, Error: err}
}
