package types

import (
	"fmt"
	"time"
)

// Photo is a saved capture as listed by the photo service.
type Photo struct {
	ID        int    `json:"id"`
	Filename  string `json:"filename"`
	SavedAt   string `json:"saved_at"`
	FaceCount int    `json:"face_count"`
}

// savedAtLayouts are the timestamp shapes the service emits (Python isoformat, with or without zone).
var savedAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
}

// SavedTime parses SavedAt. Timestamps without a zone are read as local time.
func (p Photo) SavedTime() (time.Time, error) {
	for _, layout := range savedAtLayouts {
		if t, err := time.ParseInLocation(layout, p.SavedAt, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized saved_at %q", p.SavedAt)
}

// FaceBox is a detected face rectangle in source-frame pixels.
type FaceBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ImageRequest is the body of detect_faces and save_photo.
type ImageRequest struct {
	Image string `json:"image"`
}

// DetectResult is the detect_faces response.
type DetectResult struct {
	Faces     []FaceBox `json:"faces"`
	FaceCount int       `json:"face_count"`
	Error     string    `json:"error,omitempty"`
}

// SaveResult is the save_photo response.
type SaveResult struct {
	Message   string `json:"message,omitempty"`
	PhotoID   int    `json:"photo_id,omitempty"`
	Filename  string `json:"filename,omitempty"`
	FaceCount int    `json:"face_count"`
	Error     string `json:"error,omitempty"`
}

// MessageResult covers delete_photo and init_db, which only carry a message or an error.
type MessageResult struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ErrorResult captures the error object returned by the service on failure
type ErrorResult struct {
	Error string `json:"error"`
}
