// Package v1alpha1 contains API types for the fleet controller.
package v1alpha1

import (
	"time"

	"github.com/google/uuid"
)

// APIVersion is the version string carried in TypeMeta
const APIVersion = "v1alpha1"

// TypeMeta describes an individual object's type and API version
type TypeMeta struct {
	// Kind is a string value representing the type of this object
	Kind string `json:"kind,omitempty"`
	// APIVersion defines the versioned schema of this object
	APIVersion string `json:"apiVersion,omitempty"`
}

// NewTypeMeta returns TypeMeta for kind at the current API version
func NewTypeMeta(kind string) TypeMeta {
	return TypeMeta{Kind: kind, APIVersion: APIVersion}
}

// ObjectMeta is metadata that all persisted resources must have
type ObjectMeta struct {
	// ID uniquely identifies this object
	ID uuid.UUID `json:"id,omitempty"`
	// Name is a human-readable identifier for this object
	Name string `json:"name"`
	// CreatedAt indicates when this object was created
	CreatedAt time.Time `json:"createdAt,omitempty"`
	// UpdatedAt indicates when this object was last modified
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
	// Version tracks optimistic concurrency control
	Version int `json:"version,omitempty"`
}

// Error is the JSON error body returned by the API
type Error struct {
	// Code is a machine-readable error code
	Code string `json:"code"`
	// Message is a human-readable description
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}
