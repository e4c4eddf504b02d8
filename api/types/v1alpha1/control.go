package v1alpha1

import (
	"time"

	"github.com/google/uuid"
)

// ControlMessageType defines types of control messages
type ControlMessageType string

const (
	// ControlMessageCommand pushes a freshly issued command to a device
	ControlMessageCommand ControlMessageType = "COMMAND"
	// ControlMessageHeartbeat is a device liveness report
	ControlMessageHeartbeat ControlMessageType = "HEARTBEAT"
	// ControlMessageIssue reports a device error or warning
	ControlMessageIssue ControlMessageType = "ISSUE"
	// ControlMessageAck acknowledges a command
	ControlMessageAck ControlMessageType = "ACK"
	// ControlMessageError reports a rejected device message
	ControlMessageError ControlMessageType = "ERROR"
)

// ControlMessage represents a message sent over the device control channel
type ControlMessage struct {
	// TypeMeta describes API version details
	TypeMeta `json:",inline"`
	// Type indicates the kind of control message
	Type ControlMessageType `json:"type"`
	// Timestamp indicates when message was created
	Timestamp time.Time `json:"timestamp"`
	// Command is set on COMMAND messages
	Command *CommandPayload `json:"command,omitempty"`
	// Ack is set on ACK messages
	Ack *AckPayload `json:"ack,omitempty"`
	// Issue is set on ISSUE messages
	Issue *IssueReport `json:"issue,omitempty"`
	// Error contains error details if applicable
	Error *ControlError `json:"error,omitempty"`
}

// CommandPayload is what a device needs to execute a command
type CommandPayload struct {
	CommandID uuid.UUID         `json:"commandId"`
	Command   string            `json:"command"`
	Params    map[string]string `json:"params,omitempty"`
	IssuedAt  time.Time         `json:"issuedAt"`
}

// AckPayload reports a command's outcome
type AckPayload struct {
	CommandID    uuid.UUID `json:"commandId"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
}

// ControlError represents control message errors
type ControlError struct {
	// Code provides error classification
	Code string `json:"code"`
	// Message provides error details
	Message string `json:"message"`
}
