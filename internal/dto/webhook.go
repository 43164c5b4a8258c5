package dto

import (
	"encoding/json"
	"strings"
)

// Identity lifecycle event types.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// WebhookEvent is a signed identity provider delivery.
type WebhookEvent struct {
	Type string          `json:"type"`
	Data WebhookUserData `json:"data"`
}

// WebhookEmail is one address attached to an external account.
type WebhookEmail struct {
	EmailAddress string `json:"email_address"`
}

// WebhookUserData is the subset of the external user object the API mirrors.
type WebhookUserData struct {
	ID             string                     `json:"id"`
	FirstName      string                     `json:"first_name"`
	LastName       string                     `json:"last_name"`
	EmailAddresses []WebhookEmail             `json:"email_addresses"`
	PublicMetadata map[string]json.RawMessage `json:"public_metadata"`
}

// FullName joins first and last name, trimming blanks.
func (d WebhookUserData) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(d.FirstName) + " " + strings.TrimSpace(d.LastName))
}

// PrimaryEmail returns the first listed address, if any.
func (d WebhookUserData) PrimaryEmail() string {
	if len(d.EmailAddresses) == 0 {
		return ""
	}
	return strings.TrimSpace(d.EmailAddresses[0].EmailAddress)
}

// MetadataRole returns public_metadata.role when it is a string.
func (d WebhookUserData) MetadataRole() string {
	raw, ok := d.PublicMetadata["role"]
	if !ok {
		return ""
	}
	var role string
	if err := json.Unmarshal(raw, &role); err != nil {
		return ""
	}
	return role
}
