// Package domain contains core business types and interfaces for the
// fleet-compliance engine: persons, vehicles, daily reports, photo evidence,
// pending tasks, anomalies, maintenance obligations and incidents.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role distinguishes fleet owners from the drivers working for them.
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleDriver Role = "DRIVER"
)

// IsValid returns true if the role is a recognized value.
func (r Role) IsValid() bool {
	return r == RoleOwner || r == RoleDriver
}

// Person is an owner or driver. Drivers carry a reference to the owner they
// work for; owners stand alone. The phone number is the identity used by the
// chat channel and by outbound notifications.
type Person struct {
	ID        uuid.UUID
	Name      string
	Phone     string
	Role      Role
	OwnerID   *uuid.UUID // set for drivers, nil for owners
	PINHash   string     // bcrypt hash of the chat-channel PIN
	Active    bool
	CreatedAt time.Time
}

// IsDriver returns true for driver accounts.
func (p *Person) IsDriver() bool {
	return p.Role == RoleDriver
}

// HasOwner returns true if a driver has an assigned owner. Drivers without an
// owner cannot raise incidents.
func (p *Person) HasOwner() bool {
	return p.OwnerID != nil
}

// Assignment links a driver to the single vehicle they operate. A driver has
// at most one active assignment at a time.
type Assignment struct {
	ID        uuid.UUID
	DriverID  uuid.UUID
	VehicleID uuid.UUID
	Active    bool
	CreatedAt time.Time
}

// CreatePersonParams contains validated parameters for registering a person.
type CreatePersonParams struct {
	Name    string
	Phone   string
	Role    Role
	OwnerID *uuid.UUID
	PIN     string
}
