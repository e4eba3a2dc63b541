package model

import "time"

// Fare class kinds.  A passenger class seats one person per unit; a
// vehicle class takes one vehicle slot per unit.  The kind decides
// which detail fields are mandatory on a ticket entry at claim time.
const (
	ClassKindPassenger = "PASSENGER"
	ClassKindVehicle   = "VEHICLE"
)

// FareClass describes a sellable unit class on a sailing: economy or
// business seats, motorcycle or car slots, and so on.  Pricing is a
// fixed per-class amount in cents; anything fancier is out of scope.
//
// Fields:
//  ID         – primary key identifier.
//  Code       – short code used in availability listings (e.g. "ECO").
//  Name       – human readable class name.
//  Kind       – ClassKindPassenger or ClassKindVehicle.
//  PriceCents – fixed price per unit in cents.
//  CreatedAt  – creation timestamp.
type FareClass struct {
	ID         uint64    // fare_classes.id
	Code       string    // fare_classes.code
	Name       string    // fare_classes.name
	Kind       string    // fare_classes.kind
	PriceCents uint32    // fare_classes.price_cents
	CreatedAt  time.Time // fare_classes.created_at
}
