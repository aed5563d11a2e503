package providers

import (
	"context"

	"github.com/tomjwalt/subterrain1/models"
)

// AddressProvider is the interface address lookup backends must implement.
type AddressProvider interface {
	// Lookup returns zero or more candidate addresses for a postal code.
	Lookup(ctx context.Context, postcode string) ([]models.Address, error)

	// Reverse geocodes coordinates to the nearest decomposed address.
	Reverse(ctx context.Context, lat, lon float64) (*models.Address, error)
}
