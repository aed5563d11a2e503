package services

import (
	"context"
	"strings"

	"github.com/tomjwalt/subterrain1/models"
	"github.com/tomjwalt/subterrain1/providers"

	"go.uber.org/zap"
)

// AddressService pre-fills the shipping address form. Purely request/response;
// no retry policy beyond what the caller's UI chooses.
type AddressService interface {
	Lookup(ctx context.Context, postcode string) ([]models.Address, error)
	Reverse(ctx context.Context, lat, lon float64) (*models.Address, error)
}

type addressServiceImpl struct {
	provider providers.AddressProvider
	logger   *zap.Logger
}

func NewAddressService(provider providers.AddressProvider, logger *zap.Logger) AddressService {
	return &addressServiceImpl{provider: provider, logger: logger}
}

func (s *addressServiceImpl) Lookup(ctx context.Context, postcode string) ([]models.Address, error) {
	trimmed := strings.TrimSpace(postcode)
	if trimmed == "" {
		return nil, &ServiceError{StatusCode: 400, Message: "postcode is required"}
	}

	addresses, err := s.provider.Lookup(ctx, trimmed)
	if err != nil {
		s.logger.Error("postcode lookup failed", zap.Error(err))
		return nil, &ServiceError{StatusCode: 502, Message: "address lookup failed: " + err.Error()}
	}
	// Zero candidates is a valid answer, not an error.
	return addresses, nil
}

func (s *addressServiceImpl) Reverse(ctx context.Context, lat, lon float64) (*models.Address, error) {
	addr, err := s.provider.Reverse(ctx, lat, lon)
	if err != nil {
		s.logger.Error("reverse geocode failed", zap.Error(err))
		return nil, &ServiceError{StatusCode: 502, Message: "reverse geocoding failed: " + err.Error()}
	}
	return addr, nil
}
