package controllers

import (
	"net/http"
	"strconv"

	"github.com/tomjwalt/subterrain1/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AddressController struct {
	Addresses services.AddressService
	Logger    *zap.Logger
}

func NewAddressController(addresses services.AddressService, logger *zap.Logger) *AddressController {
	return &AddressController{Addresses: addresses, Logger: logger}
}

// Lookup returns candidate addresses for a postcode. An empty candidate list
// is a 200, not an error.
func (ac *AddressController) Lookup(c *gin.Context) {
	addresses, err := ac.Addresses.Lookup(c.Request.Context(), c.Query("postcode"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"addresses": addresses})
}

// Reverse geocodes coordinates to a decomposed address.
func (ac *AddressController) Reverse(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lon, lonErr := strconv.ParseFloat(c.Query("lon"), 64)
	if latErr != nil || lonErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon query parameters are required"})
		return
	}

	addr, err := ac.Addresses.Reverse(c.Request.Context(), lat, lon)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": addr})
}
