package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tomjwalt/subterrain1/models"
)

// PostcodesProvider implements AddressProvider using the postcodes.io API.
type PostcodesProvider struct {
	baseURL    string
	httpClient *http.Client
}

func NewPostcodesProvider(baseURL string) *PostcodesProvider {
	return &PostcodesProvider{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// ---- postcodes.io response structs ----

type postcodeResult struct {
	Postcode      string  `json:"postcode"`
	AdminDistrict string  `json:"admin_district"`
	AdminWard     string  `json:"admin_ward"`
	Region        string  `json:"region"`
	Country       string  `json:"country"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
}

type postcodeListResponse struct {
	Status int              `json:"status"`
	Result []postcodeResult `json:"result"`
}

func (p *PostcodesProvider) Lookup(ctx context.Context, postcode string) ([]models.Address, error) {
	endpoint := fmt.Sprintf("%s/postcodes?q=%s", p.baseURL, url.QueryEscape(postcode))
	out, err := p.query(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	addresses := make([]models.Address, 0, len(out.Result))
	for _, r := range out.Result {
		addresses = append(addresses, toAddress(r))
	}
	return addresses, nil
}

func (p *PostcodesProvider) Reverse(ctx context.Context, lat, lon float64) (*models.Address, error) {
	endpoint := fmt.Sprintf("%s/postcodes?lat=%f&lon=%f", p.baseURL, lat, lon)
	out, err := p.query(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if len(out.Result) == 0 {
		return nil, fmt.Errorf("no address found for coordinates")
	}
	addr := toAddress(out.Result[0])
	return &addr, nil
}

func (p *PostcodesProvider) query(ctx context.Context, endpoint string) (*postcodeListResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("postcode lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("postcode API error %s: %s", resp.Status, string(respBody))
	}

	var out postcodeListResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode postcode response: %w", err)
	}
	return &out, nil
}

func toAddress(r postcodeResult) models.Address {
	return models.Address{
		City:       r.AdminDistrict,
		Region:     r.Region,
		PostalCode: r.Postcode,
		Country:    r.Country,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
	}
}
