package geocoderepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"rentaread/util/httpx"
)

// ErrNoResult means the address did not resolve to coordinates.
var ErrNoResult = errors.New("no geocoding result for address")

type Repo interface {
	Geocode(ctx context.Context, address string) (lon, lat float64, err error)
}

type nominatim struct {
	contactEmail string
	client       *http.Client
}

// New returns a Nominatim-backed geocoder. Nominatim's usage policy
// requires an identifying User-Agent, hence the contact email.
func New(contactEmail string) Repo {
	return &nominatim{contactEmail: contactEmail, client: httpx.Client()}
}

func (n *nominatim) Geocode(ctx context.Context, address string) (float64, float64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	u := "https://nominatim.openstreetmap.org/search?format=json&limit=1&q=" + url.QueryEscape(address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("User-Agent", "RentareadApp/1.0 ("+n.contactEmail+")")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geocoding failed: %s", resp.Status)
	}

	var results []struct {
		Lon string `json:"lon"`
		Lat string `json:"lat"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return 0, 0, err
	}
	if len(results) == 0 {
		return 0, 0, ErrNoResult
	}

	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return 0, 0, err
	}
	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return 0, 0, err
	}
	return lon, lat, nil
}
