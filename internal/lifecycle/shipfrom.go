package lifecycle

import (
	"context"
	"strings"

	"github.com/packlane/labeld/internal/store"
	"github.com/packlane/labeld/pkg/carrier"
)

// usSubdivisions lists the USPS state and territory codes accepted for a
// domestic US ship-from address.
var usSubdivisions = map[string]struct{}{
	"AL": {}, "AK": {}, "AZ": {}, "AR": {}, "CA": {}, "CO": {}, "CT": {},
	"DE": {}, "FL": {}, "GA": {}, "HI": {}, "ID": {}, "IL": {}, "IN": {},
	"IA": {}, "KS": {}, "KY": {}, "LA": {}, "ME": {}, "MD": {}, "MA": {},
	"MI": {}, "MN": {}, "MS": {}, "MO": {}, "MT": {}, "NE": {}, "NV": {},
	"NH": {}, "NJ": {}, "NM": {}, "NY": {}, "NC": {}, "ND": {}, "OH": {},
	"OK": {}, "OR": {}, "PA": {}, "RI": {}, "SC": {}, "SD": {}, "TN": {},
	"TX": {}, "UT": {}, "VT": {}, "VA": {}, "WA": {}, "WV": {}, "WI": {},
	"WY": {}, "DC": {}, "PR": {}, "VI": {}, "GU": {}, "AS": {}, "MP": {},
	"AA": {}, "AE": {}, "AP": {},
}

// GetShipFrom returns the ship-from profile, empty if never saved.
func (m *Manager) GetShipFrom(ctx context.Context) (*store.ShipFromProfile, error) {
	return m.store.GetShipFrom(ctx)
}

// SaveShipFrom persists the ship-from profile. Partial profiles are
// accepted; completeness is only enforced when quoting or purchasing.
func (m *Manager) SaveShipFrom(ctx context.Context, profile *store.ShipFromProfile) (*store.ShipFromProfile, error) {
	profile.CountryCode = strings.ToUpper(strings.TrimSpace(profile.CountryCode))
	profile.RegionCode = strings.ToUpper(strings.TrimSpace(profile.RegionCode))
	if profile.CountryCode != "" && len(profile.CountryCode) != 2 {
		return nil, newValidation("country code must be a 2-letter ISO code, got %q", profile.CountryCode)
	}
	if err := m.store.SaveShipFrom(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// missingShipFromFields evaluates completeness on demand. For a US
// ship-from the state must additionally be a recognized subdivision code;
// an unrecognized one counts as missing.
func missingShipFromFields(p *store.ShipFromProfile) []string {
	var missing []string
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(p.AddressLine1) == "" {
		missing = append(missing, "address line 1")
	}
	if strings.TrimSpace(p.City) == "" {
		missing = append(missing, "city")
	}
	state := strings.ToUpper(strings.TrimSpace(p.RegionCode))
	country := strings.ToUpper(strings.TrimSpace(p.CountryCode))
	if state == "" {
		missing = append(missing, "state")
	} else if country == "US" {
		if _, ok := usSubdivisions[state]; !ok {
			missing = append(missing, "state")
		}
	}
	if strings.TrimSpace(p.PostalCode) == "" {
		missing = append(missing, "postal code")
	}
	if country == "" {
		missing = append(missing, "country")
	}
	return missing
}

// requireShipFrom loads the ship-from profile fresh (never from a cache,
// so a concurrent profile edit is always observed) and refuses when it is
// incomplete, naming the missing fields.
func (m *Manager) requireShipFrom(ctx context.Context) (*store.ShipFromProfile, error) {
	profile, err := m.store.GetShipFrom(ctx)
	if err != nil {
		return nil, err
	}
	if missing := missingShipFromFields(profile); len(missing) > 0 {
		return nil, newShipFromIncomplete(missing)
	}
	return profile, nil
}

func shipFromAddress(p *store.ShipFromProfile) carrier.Address {
	return carrier.Address{
		Name:        p.Name,
		Company:     p.Company,
		Line1:       p.AddressLine1,
		Line2:       p.AddressLine2,
		City:        p.City,
		RegionCode:  p.RegionCode,
		PostalCode:  p.PostalCode,
		CountryCode: p.CountryCode,
		Phone:       p.Phone,
	}
}

func orderAddress(o *store.Order) carrier.Address {
	return carrier.Address{
		Name:        o.RecipientName,
		Line1:       o.AddressLine1,
		Line2:       o.AddressLine2,
		City:        o.City,
		RegionCode:  o.RegionCode,
		PostalCode:  o.PostalCode,
		CountryCode: o.CountryCode,
		Phone:       o.RecipientPhone,
	}
}
