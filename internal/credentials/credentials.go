// Package credentials carries Mixpanel service-account authentication
// material. The shared secret never appears in logs or renderings; every
// human-readable form substitutes a fixed placeholder.
package credentials

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Redacted is the placeholder substituted for the secret in any
// human-readable rendering.
const Redacted = "********"

// Region identifies the Mixpanel data-residency region.
type Region string

const (
	RegionUS Region = "us"
	RegionEU Region = "eu"
	RegionIN Region = "in"
)

// ParseRegion parses a region name case-insensitively. An empty string
// resolves to the US region.
func ParseRegion(s string) (Region, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "us":
		return RegionUS, nil
	case "eu":
		return RegionEU, nil
	case "in":
		return RegionIN, nil
	default:
		return "", fmt.Errorf("unknown region %q (expected us, eu, or in)", s)
	}
}

// Endpoints holds the per-region API base URLs. Query endpoints live under
// QueryBase; the raw event export lives under DataBase.
type Endpoints struct {
	QueryBase string
	DataBase  string
}

// EndpointsFor returns the base URLs for a region. The mapping is total over
// the region enumeration; unknown regions fall back to US.
func EndpointsFor(region Region) Endpoints {
	switch region {
	case RegionEU:
		return Endpoints{
			QueryBase: "https://eu.mixpanel.com/api",
			DataBase:  "https://data-eu.mixpanel.com/api",
		}
	case RegionIN:
		return Endpoints{
			QueryBase: "https://in.mixpanel.com/api",
			DataBase:  "https://data-in.mixpanel.com/api",
		}
	default:
		return Endpoints{
			QueryBase: "https://mixpanel.com/api",
			DataBase:  "https://data.mixpanel.com/api",
		}
	}
}

// Credentials is an immutable service-account bundle. Construct once per
// workspace and share by value.
type Credentials struct {
	Username  string
	Secret    string
	ProjectID string
	Region    Region
}

// New validates and constructs a credentials bundle.
func New(username, secret, projectID string, region Region) (Credentials, error) {
	if username == "" {
		return Credentials{}, fmt.Errorf("credentials: username is required")
	}
	if secret == "" {
		return Credentials{}, fmt.Errorf("credentials: secret is required")
	}
	if projectID == "" {
		return Credentials{}, fmt.Errorf("credentials: project id is required")
	}
	if _, err := ParseRegion(string(region)); err != nil {
		return Credentials{}, fmt.Errorf("credentials: %w", err)
	}
	if region == "" {
		region = RegionUS
	}
	return Credentials{
		Username:  username,
		Secret:    secret,
		ProjectID: projectID,
		Region:    region,
	}, nil
}

// Endpoints returns the base URLs for the bundle's region.
func (c Credentials) Endpoints() Endpoints {
	return EndpointsFor(c.Region)
}

// String renders the bundle with the secret redacted.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{username=%s, secret=%s, project_id=%s, region=%s}",
		c.Username, Redacted, c.ProjectID, c.Region)
}

// MarshalJSON renders the bundle with the secret redacted.
func (c Credentials) MarshalJSON() ([]byte, error) {
	out := fmt.Sprintf(`{"username":%q,"secret":%q,"project_id":%q,"region":%q}`,
		c.Username, Redacted, c.ProjectID, c.Region)
	return []byte(out), nil
}

// MarshalZerologObject logs the bundle with the secret redacted.
func (c Credentials) MarshalZerologObject(e *zerolog.Event) {
	e.Str("username", c.Username).
		Str("secret", Redacted).
		Str("project_id", c.ProjectID).
		Str("region", string(c.Region))
}
