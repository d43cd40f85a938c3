package feed

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
)

// AuthType names the supported feed authentication schemes.
type AuthType string

const (
	AuthAPIKey       AuthType = "api_key"
	AuthBasic        AuthType = "basic"
	AuthBearer       AuthType = "bearer"
	AuthCustomHeader AuthType = "custom_header"
)

const defaultAPIKeyHeader = "X-API-Key"

// Credential describes how to authenticate against a single feed URL.
type Credential struct {
	AuthType   AuthType          `json:"auth_type"`
	HeaderName string            `json:"header_name,omitempty"`
	APIKey     string            `json:"api_key,omitempty"`
	Username   string            `json:"username,omitempty"`
	Password   string            `json:"password,omitempty"`
	Token      string            `json:"token,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
}

func (c Credential) validate(feedURL string) error {
	switch c.AuthType {
	case AuthAPIKey:
		if c.APIKey == "" {
			return fmt.Errorf("feed %s: auth_type api_key requires an api_key field", feedURL)
		}
	case AuthBasic:
		if c.Username == "" || c.Password == "" {
			return fmt.Errorf("feed %s: auth_type basic requires username and password fields", feedURL)
		}
	case AuthBearer:
		if c.Token == "" {
			return fmt.Errorf("feed %s: auth_type bearer requires a token field", feedURL)
		}
	case AuthCustomHeader:
		if len(c.Headers) == 0 {
			return fmt.Errorf("feed %s: auth_type custom_header requires a non-empty headers map", feedURL)
		}
	default:
		return fmt.Errorf("feed %s: unknown auth_type %q (valid: api_key, basic, bearer, custom_header)", feedURL, c.AuthType)
	}
	return nil
}

// apply injects the credential into an outgoing request.
func (c Credential) apply(req *http.Request) {
	switch c.AuthType {
	case AuthAPIKey:
		name := c.HeaderName
		if name == "" {
			name = defaultAPIKeyHeader
		}
		req.Header.Set(name, c.APIKey)
	case AuthBasic:
		req.SetBasicAuth(c.Username, c.Password)
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+c.Token)
	case AuthCustomHeader:
		for k, v := range c.Headers {
			req.Header.Set(k, v)
		}
	}
}

// Credentials maps feed URLs to authentication descriptors. A feed absent
// from the map is fetched unauthenticated.
type Credentials struct {
	feeds map[string]Credential
}

type credentialsFile struct {
	Feeds map[string]Credential `json:"feeds"`
}

// LoadCredentials reads the credential file. A missing file yields an empty
// (fully unauthenticated) resolver; a malformed file or an entry missing the
// required fields for its declared auth_type is a fatal configuration error,
// reported before any fetch happens.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Credentials{feeds: map[string]Credential{}}, nil
		}
		return nil, fmt.Errorf("reading credentials %s: %w", path, err)
	}

	var f credentialsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing credentials %s: %w", path, err)
	}

	for url, cred := range f.Feeds {
		if err := cred.validate(url); err != nil {
			return nil, err
		}
	}

	if f.Feeds == nil {
		f.Feeds = map[string]Credential{}
	}
	return &Credentials{feeds: f.Feeds}, nil
}

// Apply sets the auth headers for feedURL on req, if credentials exist.
func (c *Credentials) Apply(req *http.Request, feedURL string) {
	if c == nil {
		return
	}
	if cred, ok := c.feeds[feedURL]; ok {
		cred.apply(req)
	}
}

// Len reports how many feeds have credentials configured.
func (c *Credentials) Len() int {
	if c == nil {
		return 0
	}
	return len(c.feeds)
}
