// Package credentials loads figlinq API credentials from a YAML file and
// hot-reloads them when the file changes.
package credentials

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	pkgconfig "github.com/figlinq/contents-gateway/pkg/config"
)

// Credentials holds the secrets attached to remote requests: the API key
// and the anti-forgery token normally sourced from the session cookie.
type Credentials struct {
	APIKey    string `yaml:"api_key"`
	CSRFToken string `yaml:"csrf_token"`
}

// Validate validates the credentials.
func (c *Credentials) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.APIKey, validation.Required),
	)
}

// Load reads credentials from a YAML file with env expansion.
func Load(path string) (Credentials, error) {
	var creds Credentials
	if err := pkgconfig.Load(path, &creds); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}
