package models

import (
	"fmt"
	"net/url"
	"strings"
)

// Bonus is a promotional offer and the tracking URL it is advertised with
type Bonus struct {
	Name string `mapstructure:"name" json:"name"`
	Text string `mapstructure:"text" json:"text"` // e.g. "50 giri gratis senza deposito"
	URL  string `mapstructure:"url" json:"url"`
}

// Validate checks the bonus can be embedded in a post
func (b Bonus) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("bonus name is required")
	}
	if strings.TrimSpace(b.Text) == "" {
		return fmt.Errorf("bonus %s: text is required", b.Name)
	}
	u, err := url.Parse(b.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("bonus %s: invalid url %q", b.Name, b.URL)
	}
	return nil
}
