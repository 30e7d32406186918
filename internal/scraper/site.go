package scraper

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrInvalidURL      = errors.New("invalid listing url")
	ErrUnsupportedSite = errors.New("unsupported site: only redfin.com and realtor.com listings can be imported")
	// ErrNavigation means the page could not be loaded.
	ErrNavigation = errors.New("failed to load listing page")
	// ErrExtraction means the page loaded but lacked the required fields.
	ErrExtraction = errors.New("failed to extract listing details")
)

type Site string

const (
	SiteRedfin  Site = "redfin"
	SiteRealtor Site = "realtor"
)

// DetectSite maps a listing URL to a supported site.
func DetectSite(raw string) (Site, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	switch {
	case host == "redfin.com" || strings.HasSuffix(host, ".redfin.com"):
		return SiteRedfin, nil
	case host == "realtor.com" || strings.HasSuffix(host, ".realtor.com"):
		return SiteRealtor, nil
	}
	return "", ErrUnsupportedSite
}
