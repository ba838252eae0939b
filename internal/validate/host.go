package validate

import (
	"net/url"
	"strings"

	"github.com/ppiankov/parishscope/internal/model"
)

// HostClass says whether a website belongs to the parish itself
type HostClass string

const (
	HostOwned      HostClass = "owned"
	HostSocial     HostClass = "social"
	HostAggregator HostClass = "aggregator"
	HostInvalid    HostClass = "invalid"
)

// HostClassifier classifies website hosts
type HostClassifier struct {
	domainMap   map[string]HostClass
	social      map[string]bool
	aggregators map[string]bool
}

// NewHostClassifier creates a classifier from the website config
func NewHostClassifier(cfg *model.WebsiteConfig) *HostClassifier {
	if cfg == nil {
		cfg = &model.DefaultConfig().Website
	}

	c := &HostClassifier{
		domainMap:   make(map[string]HostClass),
		social:      make(map[string]bool),
		aggregators: make(map[string]bool),
	}
	for host, class := range cfg.DomainMap {
		c.domainMap[strings.ToLower(host)] = parseHostClass(class)
	}
	for _, d := range cfg.SocialDomains {
		c.social[strings.ToLower(d)] = true
	}
	for _, d := range cfg.AggregatorDomains {
		c.aggregators[strings.ToLower(d)] = true
	}
	return c
}

// Classify classifies the host of rawURL
func (c *HostClassifier) Classify(rawURL string) HostClass {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Hostname() == "" {
		return HostInvalid
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return HostInvalid
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")

	if class, ok := c.domainMap[host]; ok {
		return class
	}
	if matchDomain(host, c.social) {
		return HostSocial
	}
	if matchDomain(host, c.aggregators) {
		return HostAggregator
	}
	return HostOwned
}

// matchDomain matches host or any parent domain (m.facebook.com matches facebook.com)
func matchDomain(host string, domains map[string]bool) bool {
	if domains[host] {
		return true
	}
	for d := range domains {
		if strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func parseHostClass(s string) HostClass {
	switch strings.ToLower(s) {
	case "social":
		return HostSocial
	case "aggregator", "directory":
		return HostAggregator
	case "invalid":
		return HostInvalid
	default:
		return HostOwned
	}
}
