package util

import (
	"net/http"
	"net/url"

	"golang.org/x/net/http/httpproxy"
)

// NewProxyFunc builds a transport proxy function from explicit settings.
// Empty settings fall back to the HTTP_PROXY/HTTPS_PROXY/NO_PROXY environment.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" && noProxy == "" {
		return http.ProxyFromEnvironment
	}

	env := httpproxy.FromEnvironment()
	if httpProxy != "" {
		env.HTTPProxy = httpProxy
	}
	if httpsProxy != "" {
		env.HTTPSProxy = httpsProxy
	}
	if noProxy != "" {
		env.NoProxy = noProxy
	}

	proxyFor := env.ProxyFunc()
	return func(req *http.Request) (*url.URL, error) {
		return proxyFor(req.URL)
	}
}
