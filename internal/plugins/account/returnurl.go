package account

import (
	"net/url"
	"slices"
	"strings"

	"github.com/keyxmakerx/identity/internal/apperror"
)

// checkReturnURL accepts a same-site path ("/x", not "//x") or an absolute
// http(s) URL whose host is allow-listed. Anything else is an input error,
// so the profile pages cannot be used as an open redirect.
func checkReturnURL(raw string, allowedHosts []string) (string, error) {
	if raw == "" {
		return "", apperror.NewInput("missing return_url")
	}

	if strings.HasPrefix(raw, "/") {
		if strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
			return "", apperror.NewInput("invalid return_url")
		}
		return raw, nil
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" || u.User != nil {
		return "", apperror.NewInput("invalid return_url")
	}
	if !slices.Contains(allowedHosts, u.Host) && !slices.Contains(allowedHosts, u.Hostname()) {
		return "", apperror.NewInput("return_url host not allowed")
	}
	return raw, nil
}
