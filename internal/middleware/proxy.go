package middleware

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
)

// TrustedProxies configures Echo to believe X-Forwarded-For and X-Real-IP
// only when the connection comes from one of the given CIDR ranges.
//
// The front-end normally sits behind the same ingress as the authorization
// backend. Without this, c.RealIP() is the ingress address and the form
// rate limits and security events would see a single client.
func TrustedProxies(e *echo.Echo, trustedCIDRs []string) {
	e.IPExtractor = buildIPExtractor(trustedCIDRs)
}

// buildIPExtractor prefers X-Forwarded-For, walked from the right so a
// client cannot prepend a forged address, and falls back to X-Real-IP.
// Echo's implicit trust of loopback and private ranges is turned off; only
// the configured ranges count as proxies.
func buildIPExtractor(trustedCIDRs []string) echo.IPExtractor {
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, cidr := range trustedCIDRs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			slog.Warn("ignoring invalid trusted proxy CIDR", slog.String("cidr", cidr))
			continue
		}
		opts = append(opts, echo.TrustIPRange(network))
	}

	fromForwarded := echo.ExtractIPFromXFFHeader(opts...)
	fromRealIP := echo.ExtractIPFromRealIPHeader(opts...)

	return func(req *http.Request) string {
		if req.Header.Get(echo.HeaderXForwardedFor) != "" {
			return fromForwarded(req)
		}
		return fromRealIP(req)
	}
}
