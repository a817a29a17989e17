package rest

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/auth"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/pkg/metrics"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/pkg/redact"
)

// Headers the gateway sets on proxied requests. Values sent by clients are dropped.
const (
	HeaderUser = "X-PowerDesk-User"
	HeaderRole = "X-PowerDesk-Role"
)

// NewUpstreamProxy forwards guarded API requests to the device API at rawURL. The caller's
// credentials never leave the gateway; the upstream sees token (when set) and the resolved identity.
func NewUpstreamProxy(rawURL, token string, log *zap.Logger) (http.Handler, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("upstream url %q: scheme must be http or https", rawURL)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			h := pr.Out.Header
			for _, name := range redact.CredentialHeaders {
				h.Del(name)
			}
			h.Del(HeaderUser)
			h.Del(HeaderRole)
			if token != "" {
				h.Set("Authorization", "Bearer "+token)
			}
			if id := auth.IdentityFromContext(pr.In.Context()); id != nil {
				h.Set(HeaderUser, id.Subject())
				h.Set(HeaderRole, string(id.Role))
			}
		},
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		ModifyResponse: func(resp *http.Response) error {
			resp.Header.Del("Set-Cookie")
			metrics.UpstreamRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			metrics.UpstreamRequestsTotal.WithLabelValues("error").Inc()
			log.Warn("upstream request failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Any("headers", redact.Headers(r.Header)),
				zap.Error(err),
			)
			respondError(w, http.StatusBadGateway, "upstream unavailable")
		},
	}, nil
}
