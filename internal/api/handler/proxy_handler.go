package handler

import (
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/newstaq/portal/internal/api/metrics"
	"github.com/newstaq/portal/internal/core/domain"
	"github.com/newstaq/portal/internal/infrastructure/apiclient"
)

const (
	apiPrefix         = "/api"
	maxProxyBody      = 10 << 20
	msgSessionExpired = "session expired, please sign in again"
)

// request headers passed upstream; cookies and the browser's own
// Authorization never leave the shell
var forwardedRequestHeaders = []string{
	echo.HeaderContentType,
	echo.HeaderAccept,
	"Accept-Language",
}

var forwardedResponseHeaders = []string{
	echo.HeaderContentType,
	echo.HeaderContentDisposition,
	echo.HeaderCacheControl,
	"ETag",
	echo.HeaderLastModified,
}

type signedOutResponse struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect"`
}

// ProxyHandler forwards data requests to the WMS API on behalf of the
// browser profile's session.
type ProxyHandler struct {
	baseURL string
	timeout time.Duration
	log     zerolog.Logger
}

func NewProxyHandler(baseURL string, timeout time.Duration, log zerolog.Logger) *ProxyHandler {
	return &ProxyHandler{baseURL: strings.TrimSuffix(baseURL, "/"), timeout: timeout, log: log}
}

// Forward relays /api/<path> to the API with the session's bearer token.
// A 401/403 from the API signs the profile out; a response that arrives
// after the session changed is discarded.
//
// @Summary      Data proxy
// @Tags         proxy
// @Param        path  path  string  true  "API path"
// @Success      200
// @Failure      401   {object}  signedOutResponse
// @Failure      502   {object}  errorResponse
// @Router       /api/{path} [get]
func (h *ProxyHandler) Forward(c echo.Context) error {
	ac, err := sessionContext(c)
	if err != nil {
		return err
	}

	in := c.Request()
	rest, ok := upstreamPath(in.URL)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid upstream path")
	}
	target := h.baseURL + rest
	if in.URL.RawQuery != "" {
		target += "?" + in.URL.RawQuery
	}

	out, err := http.NewRequestWithContext(in.Context(), in.Method, target, in.Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid upstream path")
	}
	for _, k := range forwardedRequestHeaders {
		if v := in.Header.Get(k); v != "" {
			out.Header.Set(k, v)
		}
	}

	_, gen := ac.Credentials()
	client := apiclient.NewAuthorizedClient(ac, ac, h.timeout)

	start := time.Now()
	resp, err := client.Do(out)
	if err != nil {
		metrics.ProxyRequestDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		h.log.Warn().Err(err).Str("method", in.Method).Str("path", rest).Msg("upstream request failed")
		return c.JSON(http.StatusBadGateway, errorResponse{Error: domain.MsgServiceUnavailable})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProxyBody))
	metrics.ProxyRequestDuration.WithLabelValues(strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())
	if err != nil {
		h.log.Warn().Err(err).Str("path", rest).Msg("upstream body read failed")
		return c.JSON(http.StatusBadGateway, errorResponse{Error: domain.MsgServiceUnavailable})
	}

	if apiclient.IsAuthFailure(resp.StatusCode) {
		msg := apiclient.BoundaryMessage(body)
		if msg == "" {
			msg = msgSessionExpired
		}
		return c.JSON(http.StatusUnauthorized, signedOutResponse{Error: msg, Redirect: domain.PathLogin})
	}
	if ac.Generation() != gen {
		metrics.ProxyDiscardedTotal.Inc()
		h.log.Debug().Str("path", rest).Msg("stale upstream response discarded")
		return c.JSON(http.StatusUnauthorized, signedOutResponse{Error: msgSessionExpired, Redirect: domain.PathLogin})
	}

	for _, k := range forwardedResponseHeaders {
		if v := resp.Header.Get(k); v != "" {
			c.Response().Header().Set(k, v)
		}
	}
	contentType := resp.Header.Get(echo.HeaderContentType)
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	return c.Blob(resp.StatusCode, contentType, body)
}

// upstreamPath returns the escaped path below /api. Dot segments and
// encoded separators are refused so a request cannot climb out of the API
// root.
func upstreamPath(u *url.URL) (string, bool) {
	p := strings.TrimPrefix(u.EscapedPath(), apiPrefix)
	if p == "" {
		p = "/"
	}
	for _, seg := range strings.Split(p, "/") {
		dec, err := url.PathUnescape(seg)
		if err != nil || dec == "." || dec == ".." || strings.ContainsAny(dec, "/\\") {
			return "", false
		}
	}
	return p, true
}
