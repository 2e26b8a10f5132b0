package obs

import (
	"bytes"
	"io"
	"net/http"
	"time"
)

const maxLoggedBodyBytes = 2048

// Transport logs one http_client event per request sent to IDAM, S2S or CCD.
// Credentials in headers and JSON bodies are redacted.
type Transport struct {
	Base http.RoundTripper
	Pkg  string
}

// NewTransport wraps base (http.DefaultTransport when nil).
func NewTransport(pkg string, base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{Base: base, Pkg: pkg}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	reqBody := requestBody(req)

	resp, err := t.Base.RoundTrip(req)

	durMS := float64(time.Since(start).Microseconds()) / 1000.0
	l := From(req.Context()).With("pkg", t.Pkg)
	if err != nil {
		l.Warn("http_client",
			"method", req.Method,
			"url", req.URL.Redacted(),
			"dur_ms", durMS,
			"error", err.Error(),
		)
		return nil, err
	}

	respBody := peekBody(&resp.Body)
	l.Debug("http_client",
		"method", req.Method,
		"url", req.URL.Redacted(),
		"status", resp.StatusCode,
		"dur_ms", durMS,
		"req_headers", FormatHeadersForLog(req.Header),
		"req_body", FormatBodyForLog(req.Header.Get("Content-Type"), reqBody, maxLoggedBodyBytes),
		"resp_body", FormatBodyForLog(resp.Header.Get("Content-Type"), respBody, maxLoggedBodyBytes),
	)
	return resp, nil
}

// requestBody reads a replayable copy; the request itself is left untouched.
func requestBody(req *http.Request) []byte {
	if req.GetBody == nil {
		return nil
	}
	rc, err := req.GetBody()
	if err != nil {
		return nil
	}
	defer rc.Close()
	head, err := io.ReadAll(io.LimitReader(rc, maxLoggedBodyBytes+1))
	if err != nil {
		return nil
	}
	return head
}

// peekBody reads up to maxLoggedBodyBytes+1 and puts them back in front of the stream.
func peekBody(body *io.ReadCloser) []byte {
	if body == nil || *body == nil || *body == http.NoBody {
		return nil
	}
	head, err := io.ReadAll(io.LimitReader(*body, maxLoggedBodyBytes+1))
	if err != nil {
		return nil
	}
	*body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), *body), *body}
	return head
}
