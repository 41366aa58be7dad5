package gemini

import (
	"bytes"
	"context"
	"io"
	"net/http"
)

// exchange is what the transport observed of the last HTTP round trip made
// for one call. It lets failures be classified without depending on how the
// SDK words its errors.
type exchange struct {
	status int
	body   []byte
	err    error
}

type exchangeKey struct{}

func withExchange(ctx context.Context) (context.Context, *exchange) {
	ex := &exchange{}
	return context.WithValue(ctx, exchangeKey{}, ex), ex
}

// recordingTransport buffers each response body so it can be copied to the
// debug sink and kept on the call's exchange, then replays it to the SDK.
type recordingTransport struct {
	base      http.RoundTripper
	userAgent string
	sink      *lockedWriter
}

func (t *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ex, _ := req.Context().Value(exchangeKey{}).(*exchange)
	if ex == nil {
		ex = &exchange{}
	}
	if t.userAgent != "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		ex.err = err
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		ex.err = err
		return nil, err
	}
	t.sink.writeLine(raw)

	ex.status = resp.StatusCode
	ex.body = raw
	ex.err = nil
	resp.Body = io.NopCloser(bytes.NewReader(raw))
	return resp, nil
}
