package metrics

import (
	"net/http"
	"time"
)

// instrumentedTransport は外部APIリクエストの回数とレイテンシを記録するhttp.RoundTripper。
type instrumentedTransport struct {
	api       string
	collector MetricsCollector
	base      http.RoundTripper
}

// NewInstrumentedTransport は外部APIごとのメトリクスを記録するRoundTripperを返す。
// baseがnilの場合はhttp.DefaultTransportを使用する。
func NewInstrumentedTransport(api string, collector MetricsCollector, base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &instrumentedTransport{
		api:       api,
		collector: collector,
		base:      base,
	}
}

func (t *instrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	t.collector.RecordGatewayLatency(t.api, time.Since(start))

	success := err == nil && resp != nil && resp.StatusCode < http.StatusInternalServerError
	t.collector.RecordGatewayRequest(t.api, success)

	return resp, err
}
