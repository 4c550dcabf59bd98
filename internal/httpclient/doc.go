// Package httpclient provides the plain HTTP page loader behind the http engine.
//
// Each simulated user gets its own [NewClient] so that, like a freshly launched
// browser, it starts without pooled connections:
//
//	builder, err := httpclient.NewRequestBuilder(cfg.TargetURL)
//	if err != nil {
//		return err
//	}
//	req, err := builder.Build(ctx)
//	if err != nil {
//		return err
//	}
//	client := httpclient.NewClient(0)
//	defer client.CloseIdleConnections()
//	_, err = httpclient.Load(client, req)
//
// [Load] drains the response body, so the measured time covers the whole
// document, and reports 4xx and 5xx responses as a [*StatusError].
package httpclient
