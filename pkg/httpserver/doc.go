// Package httpserver binds string-returning handlers to HTTP routes and wraps
// every response in a CORS-safe JSON envelope.
//
// Each Bind registers two routes on the underlying transport router: the real
// route and an OPTIONS preflight on the same path. Both are released together
// by Close.
//
//	srv, err := httpserver.Create(httpnet.Default(), 8001)
//	if err != nil {
//		return err
//	}
//	defer srv.Close()
//
//	srv.Bind("/echo", transport.VerbPost, func(r *httpserver.Request) string {
//		return r.Body
//	})
package httpserver
