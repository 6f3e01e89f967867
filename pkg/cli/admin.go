package cli

import (
	"log/slog"

	"github.com/getmockd/wsbridge/pkg/httpserver"
	"github.com/getmockd/wsbridge/pkg/httputil"
	"github.com/getmockd/wsbridge/pkg/textcodec"
	"github.com/getmockd/wsbridge/pkg/transport"
	"github.com/getmockd/wsbridge/pkg/websocket"
)

// adminRoutes exposes the WebSocket server through the HTTP route table.
// Every server call goes through run, which places it on the tick goroutine.
type adminRoutes struct {
	srv *websocket.Server
	run func(fn func())
	log *slog.Logger
}

func (a *adminRoutes) bind(hs *httpserver.Server) error {
	routes := []struct {
		path    string
		verb    transport.Verb
		handler httpserver.Handler
	}{
		{"/clients", transport.VerbGet, a.listClients},
		{"/clients/name", transport.VerbPut, a.setName},
		{"/send", transport.VerbPost, a.send},
		{"/broadcast", transport.VerbPost, a.broadcast},
		{"/stats", transport.VerbGet, a.stats},
		{"/echo", transport.VerbPost, a.echo},
	}
	for _, r := range routes {
		if err := hs.Bind(r.path, r.verb, r.handler); err != nil {
			return err
		}
	}
	return nil
}

func (a *adminRoutes) listClients(*httpserver.Request) string {
	var infos []websocket.ConnectionInfo
	a.run(func() { infos = a.srv.ClientInfos() })
	return httputil.JSON(map[string]any{
		"clients": infos,
		"count":   len(infos),
	})
}

func (a *adminRoutes) setName(req *httpserver.Request) string {
	id := req.Params.Get("id")
	if id == "" {
		return httputil.Error("missing_id", "query parameter id is required")
	}
	name := req.Params.Get("name")

	var ok bool
	a.run(func() { ok = a.srv.SetClientNameByID(id, name) })
	if !ok {
		return httputil.Error("unknown_client", "no client with id "+id)
	}
	return httputil.JSON(map[string]any{"id": id, "name": name, "updated": true})
}

// send delivers the body to one client, addressed by ?id= or ?name=.
// ?encoding= selects utf8 (default), wide or legacy.
func (a *adminRoutes) send(req *httpserver.Request) string {
	enc, err := textcodec.ParseEncoding(req.Params.Get("encoding"))
	if err != nil {
		return httputil.Error("invalid_encoding", err.Error())
	}
	id, name := req.Params.Get("id"), req.Params.Get("name")
	if id == "" && name == "" {
		return httputil.Error("missing_id", "query parameter id or name is required")
	}

	var sent bool
	a.run(func() {
		if id == "" {
			id = a.srv.ClientIDByName(name)
		}
		sent, err = a.srv.SendEncoded(id, enc, req.Body)
	})
	if err != nil {
		return httputil.ErrorWithDetails("encoding_failed", err.Error(), map[string]string{"encoding": enc.String()})
	}
	if !sent {
		a.log.Debug("admin send not delivered", "id", id, "name", name)
	}
	return httputil.JSON(map[string]any{"id": id, "sent": sent})
}

func (a *adminRoutes) broadcast(req *httpserver.Request) string {
	var n, total int
	a.run(func() {
		total = a.srv.ClientCount()
		n = a.srv.SendTextToAll(req.Body)
	})
	return httputil.JSON(map[string]int{"sent": n, "clients": total})
}

func (a *adminRoutes) stats(*httpserver.Request) string {
	var st *websocket.Stats
	a.run(func() { st = a.srv.Stats() })
	return httputil.JSON(st)
}

func (a *adminRoutes) echo(req *httpserver.Request) string {
	return req.Body
}
