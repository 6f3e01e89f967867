package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/wsbridge/pkg/httpserver"
	"github.com/getmockd/wsbridge/pkg/logging"
	"github.com/getmockd/wsbridge/pkg/transport"
	"github.com/getmockd/wsbridge/pkg/transport/fake"
	"github.com/getmockd/wsbridge/pkg/websocket"
)

type adminFixture struct {
	router *fake.Router
	ws     *fake.WSServer
	srv    *websocket.Server
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	f := &adminFixture{router: fake.NewRouter(), ws: &fake.WSServer{}}
	f.srv = websocket.NewServer(fake.Factory(f.ws))
	require.NoError(t, f.srv.Start(9000))
	t.Cleanup(f.srv.Stop)

	admin := &adminRoutes{srv: f.srv, log: logging.Nop(), run: func(fn func()) { fn() }}
	require.NoError(t, admin.bind(httpserver.New(f.router)))
	return f
}

func (f *adminFixture) call(t *testing.T, verb transport.Verb, path string, params map[string]string, body string) map[string]any {
	t.Helper()
	resp, err := f.router.Dispatch(&transport.Request{
		Verb:         verb,
		RelativePath: path,
		QueryParams:  params,
		Body:         []byte(body),
	})
	require.NoError(t, err)
	require.Equal(t, 200, resp.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(resp.Body, &out), "body: %s", resp.Body)
	return out
}

func TestAdmin_ListClients(t *testing.T) {
	f := newAdminFixture(t)

	out := f.call(t, transport.VerbGet, "/clients", nil, "")
	assert.Equal(t, float64(0), out["count"])

	f.ws.Accept("1.2.3.4:5")
	f.ws.Accept("1.2.3.4:6")
	out = f.call(t, transport.VerbGet, "/clients", nil, "")
	assert.Equal(t, float64(2), out["count"])
	assert.Len(t, out["clients"], 2)
}

func TestAdmin_SetNameAndSendByName(t *testing.T) {
	f := newAdminFixture(t)
	sock := f.ws.Accept("")
	id := f.srv.Clients()[0]

	out := f.call(t, transport.VerbPut, "/clients/name", map[string]string{"id": id, "name": "alice"}, "")
	assert.Equal(t, true, out["updated"])
	assert.Equal(t, id, f.srv.ClientIDByName("alice"))

	out = f.call(t, transport.VerbPost, "/send", map[string]string{"name": "alice"}, "hello")
	assert.Equal(t, true, out["sent"])
	assert.Equal(t, id, out["id"])
	require.Len(t, sock.Sent(), 1)
	assert.Equal(t, "hello", string(sock.Sent()[0]))
}

func TestAdmin_SendErrors(t *testing.T) {
	f := newAdminFixture(t)

	out := f.call(t, transport.VerbPost, "/send", nil, "x")
	assert.Equal(t, "missing_id", out["error"])

	out = f.call(t, transport.VerbPost, "/send", map[string]string{"id": "x", "encoding": "ebcdic"}, "x")
	assert.Equal(t, "invalid_encoding", out["error"])

	out = f.call(t, transport.VerbPost, "/send", map[string]string{"id": "nobody"}, "x")
	assert.Equal(t, false, out["sent"])

	out = f.call(t, transport.VerbPut, "/clients/name", map[string]string{"id": "nobody", "name": "x"}, "")
	assert.Equal(t, "unknown_client", out["error"])

	out = f.call(t, transport.VerbPut, "/clients/name", nil, "")
	assert.Equal(t, "missing_id", out["error"])
}

func TestAdmin_SendWide(t *testing.T) {
	f := newAdminFixture(t)
	sock := f.ws.Accept("")
	id := f.srv.Clients()[0]

	out := f.call(t, transport.VerbPost, "/send", map[string]string{"id": id, "encoding": "wide"}, "A")
	assert.Equal(t, true, out["sent"])
	assert.Equal(t, []byte{0x00, 0x41}, sock.Sent()[0])
}

func TestAdmin_Broadcast(t *testing.T) {
	f := newAdminFixture(t)
	a := f.ws.Accept("")
	b := f.ws.Accept("")
	b.SetFailSend(true)

	out := f.call(t, transport.VerbPost, "/broadcast", nil, "all")
	assert.Equal(t, float64(1), out["sent"])
	assert.Equal(t, float64(2), out["clients"])
	assert.Equal(t, "all", string(a.Sent()[0]))
}

func TestAdmin_Stats(t *testing.T) {
	f := newAdminFixture(t)
	f.ws.Accept("")

	out := f.call(t, transport.VerbGet, "/stats", nil, "")
	assert.Equal(t, true, out["running"])
	assert.Equal(t, float64(1), out["activeConnections"])
}

func TestAdmin_EchoAndPreflight(t *testing.T) {
	f := newAdminFixture(t)

	out := f.call(t, transport.VerbPost, "/echo", nil, `{"a":1}`)
	assert.Equal(t, float64(1), out["a"])

	resp, err := f.router.Dispatch(&transport.Request{Verb: transport.VerbOptions, RelativePath: "/echo"})
	require.NoError(t, err)
	assert.Empty(t, resp.Body)
	assert.Equal(t, "*", resp.Headers.Get("Access-Control-Allow-Origin"))
}
