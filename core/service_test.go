package core_test

import (
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xRadioAc7iv/go-prespec/core"
	"github.com/0xRadioAc7iv/go-prespec/internal/layout"
	"github.com/0xRadioAc7iv/go-prespec/pkg/builder"
	"github.com/0xRadioAc7iv/go-prespec/prespec"
)

func startService(t *testing.T, d *core.Directory) *core.Service {
	t.Helper()

	svc := &core.Service{Directory: d, ListenerHost: "127.0.0.1"}
	require.NoError(t, svc.Start())
	t.Cleanup(svc.Stop)

	return svc
}

func connectClient(t *testing.T, svc *core.Service) *prespec.Client {
	t.Helper()

	addr := svc.Addr().(*net.TCPAddr)
	client, err := prespec.Connect(
		prespec.WithHost("127.0.0.1"),
		prespec.WithPort(addr.Port),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func serviceDirectory(t *testing.T) *core.Directory {
	t.Helper()

	b := builder.New(builder.WithLayout(layout.Layout64))
	require.NoError(t, b.Add("Foo<Int>", []byte("record A")))
	require.NoError(t, b.Add("Bar<String>", []byte("record B")))
	require.NoError(t, b.Add("Dictionary<String, Array<Int>>", []byte{0xca, 0xfe}))
	require.NoError(t, b.DisableProcess("legacy-worker"))
	img, err := b.Build()
	require.NoError(t, err)

	return core.NewDirectory(core.WithLocator(core.StaticLocator{Data: img}))
}

func TestServiceStartStop(t *testing.T) {
	svc := &core.Service{Directory: serviceDirectory(t), ListenerHost: "127.0.0.1"}
	assert.Nil(t, svc.Addr())

	require.NoError(t, svc.Start())
	assert.NotNil(t, svc.Addr())

	svc.Stop()
	svc.Stop()
}

func TestServicePing(t *testing.T) {
	client := connectClient(t, startService(t, serviceDirectory(t)))

	resp, err := client.Ping()
	require.NoError(t, err)
	assert.Equal(t, "PONG!", resp)
}

func TestServiceLookup(t *testing.T) {
	d := serviceDirectory(t)
	client := connectClient(t, startService(t, d))

	want, ok := d.LookupKey("Foo<Int>")
	require.True(t, ok)

	p, ok, err := client.Lookup("Foo<Int>")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(want), p)

	_, ok, err = client.Lookup("Baz<Int>")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestServiceResolve(t *testing.T) {
	d := serviceDirectory(t)
	client := connectClient(t, startService(t, d))

	want, ok := d.LookupKey("Dictionary<String, Array<Int>>")
	require.True(t, ok)

	p, ok, err := client.Resolve("Dictionary<String,Array< Int >>")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(want), p)

	resp, err := client.Execute("resolve", "Foo<", "")
	require.NoError(t, err)
	assert.Equal(t, "Invalid Type Expression", resp)
}

func TestServiceExists(t *testing.T) {
	client := connectClient(t, startService(t, serviceDirectory(t)))

	ok, err := client.Exists("Bar<String>")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.Exists("Bar<Int>")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestServiceRead(t *testing.T) {
	client := connectClient(t, startService(t, serviceDirectory(t)))

	b, ok, err := client.Read("Foo<Int>", 8)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "record A", string(b))

	b, ok, err = client.Read("Dictionary<String, Array<Int>>", 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{0xca, 0xfe}, b)

	_, ok, err = client.Read("Baz<Int>", 0)
	require.NoError(t, err)
	assert.False(t, ok)

	resp, err := client.Execute("read", "Foo<Int>", "-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp, "Invalid Byte Count"))
}

func TestServiceCountAndList(t *testing.T) {
	client := connectClient(t, startService(t, serviceDirectory(t)))

	n, err := client.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	keys, err := client.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"Bar<String>", "Dictionary<String, Array<Int>>", "Foo<Int>"}, keys)
}

func TestServiceInfo(t *testing.T) {
	client := connectClient(t, startService(t, serviceDirectory(t)))

	info, err := client.Info()
	require.NoError(t, err)
	assert.Contains(t, info, "version: 1.1")
	assert.Contains(t, info, "layout: 64-bit little-endian")
	assert.Contains(t, info, "entries: 3")
	assert.Contains(t, info, "disabled: legacy-worker")
}

func TestServiceWithoutImage(t *testing.T) {
	d := core.NewDirectory(core.WithLocator(core.StaticLocator{}))
	client := connectClient(t, startService(t, d))

	_, ok, err := client.Lookup("Foo<Int>")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := client.Count()
	require.NoError(t, err)
	assert.Zero(t, n)

	keys, err := client.List()
	require.NoError(t, err)
	assert.Empty(t, keys)

	info, err := client.Info()
	require.NoError(t, err)
	assert.Equal(t, "nil", info)
}

func TestServiceInvalidCommand(t *testing.T) {
	client := connectClient(t, startService(t, serviceDirectory(t)))

	resp, err := client.Execute("set", "Foo<Int>", "x")
	require.NoError(t, err)
	assert.Equal(t, "Invalid Command", resp)

	resp, err = client.Execute("HELP", "", "")
	require.NoError(t, err)
	assert.Contains(t, resp, "LOOKUP <key>")
}

func TestServiceStopClosesClients(t *testing.T) {
	svc := &core.Service{Directory: serviceDirectory(t), ListenerHost: "127.0.0.1"}
	require.NoError(t, svc.Start())
	client := connectClient(t, svc)

	_, err := client.Ping()
	require.NoError(t, err)

	svc.Stop()

	_, err = client.Ping()
	assert.Error(t, err)
}
