package restconf

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestService wires a client against an httptest TLS server.
func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)

	host := strings.TrimPrefix(srv.URL, "https://")
	client := NewClient(host, "admin", "secret", 5*time.Second)
	return NewService(client)
}

func TestFetchHostname(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/restconf/data/Cisco-IOS-XE-native:native/hostname", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "admin", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "application/yang-data+json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/yang-data+json")
		w.Write([]byte(`{"Cisco-IOS-XE-native:hostname": "edge-core-1"}`))
	})

	hostname, err := svc.FetchHostname(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "edge-core-1", hostname)
}

func TestFetchHostnameMissingValue(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	_, err := svc.FetchHostname(context.Background())
	require.Error(t, err)
	he, ok := IsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, 500, he.Status)
}

func TestFetchHostnameAuthRejected(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "access denied", http.StatusUnauthorized)
	})

	_, err := svc.FetchHostname(context.Background())
	require.Error(t, err)
	he, ok := IsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, he.Status)
	assert.False(t, IsConnError(err))
}

func TestFetchHostnameUnreachable(t *testing.T) {
	// reserved TEST-NET address, nothing listens there
	client := NewClient("192.0.2.254", "admin", "secret", 100*time.Millisecond)
	svc := NewService(client)

	_, err := svc.FetchHostname(context.Background())
	require.Error(t, err)
	assert.True(t, IsConnError(err))
}

func TestFetchInterfacesCiscoModel(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/restconf/data/Cisco-IOS-XE-interfaces-oper:interfaces" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{
			"Cisco-IOS-XE-interfaces-oper:interfaces": {
				"interface": [
					{"name": "GigabitEthernet1", "admin-status": "if-state-up", "interface-type": "iana-iftype-ethernet-csmacd", "ipv4": "10.0.0.1", "ipv4-subnet-mask": "255.255.255.0"},
					{"name": "GigabitEthernet2", "admin-status": "if-state-down", "interface-type": "iana-iftype-ethernet-csmacd"}
				]
			}
		}`))
	})

	interfaces, err := svc.FetchInterfaces(context.Background())
	require.NoError(t, err)
	require.Len(t, interfaces, 2)

	assert.Equal(t, "GigabitEthernet1", interfaces[0].Name)
	assert.True(t, interfaces[0].Enabled)
	require.Len(t, interfaces[0].IPv4Addresses, 1)
	assert.Equal(t, "10.0.0.1", interfaces[0].IPv4Addresses[0].IP)

	assert.Equal(t, "GigabitEthernet2", interfaces[1].Name)
	assert.False(t, interfaces[1].Enabled)
	assert.Empty(t, interfaces[1].IPv4Addresses)
}

func TestFetchInterfacesIETFFallback(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/restconf/data/Cisco-IOS-XE-interfaces-oper:interfaces":
			http.NotFound(w, r)
		case "/restconf/data/ietf-interfaces:interfaces":
			w.Write([]byte(`{
				"ietf-interfaces:interfaces": {
					"interface": [
						{"name": "eth0", "enabled": true, "type": "iana-if-type:ethernetCsmacd",
						 "ietf-ip:ipv4": {"address": [{"ip": "10.0.0.2", "netmask": "255.255.255.0"}]}}
					]
				}
			}`))
		default:
			http.NotFound(w, r)
		}
	})

	interfaces, err := svc.FetchInterfaces(context.Background())
	require.NoError(t, err)
	require.Len(t, interfaces, 1)
	assert.Equal(t, "eth0", interfaces[0].Name)
	assert.True(t, interfaces[0].Enabled)
	require.Len(t, interfaces[0].IPv4Addresses, 1)
	assert.Equal(t, "10.0.0.2", interfaces[0].IPv4Addresses[0].IP)
}

func TestFetchStaticRoutes(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/restconf/data/Cisco-IOS-XE-native:native/ip/route", r.URL.Path)
		w.Write([]byte(`{
			"Cisco-IOS-XE-native:route": {
				"ip-route-interface-forwarding-list": [
					{"prefix": "192.168.10.0", "mask": "255.255.255.0", "fwd-list": [{"fwd": "10.0.0.1"}]},
					{"prefix": "192.168.20.0", "mask": "255.255.255.0", "interface": "GigabitEthernet2"}
				]
			}
		}`))
	})

	routes, err := svc.FetchStaticRoutes(context.Background())
	require.NoError(t, err)
	require.Len(t, routes, 2)
	assert.Equal(t, StaticRoute{Prefix: "192.168.10.0/255.255.255.0", NextHop: "10.0.0.1"}, routes[0])
	assert.Equal(t, StaticRoute{Prefix: "192.168.20.0/255.255.255.0", NextHop: "via GigabitEthernet2"}, routes[1])
}

func TestFetchStaticRoutesNoneConfigured(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	routes, err := svc.FetchStaticRoutes(context.Background())
	require.NoError(t, err, "404 means no routes, not an error")
	assert.Empty(t, routes)
}

func TestFetchStaticRoutesHTTPError(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	})

	_, err := svc.FetchStaticRoutes(context.Background())
	require.Error(t, err)
	he, ok := IsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, he.Status)
}
