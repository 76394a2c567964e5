package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
)

// fake-router serves just enough of the IOS-XE RESTCONF surface to exercise
// the worker and monitor locally: hostname, interface oper data, and static
// routes, behind basic auth.

var (
	hostname   = "fake-edge-1"
	username   = "admin"
	password   = "admin"
	failFirstN = 0
	reqCount   = 0
	noRoutes   = false
)

func main() {
	if v := os.Getenv("FAKE_HOSTNAME"); v != "" {
		hostname = v
	}
	if v := os.Getenv("FAKE_USERNAME"); v != "" {
		username = v
	}
	if v := os.Getenv("FAKE_PASSWORD"); v != "" {
		password = v
	}
	// Simulate flakiness: first N requests -> 500
	if v := os.Getenv("FAIL_FIRST_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			failFirstN = n
		}
	}
	// Simulate a device with no static routes configured
	noRoutes = os.Getenv("NO_STATIC_ROUTES") == "true"

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{"ok":true}`)) })
	mux.HandleFunc("/restconf/data/Cisco-IOS-XE-native:native/hostname", guarded(handleHostname))
	mux.HandleFunc("/restconf/data/Cisco-IOS-XE-interfaces-oper:interfaces", guarded(handleInterfaces))
	mux.HandleFunc("/restconf/data/Cisco-IOS-XE-native:native/ip/route", guarded(handleRoutes))

	addr := ":" + envOr("PORT", "8443")
	log.Printf("fake-router %q listening on %s", hostname, addr)

	certFile := os.Getenv("TLS_CERT")
	keyFile := os.Getenv("TLS_KEY")
	if certFile != "" && keyFile != "" {
		log.Fatal(http.ListenAndServeTLS(addr, certFile, keyFile, mux))
	}
	log.Fatal(http.ListenAndServe(addr, mux))
}

// guarded enforces basic auth and the failure injection counter.
func guarded(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != username || pass != password {
			log.Printf("fake-router rejected credentials for %s", r.URL.Path)
			http.Error(w, "access denied", http.StatusUnauthorized)
			return
		}

		reqCount++
		if reqCount <= failFirstN {
			log.Printf("FAILING (%d/%d) %s", reqCount, failFirstN, r.URL.Path)
			http.Error(w, "temporary failure", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/yang-data+json")
		next(w, r)
	}
}

func handleHostname(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprintf(w, `{"Cisco-IOS-XE-native:hostname": %q}`, hostname)
}

func handleInterfaces(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte(`{
		"Cisco-IOS-XE-interfaces-oper:interfaces": {
			"interface": [
				{"name": "GigabitEthernet1", "admin-status": "if-state-up", "interface-type": "iana-iftype-ethernet-csmacd", "ipv4": "10.0.0.1", "ipv4-subnet-mask": "255.255.255.0"},
				{"name": "GigabitEthernet2", "admin-status": "if-state-up", "interface-type": "iana-iftype-ethernet-csmacd", "ipv4": "10.0.1.1", "ipv4-subnet-mask": "255.255.255.0"},
				{"name": "GigabitEthernet3", "admin-status": "if-state-down", "interface-type": "iana-iftype-ethernet-csmacd"}
			]
		}
	}`))
}

func handleRoutes(w http.ResponseWriter, r *http.Request) {
	if noRoutes {
		http.Error(w, `{"errors": {"error": [{"error-message": "resource not found"}]}}`, http.StatusNotFound)
		return
	}
	_, _ = w.Write([]byte(`{
		"Cisco-IOS-XE-native:route": {
			"ip-route-interface-forwarding-list": [
				{"prefix": "192.168.10.0", "mask": "255.255.255.0", "fwd-list": [{"fwd": "10.0.0.254"}]},
				{"prefix": "192.168.20.0", "mask": "255.255.255.0", "interface": "GigabitEthernet2"}
			]
		}
	}`))
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
