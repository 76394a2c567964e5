package restconf

import (
	"context"
	"encoding/json"
	"fmt"
)

// InterfaceAddress is an IPv4 address assigned to an interface.
type InterfaceAddress struct {
	IP      string `json:"ip"`
	Netmask string `json:"netmask"`
}

// Interface is one network interface on the device.
type Interface struct {
	Name          string             `json:"name"`
	Enabled       bool               `json:"enabled"`
	Type          string             `json:"type"`
	Description   string             `json:"description,omitempty"`
	IPv4Addresses []InterfaceAddress `json:"ipv4_addresses,omitempty"`
}

// StaticRoute is one static route entry from the device config.
type StaticRoute struct {
	Prefix  string `json:"prefix"`
	NextHop string `json:"next_hop"`
}

// Service exposes typed device operations over a RESTCONF client.
type Service struct {
	client *Client
}

// NewService wraps a client.
func NewService(client *Client) *Service {
	return &Service{client: client}
}

// Host returns the device address the service targets.
func (s *Service) Host() string { return s.client.Host() }

// FetchHostname reads the configured device hostname.
func (s *Service) FetchHostname(ctx context.Context) (string, error) {
	var payload struct {
		Hostname string `json:"Cisco-IOS-XE-native:hostname"`
	}
	if err := s.client.Get(ctx, "Cisco-IOS-XE-native:native/hostname", &payload); err != nil {
		return "", err
	}
	if payload.Hostname == "" {
		return "", &HTTPError{Status: 500, Message: "Hostname missing in payload"}
	}
	return payload.Hostname, nil
}

// FetchInterfaces lists all interfaces, preferring the Cisco IOS-XE oper
// model and falling back to the IETF model when the vendor tree is absent.
func (s *Service) FetchInterfaces(ctx context.Context) ([]Interface, error) {
	var xe struct {
		Interfaces struct {
			Interface []ciscoXEInterface `json:"interface"`
		} `json:"Cisco-IOS-XE-interfaces-oper:interfaces"`
	}
	if err := s.client.Get(ctx, "Cisco-IOS-XE-interfaces-oper:interfaces", &xe); err == nil && len(xe.Interfaces.Interface) > 0 {
		out := make([]Interface, 0, len(xe.Interfaces.Interface))
		for _, raw := range xe.Interfaces.Interface {
			out = append(out, raw.toInterface())
		}
		return out, nil
	} else if err != nil && IsConnError(err) {
		// an unreachable device will not answer the fallback either
		return nil, err
	}

	var ietf struct {
		Interfaces struct {
			Interface []ietfInterface `json:"interface"`
		} `json:"ietf-interfaces:interfaces"`
	}
	if err := s.client.Get(ctx, "ietf-interfaces:interfaces", &ietf); err != nil {
		return nil, err
	}
	out := make([]Interface, 0, len(ietf.Interfaces.Interface))
	for _, raw := range ietf.Interfaces.Interface {
		out = append(out, raw.toInterface())
	}
	return out, nil
}

// FetchInterface reads one interface by name, trying the vendor model first.
func (s *Service) FetchInterface(ctx context.Context, name string) (*Interface, error) {
	var xe struct {
		Interface []ciscoXEInterface `json:"Cisco-IOS-XE-interfaces-oper:interface"`
	}
	err := s.client.Get(ctx, fmt.Sprintf("Cisco-IOS-XE-interfaces-oper:interfaces/interface=%s", name), &xe)
	if err == nil && len(xe.Interface) > 0 {
		iface := xe.Interface[0].toInterface()
		return &iface, nil
	}
	if err != nil && IsConnError(err) {
		return nil, err
	}

	var ietf struct {
		Interface []ietfInterface `json:"ietf-interfaces:interface"`
	}
	if err := s.client.Get(ctx, fmt.Sprintf("ietf-interfaces:interfaces/interface=%s", name), &ietf); err != nil {
		return nil, err
	}
	if len(ietf.Interface) == 0 {
		return nil, &NotFoundError{HTTPError{Status: 404, Message: fmt.Sprintf("Interface %q not found", name)}}
	}
	iface := ietf.Interface[0].toInterface()
	return &iface, nil
}

// FetchStaticRoutes reads the static routes from the native config tree.
// A 404 means no static routes are configured and yields an empty slice.
func (s *Service) FetchStaticRoutes(ctx context.Context) ([]StaticRoute, error) {
	var payload struct {
		Route struct {
			ForwardingList []ciscoStaticRoute `json:"ip-route-interface-forwarding-list"`
		} `json:"Cisco-IOS-XE-native:route"`
	}
	if err := s.client.Get(ctx, "Cisco-IOS-XE-native:native/ip/route", &payload); err != nil {
		if IsNotFound(err) {
			return []StaticRoute{}, nil
		}
		return nil, err
	}

	routes := make([]StaticRoute, 0, len(payload.Route.ForwardingList))
	for _, entry := range payload.Route.ForwardingList {
		if r, ok := entry.toStaticRoute(); ok {
			routes = append(routes, r)
		}
	}
	return routes, nil
}

// ciscoXEInterface is the Cisco-IOS-XE-interfaces-oper interface shape.
type ciscoXEInterface struct {
	Name          string `json:"name"`
	AdminStatus   string `json:"admin-status"`
	Enabled       *bool  `json:"enabled"`
	InterfaceType string `json:"interface-type"`
	Description   string `json:"description"`
	IPv4          string `json:"ipv4"`
	IPv4Netmask   string `json:"ipv4-subnet-mask"`
}

func (c ciscoXEInterface) toInterface() Interface {
	enabled := false
	switch {
	case c.AdminStatus != "":
		enabled = c.AdminStatus == "if-state-up"
	case c.Enabled != nil:
		enabled = *c.Enabled
	}
	iface := Interface{
		Name:        c.Name,
		Enabled:     enabled,
		Type:        orUnknown(c.InterfaceType),
		Description: c.Description,
	}
	if c.IPv4 != "" && c.IPv4Netmask != "" {
		iface.IPv4Addresses = []InterfaceAddress{{IP: c.IPv4, Netmask: c.IPv4Netmask}}
	}
	return iface
}

// ietfInterface is the ietf-interfaces interface shape.
type ietfInterface struct {
	Name        string `json:"name"`
	Enabled     bool   `json:"enabled"`
	Type        string `json:"type"`
	Description string `json:"description"`
	IPv4        struct {
		Address []InterfaceAddress `json:"address"`
	} `json:"ietf-ip:ipv4"`
}

func (i ietfInterface) toInterface() Interface {
	return Interface{
		Name:          orUnknown(i.Name),
		Enabled:       i.Enabled,
		Type:          orUnknown(i.Type),
		Description:   i.Description,
		IPv4Addresses: i.IPv4.Address,
	}
}

// ciscoStaticRoute is one ip-route-interface-forwarding-list entry. fwd-list
// is usually a list but some releases emit a single object.
type ciscoStaticRoute struct {
	Prefix    string          `json:"prefix"`
	Mask      string          `json:"mask"`
	Interface string          `json:"interface"`
	FwdList   json.RawMessage `json:"fwd-list"`
}

func (r ciscoStaticRoute) toStaticRoute() (StaticRoute, bool) {
	if r.Prefix == "" {
		return StaticRoute{}, false
	}
	network := r.Prefix
	if r.Mask != "" {
		network = r.Prefix + "/" + r.Mask
	}

	type fwd struct {
		Fwd string `json:"fwd"`
	}
	nextHop := ""
	if len(r.FwdList) > 0 {
		var list []fwd
		if err := json.Unmarshal(r.FwdList, &list); err == nil && len(list) > 0 {
			nextHop = list[0].Fwd
		} else {
			var single fwd
			if err := json.Unmarshal(r.FwdList, &single); err == nil {
				nextHop = single.Fwd
			}
		}
	}
	if nextHop == "" && r.Interface != "" {
		nextHop = "via " + r.Interface
	}
	if nextHop == "" {
		nextHop = "unknown"
	}
	return StaticRoute{Prefix: network, NextHop: nextHop}, true
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
