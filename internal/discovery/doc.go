// Package discovery advertises and finds socketd servers with mDNS.
//
// A server started with mdns.enabled registers the "_socketd._tcp" service.
// The SRV record carries the WebSocket port; TXT records carry both ports:
//
//	client_port=9000
//	admin_port=9001
//	version=v1.2.0
//
// socketd push --discover uses FindAdmin to locate a server accepting push
// messages without being told its address.
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Client and server must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
