package discovery

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/socketd/internal/logging"
)

const (
	// ServiceType is the mDNS service type socketd advertises
	ServiceType = "_socketd._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for discovery
	DefaultScanTimeout = 3 * time.Second

	txtClientPort = "client_port"
	txtAdminPort  = "admin_port"
	txtVersion    = "version"
)

// ErrNotFound is returned when no instance with an admin port answers.
var ErrNotFound = errors.New("no socketd instance found")

// Advertisement is a running mDNS registration.
type Advertisement struct {
	server *zeroconf.Server
}

// Shutdown withdraws the advertisement.
func (a *Advertisement) Shutdown() {
	if a != nil && a.server != nil {
		a.server.Shutdown()
	}
}

// Advertise announces a socketd instance until Shutdown is called.
func Advertise(instance string, clientPort, adminPort int, version string) (*Advertisement, error) {
	text := []string{
		txtClientPort + "=" + strconv.Itoa(clientPort),
		txtAdminPort + "=" + strconv.Itoa(adminPort),
	}
	if version != "" {
		text = append(text, txtVersion+"="+version)
	}

	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, clientPort, text, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("Advertising via mDNS",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("client_port", clientPort),
		zap.Int("admin_port", adminPort),
	)

	return &Advertisement{server: server}, nil
}

// Scanner handles mDNS discovery of socketd instances
type Scanner struct {
	// Timeout is the maximum time to wait for answers
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan collects every instance that answers before the timeout.
func (s *Scanner) Scan(ctx context.Context) ([]*Instance, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var (
		mu        sync.Mutex
		instances []*Instance
	)

	err := s.browse(ctx, func(inst *Instance) bool {
		mu.Lock()
		instances = append(instances, inst)
		mu.Unlock()
		return true
	})
	if err != nil {
		return nil, err
	}

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	return instances, nil
}

// FindAdmin returns the first instance advertising a push ingress. When name
// is non-empty only that instance matches.
func (s *Scanner) FindAdmin(ctx context.Context, name string) (*Instance, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	found := make(chan *Instance, 1)

	err := s.browse(ctx, func(inst *Instance) bool {
		if inst.AdminPort == 0 || (name != "" && inst.Name != name) {
			return true
		}
		select {
		case found <- inst:
		default:
		}
		cancel()
		return false
	})
	if err != nil {
		return nil, err
	}

	select {
	case inst := <-found:
		return inst, nil
	case <-ctx.Done():
		select {
		case inst := <-found:
			return inst, nil
		default:
		}
		if name != "" {
			return nil, fmt.Errorf("%w: %q within %s", ErrNotFound, name, s.Timeout)
		}
		return nil, fmt.Errorf("%w within %s", ErrNotFound, s.Timeout)
	}
}

// browse feeds parsed entries to fn until ctx ends or fn returns false.
func (s *Scanner) browse(ctx context.Context, fn func(*Instance) bool) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-entries:
				if !ok {
					return
				}
				inst := parseServiceEntry(entry)
				if inst == nil {
					continue
				}
				if !fn(inst) {
					return
				}
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return fmt.Errorf("failed to browse for mDNS services: %w", err)
	}
	return nil
}

// parseServiceEntry converts a zeroconf service entry to an Instance.
// Returns nil when the entry carries no usable address or port.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Instance {
	if entry == nil {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}

	clientPort := entry.Port
	if p, err := strconv.Atoi(metadata[txtClientPort]); err == nil && p > 0 {
		clientPort = p
	}
	if clientPort <= 0 {
		return nil
	}

	adminPort, _ := strconv.Atoi(metadata[txtAdminPort])
	if adminPort < 0 {
		adminPort = 0
	}

	return &Instance{
		Name:         entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		ClientPort:   clientPort,
		AdminPort:    adminPort,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}
