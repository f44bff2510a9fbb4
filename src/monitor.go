package irblaster

/*------------------------------------------------------------------
 *
 * Purpose:	Serve the diagnostic lines over TCP and announce the
 *		service using DNS-SD.
 *
 * Description:	Anyone who connects gets every diagnostic line from then
 *		on.  Nothing is read from clients.  Each client has its
 *		own queue; a client that cannot keep up loses lines.
 *
 *		Typing in addresses and ports gets old, so the monitor
 *		is announced as _irblaster._tcp with the pure-Go
 *		github.com/brutella/dnssd responder.
 *
 *----------------------------------------------------------------*/

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/brutella/dnssd"
	"github.com/charmbracelet/log"
)

const (
	DNSSDServiceType = "_irblaster._tcp"

	MaxMonitorClients  = 3
	monitorClientQueue = 64
)

type MonitorConfig struct {
	Listen   string `yaml:"listen"` // e.g. ":7373", empty to disable.
	Announce bool   `yaml:"announce"`
	Name     string `yaml:"name"` // DNS-SD instance name.
}

type monitorClient struct {
	conn  net.Conn
	lines chan []byte
}

type Monitor struct {
	logger *log.Logger
	ln     net.Listener

	mu      sync.Mutex
	clients map[*monitorClient]struct{}
	wg      sync.WaitGroup
}

func ListenMonitor(logger *log.Logger, addr string) (*Monitor, error) {
	var ln, err = net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("monitor listen %s: %w", addr, err)
	}

	var m = &Monitor{ //nolint:exhaustruct
		logger:  logger,
		ln:      ln,
		clients: make(map[*monitorClient]struct{}),
	}

	return m, nil
}

func (m *Monitor) Addr() net.Addr {
	return m.ln.Addr()
}

// Port is the TCP port actually listened on.
func (m *Monitor) Port() int {
	if a, ok := m.ln.Addr().(*net.TCPAddr); ok {
		return a.Port
	}

	return 0
}

// Serve accepts clients until ctx is done.
func (m *Monitor) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		m.ln.Close() //nolint:gosec
	}()

	defer m.closeClients()

	for {
		var conn, err = m.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}

			return fmt.Errorf("monitor accept: %w", err)
		}

		m.add(conn)
	}
}

func (m *Monitor) add(conn net.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.clients) >= MaxMonitorClients {
		m.logger.Warn("monitor: too many clients", "from", conn.RemoteAddr())
		conn.Close() //nolint:gosec

		return
	}

	var c = &monitorClient{conn: conn, lines: make(chan []byte, monitorClientQueue)}
	m.clients[c] = struct{}{}

	m.logger.Info("monitor: client connected", "from", conn.RemoteAddr())

	m.wg.Add(1)

	go m.send(c)
}

func (m *Monitor) send(c *monitorClient) {
	defer m.wg.Done()
	defer c.conn.Close()

	for line := range c.lines {
		if _, err := c.conn.Write(line); err != nil {
			m.logger.Info("monitor: client gone", "from", c.conn.RemoteAddr())
			m.remove(c)

			// Discard what is still queued.
			for range c.lines { //nolint:revive
			}

			return
		}
	}
}

func (m *Monitor) remove(c *monitorClient) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.clients[c]; ok {
		delete(m.clients, c)
		close(c.lines)
	}
}

// Write sends p to every client.  It never blocks.
func (m *Monitor) Write(p []byte) (int, error) {
	var line = append([]byte(nil), p...)

	m.mu.Lock()
	defer m.mu.Unlock()

	for c := range m.clients {
		select {
		case c.lines <- line:
		default:
		}
	}

	return len(p), nil
}

// Clients is the number connected.
func (m *Monitor) Clients() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.clients)
}

func (m *Monitor) closeClients() {
	m.mu.Lock()

	for c := range m.clients {
		delete(m.clients, c)
		close(c.lines)
	}

	m.mu.Unlock()

	m.wg.Wait()
}

/* Get a default service name to publish: "irblaster on <hostname>",
 * or just "irblaster" if the hostname cannot be obtained.
 */
func dnssdDefaultServiceName() string {
	var hostname, hostnameErr = os.Hostname()
	if hostnameErr != nil {
		return "irblaster"
	}

	// On some systems an FQDN is returned; remove the domain part.
	hostname, _, _ = strings.Cut(hostname, ".")

	return "irblaster on " + hostname
}

// Announce publishes the monitor until ctx is done.
func (m *Monitor) Announce(ctx context.Context, name string) error {
	if name == "" {
		name = dnssdDefaultServiceName()
	}

	var cfg = dnssd.Config{ //nolint:exhaustruct
		Name: name,
		Type: DNSSDServiceType,
		Port: m.Port(),
	}

	var sv, svErr = dnssd.NewService(cfg)
	if svErr != nil {
		return fmt.Errorf("DNS-SD: create service: %w", svErr)
	}

	var rp, rpErr = dnssd.NewResponder()
	if rpErr != nil {
		return fmt.Errorf("DNS-SD: create responder: %w", rpErr)
	}

	if _, err := rp.Add(sv); err != nil {
		return fmt.Errorf("DNS-SD: add service: %w", err)
	}

	m.logger.Info("DNS-SD: announcing monitor", "port", m.Port(), "name", name)

	if err := rp.Respond(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("DNS-SD: responder: %w", err)
	}

	return nil
}
