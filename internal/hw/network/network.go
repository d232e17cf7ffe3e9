package network

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os/exec"
	"strings"
	"time"

	"github.com/cjeanneret/snapcam/internal/debug"
)

// Link reports the state of the station interface.
type Link interface {
	// Begin starts joining the network with the given credentials.
	Begin(ssid, password string) error
	// Connected reports whether the link is up with an address.
	Connected() bool
	// LocalIP returns the address of the link, or nil when down.
	LocalIP() net.IP
}

// joinTimeout bounds one run of the join command.
const joinTimeout = 30 * time.Second

// InterfaceLink watches a host network interface; the link is considered
// up once the interface carries an IPv4 address. Begin starts association
// by running a join command (for example nmcli) with the credentials.
type InterfaceLink struct {
	name    string
	join    []string
	timeout time.Duration
}

// NewInterfaceLink returns a link bound to the named interface, e.g. "wlan0".
// join is the association argv; "{ssid}", "{password}" and "{iface}" are
// replaced in every argument. An empty join leaves association to the
// operating system (wpa_supplicant, NetworkManager).
func NewInterfaceLink(name string, join []string) *InterfaceLink {
	return &InterfaceLink{
		name:    name,
		join:    append([]string(nil), join...),
		timeout: joinTimeout,
	}
}

// Begin runs the join command once and waits for it to exit.
func (l *InterfaceLink) Begin(ssid, password string) error {
	if len(l.join) == 0 {
		debug.Verbose("Network: waiting for %s to join %q", l.name, ssid)
		return nil
	}

	argv := l.expand(ssid, password)
	debug.Verbose("Network: running %v", l.expand(ssid, "********"))

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	var output bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("join %q on %s: %w (output: %s)", ssid, l.name, err, bytes.TrimSpace(output.Bytes()))
	}
	return nil
}

func (l *InterfaceLink) expand(ssid, password string) []string {
	r := strings.NewReplacer("{ssid}", ssid, "{password}", password, "{iface}", l.name)
	argv := make([]string, len(l.join))
	for i, arg := range l.join {
		argv[i] = r.Replace(arg)
	}
	return argv
}

func (l *InterfaceLink) Connected() bool {
	return l.LocalIP() != nil
}

func (l *InterfaceLink) LocalIP() net.IP {
	iface, err := net.InterfaceByName(l.name)
	if err != nil || iface.Flags&net.FlagUp == 0 {
		return nil
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return nil
	}
	for _, a := range addrs {
		if ipn, ok := a.(*net.IPNet); ok {
			if ip4 := ipn.IP.To4(); ip4 != nil {
				return ip4
			}
		}
	}
	return nil
}

// MockLink is always connected on loopback.
type MockLink struct{}

func (MockLink) Begin(ssid, password string) error {
	debug.Info("Using MOCK network link (development mode)")
	return nil
}

func (MockLink) Connected() bool { return true }

func (MockLink) LocalIP() net.IP { return net.IPv4(127, 0, 0, 1) }

// NewLink creates a link based on the chosen mode.
func NewLink(mock bool, iface string, join []string) Link {
	if mock {
		return MockLink{}
	}
	return NewInterfaceLink(iface, join)
}

// Join starts the link and blocks until it is connected, writing one
// progress dot per poll. There is no timeout; only ctx stops the wait.
// A failed Begin is logged and the wait goes on, since the interface
// may still come up on its own.
func Join(ctx context.Context, link Link, ssid, password string, poll time.Duration, progress io.Writer) (net.IP, error) {
	if err := link.Begin(ssid, password); err != nil {
		debug.Error(fmt.Errorf("begin join: %w", err))
	}

	fmt.Fprint(progress, "WiFi ")
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for !link.Connected() {
		select {
		case <-ctx.Done():
			fmt.Fprintln(progress)
			return nil, ctx.Err()
		case <-ticker.C:
			fmt.Fprint(progress, ".")
		}
	}
	fmt.Fprintln(progress)
	return link.LocalIP(), nil
}
