package xmlrpc

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ghalamif/RigFlow/internal/ports"
)

// Dialer opens satellite clients at http://<address>:<Port>.
type Dialer struct {
	Port         int
	Token        string
	PollInterval time.Duration
	Transport    http.RoundTripper
}

// Dial connects to the command server on host.
func (d *Dialer) Dial(host string) (ports.RemoteClient, error) {
	port := d.Port
	if port == 0 {
		port = DefaultPort
	}
	return NewClient(Settings{
		ServerURL:    EndpointURL(host, port),
		Token:        d.Token,
		PollInterval: d.PollInterval,
		Transport:    d.Transport,
	})
}

func EndpointURL(host string, port int) string {
	return fmt.Sprintf("http://%s", net.JoinHostPort(host, strconv.Itoa(port)))
}

var _ ports.RemoteDialer = (*Dialer)(nil)
