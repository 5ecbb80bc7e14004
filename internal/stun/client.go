package stun

import (
	"net"
	"time"

	"github.com/pkg/errors"
)

// Client performs a single STUN Binding transaction over UDP against a
// well-known STUN server, used during ICE host candidate gathering to
// discover a server-reflexive address.
type Client struct {
	conn    *net.UDPConn
	timeout time.Duration
}

// NewClient dials addr over network (e.g. "udp4") and returns a Client
// ready to perform a Binding request, bounded by timeout.
func NewClient(network, addr string, timeout time.Duration) (*Client, error) {
	raddr, err := net.ResolveUDPAddr(network, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve STUN server address %s", addr)
	}

	conn, err := net.DialUDP(network, nil, raddr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial STUN server %s", addr)
	}

	return &Client{conn: conn, timeout: timeout}, nil
}

// LocalAddr returns the local address the client is bound to.
func (c *Client) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// Request sends a STUN Binding request and waits for the matching
// response, failing if none arrives within the client's timeout.
func (c *Client) Request() (*Message, error) {
	transactionID := GenerateTransactionID()

	req, err := Build(ClassRequest, MethodBinding, transactionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build STUN binding request")
	}

	if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, errors.Wrap(err, "failed to set STUN client deadline")
	}

	if _, err := c.conn.Write(req.Raw); err != nil {
		return nil, errors.Wrap(err, "failed to send STUN binding request")
	}

	buf := make([]byte, 1500)
	for {
		n, err := c.conn.Read(buf)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read STUN binding response")
		}

		resp, err := Decode(append([]byte{}, buf[:n]...))
		if err != nil {
			// not a well-formed STUN message, keep waiting for the real reply
			continue
		}

		if resp.TransactionID != transactionID {
			continue
		}

		return resp, nil
	}
}

// Close releases the underlying UDP socket.
func (c *Client) Close() error {
	return c.conn.Close()
}
