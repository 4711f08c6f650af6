// Package zabbix implements the trapper side of the Zabbix sender protocol.
package zabbix

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

var header = []byte("ZBXD\x01")

// Metric is one trapper item value.
type Metric struct {
	Host  string `json:"host"`
	Key   string `json:"key"`
	Value string `json:"value"`
	Clock int64  `json:"clock,omitempty"`
}

type request struct {
	Request string   `json:"request"`
	Data    []Metric `json:"data"`
	Clock   int64    `json:"clock,omitempty"`
}

// Response is the server reply; Info carries "processed: N; failed: M; ...".
type Response struct {
	Response string `json:"response"`
	Info     string `json:"info"`
}

type Sender interface {
	Send(ctx context.Context, metrics ...Metric) (*Response, error)
	Host() string
}

type sender struct {
	server  string
	host    string
	timeout time.Duration
}

// NewSender targets server ("host:port", port 10051 when omitted) and
// reports metrics for host unless a metric names its own.
func NewSender(server, host string, timeout time.Duration) Sender {
	if server != "" && !strings.Contains(server, ":") {
		server += ":10051"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &sender{server: server, host: host, timeout: timeout}
}

func (s *sender) Host() string {
	return s.host
}

func (s *sender) Send(ctx context.Context, metrics ...Metric) (*Response, error) {
	if s.server == "" {
		return nil, errors.New("zabbix server is not configured")
	}
	for i := range metrics {
		if metrics[i].Host == "" {
			metrics[i].Host = s.host
		}
	}

	packet, err := Encode(metrics, time.Now().Unix())
	if err != nil {
		return nil, err
	}

	dialer := net.Dialer{Timeout: s.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.server)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to zabbix server %s: %w", s.server, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	if _, err := conn.Write(packet); err != nil {
		return nil, fmt.Errorf("failed to write zabbix packet: %w", err)
	}

	resp, err := Decode(conn)
	if err != nil {
		return nil, err
	}
	if resp.Response != "success" {
		return resp, fmt.Errorf("zabbix server rejected data: %s", resp.Info)
	}
	return resp, nil
}

// Encode builds a framed sender-data packet.
func Encode(metrics []Metric, clock int64) ([]byte, error) {
	body, err := json.Marshal(request{Request: "sender data", Data: metrics, Clock: clock})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal zabbix request: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(header)
	length := make([]byte, 8)
	binary.LittleEndian.PutUint64(length, uint64(len(body)))
	buf.Write(length)
	buf.Write(body)
	return buf.Bytes(), nil
}

// Decode reads one framed reply.
func Decode(r io.Reader) (*Response, error) {
	head := make([]byte, 13)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, fmt.Errorf("failed to read zabbix reply header: %w", err)
	}
	if !bytes.Equal(head[:5], header) {
		return nil, errors.New("invalid zabbix reply header")
	}
	length := binary.LittleEndian.Uint64(head[5:])
	if length > 1<<20 {
		return nil, fmt.Errorf("zabbix reply too large: %d bytes", length)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("failed to read zabbix reply body: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode zabbix reply: %w", err)
	}
	return &resp, nil
}
