package zabbix

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveOnce accepts one connection, captures the request and answers with reply.
func serveOnce(t *testing.T, reply Response) (string, <-chan []Metric) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	got := make(chan []Metric, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		head := make([]byte, 13)
		if _, err := io.ReadFull(conn, head); err != nil {
			return
		}
		var req request
		if err := json.NewDecoder(conn).Decode(&req); err != nil {
			return
		}
		got <- req.Data

		body, _ := json.Marshal(reply)
		packet, _ := frame(body)
		_, _ = conn.Write(packet)
	}()
	return ln.Addr().String(), got
}

func frame(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(header)
	length := make([]byte, 8)
	length[0] = byte(len(body))
	length[1] = byte(len(body) >> 8)
	buf.Write(length)
	buf.Write(body)
	return buf.Bytes(), nil
}

func TestSender_Send(t *testing.T) {
	addr, got := serveOnce(t, Response{Response: "success", Info: "processed: 1; failed: 0"})

	s := NewSender(addr, "jobrunner", time.Second)
	resp, err := s.Send(context.Background(), Metric{Key: "job-[acme-backup-1-interval]", Value: "h"})
	require.NoError(t, err)
	assert.Equal(t, "processed: 1; failed: 0", resp.Info)

	metrics := <-got
	require.Len(t, metrics, 1)
	assert.Equal(t, "jobrunner", metrics[0].Host)
	assert.Equal(t, "h", metrics[0].Value)
}

func TestSender_Rejected(t *testing.T) {
	addr, _ := serveOnce(t, Response{Response: "failed", Info: "processed: 0; failed: 1"})

	s := NewSender(addr, "jobrunner", time.Second)
	_, err := s.Send(context.Background(), Metric{Key: "k", Value: "v"})
	assert.Error(t, err)
}

func TestSender_Unconfigured(t *testing.T) {
	_, err := NewSender("", "jobrunner", time.Second).Send(context.Background(), Metric{Key: "k"})
	assert.Error(t, err)
}

func TestEncodeDecode(t *testing.T) {
	packet, err := Encode([]Metric{{Host: "h", Key: "k", Value: "1"}}, 100)
	require.NoError(t, err)
	assert.Equal(t, header, packet[:5])

	reply, _ := json.Marshal(Response{Response: "success", Info: "ok"})
	framed, _ := frame(reply)
	resp, err := Decode(bytes.NewReader(framed))
	require.NoError(t, err)
	assert.Equal(t, "success", resp.Response)

	_, err = Decode(bytes.NewReader([]byte("garbage-bytes")))
	assert.Error(t, err)
}
