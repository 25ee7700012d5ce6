package cache

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeRedis speaks enough RESP2 for GET, SET, DEL and the connection handshake.
type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]string
	addr string
}

func startFakeRedis(t *testing.T) *fakeRedis {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	srv := &fakeRedis{data: map[string]string{}, ttls: map[string]string{}, addr: ln.Addr().String()}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go srv.serve(conn)
		}
	}()

	return srv
}

func (s *fakeRedis) serve(conn net.Conn) {
	defer conn.Close()

	r := bufio.NewReader(conn)
	for {
		args, err := readCommand(r)
		if err != nil {
			return
		}
		if _, err := io.WriteString(conn, s.handle(args)); err != nil {
			return
		}
	}
}

func (s *fakeRedis) handle(args []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch strings.ToUpper(args[0]) {
	case "PING":
		return "+PONG\r\n"
	case "CLIENT":
		if len(args) > 1 && strings.EqualFold(args[1], "SETINFO") {
			return "+OK\r\n"
		}
		return "-ERR unknown subcommand\r\n"
	case "GET":
		val, ok := s.data[args[1]]
		if !ok {
			return "$-1\r\n"
		}
		return fmt.Sprintf("$%d\r\n%s\r\n", len(val), val)
	case "SET":
		s.data[args[1]] = args[2]
		if len(args) == 5 {
			s.ttls[args[1]] = strings.ToLower(args[3]) + " " + args[4]
		}
		return "+OK\r\n"
	case "DEL":
		n := 0
		for _, key := range args[1:] {
			if _, ok := s.data[key]; ok {
				delete(s.data, key)
				n++
			}
		}
		return fmt.Sprintf(":%d\r\n", n)
	default:
		return fmt.Sprintf("-ERR unknown command '%s'\r\n", args[0])
	}
}

func (s *fakeRedis) get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	val, ok := s.data[key]
	return val, ok
}

func (s *fakeRedis) set(key, val string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = val
}

func (s *fakeRedis) ttl(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ttls[key]
}

func readCommand(r *bufio.Reader) ([]string, error) {
	header, err := readLine(r)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(header, "*") {
		return nil, fmt.Errorf("unexpected header %q", header)
	}

	n, err := strconv.Atoi(header[1:])
	if err != nil || n < 1 {
		return nil, fmt.Errorf("bad array length %q", header)
	}

	args := make([]string, 0, n)
	for i := 0; i < n; i++ {
		line, err := readLine(r)
		if err != nil {
			return nil, err
		}
		size, err := strconv.Atoi(strings.TrimPrefix(line, "$"))
		if err != nil {
			return nil, fmt.Errorf("bad bulk length %q", line)
		}

		buf := make([]byte, size+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		args = append(args, string(buf[:size]))
	}

	return args, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func connectFake(t *testing.T, addr string) *RedisCache {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := NewRedis(ctx, addr)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	return c
}

func TestNewRedisConnects(t *testing.T) {
	srv := startFakeRedis(t)

	tests := []struct {
		name string
		addr string
	}{
		{name: "host and port", addr: srv.addr},
		{name: "url", addr: "redis://" + srv.addr + "/0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			connectFake(t, tt.addr)
		})
	}
}

func TestRedisCacheRoundTrip(t *testing.T) {
	srv := startFakeRedis(t)
	c := connectFake(t, srv.addr)
	ctx := context.Background()

	type entry struct {
		Score   int    `json:"score"`
		Summary string `json:"summary"`
	}

	var missed entry
	hit, err := c.GetJSON(ctx, "analysis:1", &missed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hit {
		t.Fatal("expected a miss on an empty cache")
	}

	if err := c.SetJSON(ctx, "analysis:1", entry{Score: 7, Summary: "solid"}, 24*time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if raw, _ := srv.get("analysis:1"); raw != `{"score":7,"summary":"solid"}` {
		t.Fatalf("unexpected stored value: %s", raw)
	}
	if got := srv.ttl("analysis:1"); got != "ex 86400" {
		t.Fatalf("unexpected ttl: %q", got)
	}

	var got entry
	hit, err = c.GetJSON(ctx, "analysis:1", &got)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hit || got != (entry{Score: 7, Summary: "solid"}) {
		t.Fatalf("expected stored entry, got hit=%v %+v", hit, got)
	}

	if err := c.Del(ctx, "analysis:1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := srv.get("analysis:1"); ok {
		t.Fatal("expected entry to be deleted")
	}
}

func TestRedisCacheCorruptEntryIsMiss(t *testing.T) {
	srv := startFakeRedis(t)
	c := connectFake(t, srv.addr)

	srv.set("analysis:broken", "{not json")

	var dst map[string]any
	hit, err := c.GetJSON(context.Background(), "analysis:broken", &dst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hit {
		t.Fatal("expected a corrupt entry to be a miss")
	}
	if _, ok := srv.get("analysis:broken"); ok {
		t.Fatal("expected the corrupt entry to be removed")
	}
}

func TestRedisCacheDelWithoutKeys(t *testing.T) {
	if err := (&RedisCache{}).Del(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
