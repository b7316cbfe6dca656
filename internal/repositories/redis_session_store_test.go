package repositories

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

	"github.com/redis/go-redis/v9"

	"finportal/internal/models"
)

// respServer answers the handful of RESP2 commands the session store sends.
type respServer struct {
	ln   net.Listener
	mu   sync.Mutex
	data map[string]string
}

func startRESPServer(t *testing.T) *respServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &respServer{ln: ln, data: make(map[string]string)}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go s.serve(conn)
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *respServer) serve(conn net.Conn) {
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

func (s *respServer) handle(args []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch strings.ToUpper(args[0]) {
	case "HELLO":
		return "-ERR unknown command 'HELLO'\r\n"
	case "GET":
		v, ok := s.data[args[1]]
		if !ok {
			return "$-1\r\n"
		}
		return fmt.Sprintf("$%d\r\n%s\r\n", len(v), v)
	case "SET":
		s.data[args[1]] = args[2]
		return "+OK\r\n"
	case "DEL":
		n := 0
		for _, k := range args[1:] {
			if _, ok := s.data[k]; ok {
				delete(s.data, k)
				n++
			}
		}
		return fmt.Sprintf(":%d\r\n", n)
	}
	return "+OK\r\n"
}

func readCommand(r *bufio.Reader) ([]string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "*")))
	if err != nil || n < 1 {
		return nil, fmt.Errorf("bad array header %q", line)
	}
	args := make([]string, 0, n)
	for i := 0; i < n; i++ {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		size, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "$")))
		if err != nil {
			return nil, fmt.Errorf("bad bulk header %q", line)
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		args = append(args, string(buf[:size]))
	}
	return args, nil
}

func testSession() *models.VerificationSession {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.VerificationSession{
		ID:              "s1",
		SubjectEmail:    "a@b.com",
		Digits:          "123",
		IssuedAt:        issued,
		ExpiresAt:       issued.Add(5 * time.Minute),
		ResendLockUntil: issued.Add(5 * time.Minute),
		State:           models.StateFailed,
		LastError:       "Invalid or expired code",
		ReturnTo:        "/cards",
	}
}

func sameSession(a, b *models.VerificationSession) bool {
	return a.ID == b.ID && a.SubjectEmail == b.SubjectEmail && a.Digits == b.Digits &&
		a.IssuedAt.Equal(b.IssuedAt) && a.ExpiresAt.Equal(b.ExpiresAt) &&
		a.ResendLockUntil.Equal(b.ResendLockUntil) && a.State == b.State &&
		a.LastError == b.LastError && a.ReturnTo == b.ReturnTo
}

func TestSessionCodecKeepsDigits(t *testing.T) {
	in := testSession()
	raw, err := encodeSession(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(raw), `"digits":"123"`) {
		t.Errorf("encoded form lacks digits: %s", raw)
	}
	out, err := decodeSession(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !sameSession(out, in) {
		t.Errorf("decoded = %+v, want %+v", out, in)
	}
}

func TestDecodeSessionRejectsGarbage(t *testing.T) {
	if _, err := decodeSession([]byte("not json")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestRedisSessionStoreRoundTrip(t *testing.T) {
	srv := startRESPServer(t)
	client := redis.NewClient(&redis.Options{Addr: srv.ln.Addr().String()})
	defer client.Close()
	st := NewRedisSessionStore(client)
	ctx := context.Background()

	if got, err := st.Get(ctx, "s1"); err != nil || got != nil {
		t.Fatalf("Get before save = %+v, %v; want nil, nil", got, err)
	}

	in := testSession()
	if err := st.Save(ctx, in, 30*time.Minute); err != nil {
		t.Fatalf("Save: %v", err)
	}
	srv.mu.Lock()
	_, stored := srv.data["verify:s1"]
	srv.mu.Unlock()
	if !stored {
		t.Fatal("session not stored under verify: prefix")
	}

	got, err := st.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || !sameSession(got, in) {
		t.Fatalf("Get = %+v, want %+v", got, in)
	}

	if err := st.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := st.Get(ctx, "s1"); got != nil {
		t.Errorf("Get after delete = %+v", got)
	}
}
