package statsd

import (
	"net"
	"strings"
	"testing"
	"time"
)

func TestFormatTags(t *testing.T) {
	t.Parallel()

	got := formatTags(map[string]string{
		"result": " success ",
		"":       "ignored",
		"table":  "cars",
	})
	want := "|#result:success,table:cars"
	if got != want {
		t.Fatalf("formatTags = %q, want %q", got, want)
	}

	if got := formatTags(nil); got != "" {
		t.Fatalf("formatTags(nil) = %q, want empty", got)
	}
}

func TestMetricName(t *testing.T) {
	t.Parallel()

	c := &Client{prefix: "rentd"}
	tests := map[string]string{
		" sync/run ": "rentd.sync_run",
		"":           "",
		"http.req":   "rentd.http.req",
	}
	for input, want := range tests {
		if got := c.metricName(input); got != want {
			t.Fatalf("metricName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestClientEmitsOverUDP(t *testing.T) {
	t.Parallel()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer func() {
		_ = pc.Close()
	}()

	client, err := NewClient(Config{
		Enabled: true,
		Address: pc.LocalAddr().String(),
		Prefix:  "rentd",
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	client.Count("sync.rows", 3, map[string]string{"table": "cars"})

	buf := make([]byte, 512)
	if deadlineErr := pc.SetReadDeadline(time.Now().Add(2 * time.Second)); deadlineErr != nil {
		t.Fatalf("set deadline: %v", deadlineErr)
	}
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	line := string(buf[:n])
	if !strings.HasPrefix(line, "rentd.sync.rows:3|c") {
		t.Fatalf("unexpected metric line %q", line)
	}
	if !strings.Contains(line, "table:cars") {
		t.Fatalf("missing tag in %q", line)
	}
}

func TestDisabledClientIsNoOp(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{Enabled: false})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	// Must not panic or block.
	client.Count("x", 1, nil)
	client.Timing("y", time.Second, nil)
	if closeErr := client.Close(); closeErr != nil {
		t.Fatalf("close: %v", closeErr)
	}
}
