package collector

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/host-exporters/pkg/metrics"
)

const bgpctlOutput = `{
  "neighbors": [
    {
      "remote_as": "65001",
      "description": "upstream-a",
      "remote_addr": "192.0.2.1",
      "state": "Established",
      "last_updown_sec": 3600,
      "stats": {
        "prefixes": {"sent": 10, "received": 20},
        "message": {
          "sent": {"open": 1, "notifications": 0, "updates": 6, "keepalives": 90, "total": 100},
          "received": {"open": 1, "notifications": 0, "updates": 9, "keepalives": 190, "total": 200}
        },
        "update": {
          "sent": {"updates": 5, "withdraws": 1, "eor": 1},
          "received": {"updates": 7, "withdraws": 2, "eor": 1}
        }
      }
    },
    {
      "remote_as": "65002",
      "description": "",
      "remote_addr": "198.51.100.2",
      "state": "Idle",
      "last_updown_sec": 12
    }
  ]
}
`

func newCatCollector(t *testing.T, output string) *BgpCollector {
	t.Helper()
	path := filepath.Join(t.TempDir(), "neighbors.json")
	writeFiles(t, filepath.Dir(path), map[string]string{"neighbors.json": output})
	c := NewBgpCollector([]string{"cat", path})
	require.NoError(t, c.Init())
	return c
}

func TestBgpCollector(t *testing.T) {
	out := scrape(t, newCatCollector(t, bgpctlOutput))

	peer := `{description="upstream-a",remote_addr="192.0.2.1",remote_as="65001"}`
	idle := `{description="",remote_addr="198.51.100.2",remote_as="65002"}`
	for _, line := range []string{
		"obgpd_peer_time" + peer + " 3600",
		"obgpd_peer_state" + peer + " 5",
		"obgpd_peer_prefixes_advertised" + peer + " 10",
		"obgpd_peer_prefixes_received" + peer + " 20",
		"obgpd_peer_messages_sent" + peer + " 100",
		"obgpd_peer_messages_received" + peer + " 200",
		"obgpd_peer_updates_sent" + peer + " 6",
		"obgpd_peer_updates_received" + peer + " 9",
		"obgpd_peer_time" + idle + " 12",
		"obgpd_peer_state" + idle + " 0",
	} {
		assert.Contains(t, out, line+"\n")
	}
	assert.NotContains(t, out, "obgpd_peer_messages_sent"+idle)
	assert.Contains(t, out, "# TYPE obgpd_peer_state gauge\n")
}

func TestBgpCollectorUnknownState(t *testing.T) {
	out := scrape(t, newCatCollector(t, `{"neighbors":[{"remote_as":"1","description":"x","remote_addr":"10.0.0.1","state":"Sleeping"}]}`))
	assert.Contains(t, out, `obgpd_peer_state{description="x",remote_addr="10.0.0.1",remote_as="1"} -1`)
}

func TestBgpCollectorNoNeighbors(t *testing.T) {
	assert.Empty(t, scrape(t, newCatCollector(t, `{"neighbors":[]}`)))
	assert.Empty(t, scrape(t, newCatCollector(t, `{}`)))
}

func TestBgpCollectorErrors(t *testing.T) {
	tests := []struct {
		name   string
		output string
		errMsg string
	}{
		{"invalid json", `{"neighbors": [`, "invalid JSON output"},
		{"missing label", `{"neighbors":[{"remote_as":"1","remote_addr":"10.0.0.1"}]}`, `neighbor without "description"`},
		{"missing stat", `{"neighbors":[{"remote_as":"1","description":"","remote_addr":"10.0.0.1","stats":{"prefixes":{"sent":1}}}]}`, `missing number "received"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCatCollector(t, tt.output)
			_, f := metrics.NewScrape()
			assert.ErrorContains(t, c.Collect(context.Background(), f), tt.errMsg)
		})
	}
}

func TestBgpCollectorOutputTooLarge(t *testing.T) {
	c := newCatCollector(t, `{"neighbors":[`+strings.Repeat(" ", 4096)+`]}`)
	c.maxOutput = 1024

	_, f := metrics.NewScrape()
	assert.ErrorIs(t, c.Collect(context.Background(), f), ErrOutputTooLarge)
}

func TestBgpCollectorCommandFailure(t *testing.T) {
	c := NewBgpCollector([]string{"sh", "-c", "echo 'socket not found' >&2; exit 3"})
	require.NoError(t, c.Init())

	_, f := metrics.NewScrape()
	err := c.Collect(context.Background(), f)
	assert.ErrorContains(t, err, "exit status 3")
	assert.ErrorContains(t, err, "socket not found")
}

func TestBgpCollectorMissingCommand(t *testing.T) {
	c := NewBgpCollector([]string{filepath.Join(t.TempDir(), "bgpctl")})
	assert.Error(t, c.Init())
}

func TestNewBgpCollectorDefaultCommand(t *testing.T) {
	assert.Equal(t, DefaultBgpCommand, NewBgpCollector(nil).argv)
}
