package discovery

import (
	"io"
	"log"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amalg/dci-bomberman/internal/balancer"
)

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func TestBroadcastReachesListener(t *testing.T) {
	l := NewListener(-1, quiet())
	found := make(chan balancer.ServerInfo, 16)
	l.OnServer = func(info balancer.ServerInfo) {
		select {
		case found <- info:
		default:
		}
	}
	require.NoError(t, l.Start())
	defer l.Stop()

	info := balancer.ServerInfo{URL: "http://10.0.0.5:8080", PlayerCount: 3, GameCount: 1}
	b := NewBroadcaster(l.Port(), func() balancer.ServerInfo { return info }, quiet())
	require.NoError(t, b.Start())
	defer b.Stop()

	select {
	case got := <-found:
		assert.Equal(t, info.URL, got.URL)
		assert.Equal(t, 3, got.PlayerCount)
	case <-time.After(3 * time.Second):
		t.Fatal("no advertisement received")
	}

	servers := l.Servers()
	require.Len(t, servers, 1)
	assert.Equal(t, info.URL, servers[0].URL)
}

func TestListenerExpiry(t *testing.T) {
	l := NewListener(-1, quiet())
	var expired []string
	l.OnExpire = func(url string) { expired = append(expired, url) }

	now := time.Now()
	l.seen(balancer.ServerInfo{URL: "b"}, now.Add(-10*time.Second))
	l.seen(balancer.ServerInfo{URL: "a"}, now.Add(-5*time.Second))
	l.seen(balancer.ServerInfo{URL: "c"}, now)

	l.expire(now)

	assert.Equal(t, []string{"a", "b"}, expired)
	servers := l.Servers()
	require.Len(t, servers, 1)
	assert.Equal(t, "c", servers[0].URL)
}

func TestBroadcastAddr(t *testing.T) {
	_, ipnet, err := net.ParseCIDR("192.168.1.17/24")
	require.NoError(t, err)
	ipnet.IP = net.ParseIP("192.168.1.17")

	assert.Equal(t, "192.168.1.255", broadcastAddr(ipnet).String())
}
