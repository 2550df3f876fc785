package discovery

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/amalg/dci-bomberman/internal/balancer"
)

const (
	// BroadcastPort is the UDP port used for server discovery.
	BroadcastPort = 9998
	// BroadcastInterval is how often servers advertise themselves.
	BroadcastInterval = 500 * time.Millisecond
	// ServerExpiry is how long a server stays visible after its last broadcast.
	ServerExpiry = 4 * time.Second
)

// --- Broadcaster ---

// Broadcaster periodically sends UDP broadcast packets with the server info
// returned by its source.
type Broadcaster struct {
	port     int
	interval time.Duration
	source   func() balancer.ServerInfo
	logger   *log.Logger
	done     chan struct{}
	once     sync.Once
}

// NewBroadcaster creates a broadcaster sending to port. A zero port uses
// BroadcastPort.
func NewBroadcaster(port int, source func() balancer.ServerInfo, logger *log.Logger) *Broadcaster {
	if port == 0 {
		port = BroadcastPort
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[DISCOVERY] ", log.LstdFlags)
	}
	return &Broadcaster{
		port:     port,
		interval: BroadcastInterval,
		source:   source,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start begins broadcasting server info via UDP.
func (b *Broadcaster) Start() error {
	// Use ListenPacket (not DialUDP) so broadcast works on Linux.
	// DialUDP to 255.255.255.255 silently fails without SO_BROADCAST.
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return fmt.Errorf("create broadcast socket: %w", err)
	}
	go b.broadcastLoop(conn)
	return nil
}

// Stop stops the broadcaster.
func (b *Broadcaster) Stop() {
	b.once.Do(func() { close(b.done) })
}

func (b *Broadcaster) broadcastLoop(conn net.PacketConn) {
	defer conn.Close()

	dst := &net.UDPAddr{
		IP:   net.IPv4bcast,
		Port: b.port,
	}

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	// Send immediately on start, then on tick
	b.sendBroadcast(conn, dst)

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.sendBroadcast(conn, dst)
		}
	}
}

func (b *Broadcaster) sendBroadcast(conn net.PacketConn, dst net.Addr) {
	data, err := json.Marshal(b.source())
	if err != nil {
		b.logger.Printf("Failed to encode server info: %v", err)
		return
	}

	// 1. Always send to loopback for same-machine discovery
	//    (255.255.255.255 broadcast is often dropped by Linux firewall)
	loopback := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: b.port}
	_, _ = conn.WriteTo(data, loopback)

	// 2. Try global broadcast
	_, _ = conn.WriteTo(data, dst)

	// 3. Also broadcast on each interface's specific broadcast address
	b.broadcastOnInterfaces(conn, data)
}

// broadcastOnInterfaces sends to each interface's broadcast address as a fallback.
func (b *Broadcaster) broadcastOnInterfaces(conn net.PacketConn, data []byte) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagBroadcast == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok || ipnet.IP.To4() == nil {
				continue
			}
			dst := &net.UDPAddr{IP: broadcastAddr(ipnet), Port: b.port}
			_, _ = conn.WriteTo(data, dst)
		}
	}
}

// broadcastAddr computes IP | ^mask.
func broadcastAddr(ipnet *net.IPNet) net.IP {
	ip4 := ipnet.IP.To4()
	mask := ipnet.Mask
	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}
	broadcast := make(net.IP, net.IPv4len)
	for i := range broadcast {
		broadcast[i] = ip4[i] | ^mask[i]
	}
	return broadcast
}

// --- Listener ---

// discoveredServer holds a server and when it was last seen.
type discoveredServer struct {
	Info     balancer.ServerInfo
	LastSeen time.Time
}

// Listener listens for UDP server advertisements. OnServer is called for
// every advertisement and OnExpire when a server has been silent for
// Expiry. Both are called from the listener's goroutines.
type Listener struct {
	OnServer func(balancer.ServerInfo)
	OnExpire func(url string)
	Expiry   time.Duration

	port    int
	logger  *log.Logger
	servers map[string]*discoveredServer // keyed by URL
	mu      sync.RWMutex
	conn    *net.UDPConn
	done    chan struct{}
	once    sync.Once
}

// NewListener creates a listener on port. A zero port uses BroadcastPort;
// a negative one picks a free port, which Port reports after Start.
func NewListener(port int, logger *log.Logger) *Listener {
	if port == 0 {
		port = BroadcastPort
	}
	if port < 0 {
		port = 0
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[DISCOVERY] ", log.LstdFlags)
	}
	return &Listener{
		Expiry:  ServerExpiry,
		port:    port,
		logger:  logger,
		servers: make(map[string]*discoveredServer),
		done:    make(chan struct{}),
	}
}

// Start begins listening for server broadcasts.
func (l *Listener) Start() error {
	addr := &net.UDPAddr{
		Port: l.port,
		IP:   net.IPv4zero,
	}

	var err error
	l.conn, err = net.ListenUDP("udp4", addr)
	if err != nil {
		return fmt.Errorf("listen UDP on port %d: %w (is another instance browsing?)", l.port, err)
	}
	l.port = l.conn.LocalAddr().(*net.UDPAddr).Port

	go l.listenLoop()
	go l.cleanupLoop()

	return nil
}

// Port returns the UDP port the listener is bound to.
func (l *Listener) Port() int {
	return l.port
}

// Stop stops the listener.
func (l *Listener) Stop() {
	l.once.Do(func() { close(l.done) })
	if l.conn != nil {
		l.conn.Close()
	}
}

// Servers returns the currently visible servers ordered by URL.
func (l *Listener) Servers() []balancer.ServerInfo {
	l.mu.RLock()
	defer l.mu.RUnlock()

	servers := make([]balancer.ServerInfo, 0, len(l.servers))
	for _, ds := range l.servers {
		servers = append(servers, ds.Info)
	}
	sort.Slice(servers, func(i, j int) bool { return servers[i].URL < servers[j].URL })
	return servers
}

func (l *Listener) listenLoop() {
	buf := make([]byte, 64*1024)
	for {
		select {
		case <-l.done:
			return
		default:
		}

		_ = l.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, _, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			continue
		}

		var info balancer.ServerInfo
		if err := json.Unmarshal(buf[:n], &info); err != nil || info.URL == "" {
			continue
		}
		l.seen(info, time.Now())
	}
}

func (l *Listener) seen(info balancer.ServerInfo, now time.Time) {
	l.mu.Lock()
	if _, known := l.servers[info.URL]; !known {
		l.logger.Printf("Found server %s", info.URL)
	}
	l.servers[info.URL] = &discoveredServer{
		Info:     info,
		LastSeen: now,
	}
	l.mu.Unlock()

	if l.OnServer != nil {
		l.OnServer(info)
	}
}

func (l *Listener) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case now := <-ticker.C:
			l.expire(now)
		}
	}
}

// expire forgets the servers silent for longer than Expiry.
func (l *Listener) expire(now time.Time) {
	var gone []string
	l.mu.Lock()
	for url, ds := range l.servers {
		if now.Sub(ds.LastSeen) > l.Expiry {
			delete(l.servers, url)
			gone = append(gone, url)
		}
	}
	l.mu.Unlock()

	sort.Strings(gone)
	for _, url := range gone {
		l.logger.Printf("Server %s expired", url)
		if l.OnExpire != nil {
			l.OnExpire(url)
		}
	}
}
