package main

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log"
	mathRand "math/rand"
	"net"
	"sync"
	"time"

	"github.com/pqtls/kexdispatch/pkg/keyshare"
	"github.com/pqtls/kexdispatch/pkg/namedgroup"
)

// PeerHandler manages a single peer's connection and key exchanges
type PeerHandler struct {
	name    string
	config  PeerConfig
	groupID uint16

	lastExchange time.Time
	myTurn       bool
	exchangeMu   sync.Mutex

	sharedKey []byte
	keysMu    sync.RWMutex
}

// MultiPeerDaemon manages connections to multiple peers
type MultiPeerDaemon struct {
	config *Config

	// Per-peer handlers
	peers map[string]*PeerHandler
	mu    sync.RWMutex

	listener net.Listener
}

// NewMultiPeerDaemon creates a new multi-peer daemon
func NewMultiPeerDaemon(config *Config) (*MultiPeerDaemon, error) {
	mpd := &MultiPeerDaemon{
		config: config,
		peers:  make(map[string]*PeerHandler),
	}

	for _, peerCfg := range config.Peers {
		handler, err := mpd.createPeerHandler(peerCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create handler for peer '%s': %w", peerCfg.Name, err)
		}
		mpd.peers[peerCfg.Name] = handler
	}

	return mpd, nil
}

// createPeerHandler creates a PeerHandler instance for a specific peer
func (mpd *MultiPeerDaemon) createPeerHandler(peerCfg PeerConfig) (*PeerHandler, error) {
	groupID, ok := namedgroup.NameToGroupID(peerCfg.GroupName)
	if !ok {
		return nil, fmt.Errorf("unknown group '%s'", peerCfg.GroupName)
	}
	if !namedgroup.Available(groupID) {
		return nil, fmt.Errorf("group '%s' has no available implementation in this build", peerCfg.GroupName)
	}

	handler := &PeerHandler{
		name:         peerCfg.Name,
		config:       peerCfg,
		groupID:      groupID,
		lastExchange: time.Now(),
		myTurn:       true, // Initially both might try
	}

	return handler, nil
}

// Start starts the multi-peer daemon
func (mpd *MultiPeerDaemon) Start() error {
	if mpd.config.Daemon.ListenAddr != "" {
		var err error
		mpd.listener, err = net.Listen("tcp", mpd.config.Daemon.ListenAddr)
		if err != nil {
			return fmt.Errorf("failed to start listener: %w", err)
		}
		defer func() {
			if err := mpd.listener.Close(); err != nil {
				log.Printf("Error closing listener: %v", err)
			}
		}()
		log.Printf("Multi-peer daemon listening on %s", mpd.config.Daemon.ListenAddr)

		go mpd.handleIncomingConnections()
	} else {
		log.Printf("Multi-peer daemon running in outgoing-only mode (no listener)")
	}

	log.Printf("Managing %d peer(s):", len(mpd.peers))
	for _, peerCfg := range mpd.config.Peers {
		endpoint := peerCfg.Endpoint
		if endpoint == "" {
			endpoint = "incoming-only"
		}
		log.Printf("  - %s: %s (%s)", peerCfg.Name, endpoint, peerCfg.GroupName)
	}

	go mpd.watchdogLoop()

	var wg sync.WaitGroup
	for _, peerCfg := range mpd.config.Peers {
		if peerCfg.Endpoint != "" {
			handler := mpd.peers[peerCfg.Name]
			wg.Add(1)
			go func(h *PeerHandler) {
				defer wg.Done()
				log.Printf("[%s] Starting outgoing connection handler", h.name)
				mpd.runOutgoingPeer(h)
			}(handler)
		}
	}

	if mpd.listener != nil {
		select {}
	}

	wg.Wait()

	return nil
}

// runOutgoingPeer runs the connection loop for a peer we connect to
func (mpd *MultiPeerDaemon) runOutgoingPeer(ph *PeerHandler) {
	interval := time.Duration(ph.config.Interval) * time.Second

	for {
		ph.exchangeMu.Lock()
		shouldInitiate := ph.myTurn || time.Since(ph.lastExchange) > interval*2
		ph.exchangeMu.Unlock()

		if shouldInitiate {
			if err := mpd.initiateHandshake(ph); err != nil {
				log.Printf("[%s] Handshake failed: %v", ph.name, err)
			}
		}

		time.Sleep(interval)
	}
}

// initiateHandshake initiates a key exchange with a peer with retry logic
func (mpd *MultiPeerDaemon) initiateHandshake(ph *PeerHandler) error {
	attemptNum := 0
	maxAttempts := 5

	for attemptNum < maxAttempts {
		if attemptNum > 0 {
			// #nosec G404 - Non-cryptographic randomness acceptable for timing jitter
			jitter := time.Duration(mathRand.Int63n(100)) * time.Millisecond
			waitTime := time.Second + jitter
			log.Printf("[%s] Retry attempt %d after %.3fs...", ph.name, attemptNum, waitTime.Seconds())
			time.Sleep(waitTime)
		}

		attemptNum++
		log.Printf("[%s] Initiating connection to %s (attempt %d/%d)...", ph.name, ph.config.Endpoint, attemptNum, maxAttempts)

		conn, err := net.DialTimeout("tcp", ph.config.Endpoint, 10*time.Second)
		if err != nil {
			log.Printf("[%s] Failed to connect: %v", ph.name, err)
			continue
		}

		log.Printf("[%s] Connected to %s, starting key exchange", ph.name, conn.RemoteAddr())

		err = mpd.runExchangeAsInitiator(conn, ph)
		_ = conn.Close() // Best effort close

		if err != nil {
			log.Printf("[%s] Key exchange failed: %v", ph.name, err)
			continue
		}

		ph.exchangeMu.Lock()
		ph.lastExchange = time.Now()
		ph.myTurn = false // Next time, they should initiate
		ph.exchangeMu.Unlock()

		log.Printf("[%s] Key exchange complete, saved PSK to %s", ph.name, ph.config.OutputPSK)
		return nil
	}

	return fmt.Errorf("failed after %d attempts", maxAttempts)
}

// handleIncomingConnections accepts and routes incoming connections to the appropriate peer handler
func (mpd *MultiPeerDaemon) handleIncomingConnections() {
	for {
		conn, err := mpd.listener.Accept()
		if err != nil {
			log.Printf("Error accepting connection: %v", err)
			continue
		}

		go mpd.routeConnection(conn)
	}
}

// routeConnection identifies which peer is connecting and handles the connection
func (mpd *MultiPeerDaemon) routeConnection(conn net.Conn) {
	defer func() {
		if err := conn.Close(); err != nil {
			log.Printf("Error closing connection: %v", err)
		}
	}()

	log.Printf("Received connection from %s, attempting to identify peer", conn.RemoteAddr())

	if err := mpd.handleIncomingExchange(conn); err != nil {
		log.Printf("Failed to handle incoming exchange from %s: %v", conn.RemoteAddr(), err)
	}
}

// handleIncomingExchange accepts an offer, routes it to the named peer
// handler, and responds. There is no long-term identity key to verify
// the sender against, so routing trusts the peer_name tag the sender
// attached to its offer -- adequate for a demonstration daemon, but not
// a substitute for the authentication a real transport would add.
func (mpd *MultiPeerDaemon) handleIncomingExchange(conn net.Conn) error {
	_ = conn.SetDeadline(time.Now().Add(30 * time.Second))

	data, err := receiveMessage(conn)
	if err != nil {
		return fmt.Errorf("failed to receive offer: %w", err)
	}

	netMsg, err := DeserializeNetworkMsg(data)
	if err != nil {
		return fmt.Errorf("failed to deserialize offer: %w", err)
	}
	if netMsg.Type != "offer" {
		return fmt.Errorf("expected offer, got %s", netMsg.Type)
	}

	var offer offerMsg
	if err := json.Unmarshal(netMsg.Payload, &offer); err != nil {
		return fmt.Errorf("failed to unmarshal offer: %w", err)
	}

	mpd.mu.RLock()
	ph, exists := mpd.peers[offer.PeerName]
	mpd.mu.RUnlock()
	if !exists {
		return fmt.Errorf("unknown peer name '%s'", offer.PeerName)
	}
	if offer.GroupID != ph.groupID {
		return fmt.Errorf("[%s] peer offered group %#x, configured for %#x", ph.name, offer.GroupID, ph.groupID)
	}

	log.Printf("[%s] Identified peer from %s", ph.name, conn.RemoteAddr())

	share, ok := keyshare.Create(ph.groupID)
	if !ok {
		return fmt.Errorf("[%s] group no longer available", ph.name)
	}

	var acceptBuf bytes.Buffer
	secret, alert, err := share.Accept(&acceptBuf, offer.Share)
	if err != nil {
		share.Destroy()
		return fmt.Errorf("[%s] accept failed (alert %s): %w", ph.name, alert, err)
	}

	respData, err := serializeAccept(acceptMsg{Share: acceptBuf.Bytes()})
	if err != nil {
		share.Destroy()
		return fmt.Errorf("failed to serialize accept: %w", err)
	}
	if err := sendMessage(conn, respData); err != nil {
		share.Destroy()
		return fmt.Errorf("failed to send accept: %w", err)
	}

	if err := mpd.saveSharedKey(ph, secret); err != nil {
		share.Destroy()
		return fmt.Errorf("failed to save shared key: %w", err)
	}
	share.Destroy()

	ph.exchangeMu.Lock()
	ph.lastExchange = time.Now()
	ph.myTurn = true // Next time, we should initiate
	ph.exchangeMu.Unlock()

	log.Printf("[%s] Incoming key exchange complete from %s", ph.name, conn.RemoteAddr())
	return nil
}

// runExchangeAsInitiator performs the key exchange as initiator with a specific peer
func (mpd *MultiPeerDaemon) runExchangeAsInitiator(conn net.Conn, ph *PeerHandler) error {
	_ = conn.SetDeadline(time.Now().Add(30 * time.Second))

	share, ok := keyshare.Create(ph.groupID)
	if !ok {
		return fmt.Errorf("group no longer available")
	}

	var offerBuf bytes.Buffer
	if err := share.Offer(&offerBuf); err != nil {
		return fmt.Errorf("failed to build offer: %w", err)
	}

	data, err := serializeOffer(offerMsg{GroupID: ph.groupID, Share: offerBuf.Bytes(), PeerName: ph.name})
	if err != nil {
		return fmt.Errorf("failed to serialize offer: %w", err)
	}
	if err := sendMessage(conn, data); err != nil {
		return fmt.Errorf("failed to send offer: %w", err)
	}

	respData, err := receiveMessage(conn)
	if err != nil {
		return fmt.Errorf("failed to receive accept: %w", err)
	}
	netMsg, err := DeserializeNetworkMsg(respData)
	if err != nil {
		return fmt.Errorf("failed to deserialize accept: %w", err)
	}
	if netMsg.Type != "accept" {
		return fmt.Errorf("expected accept, got %s", netMsg.Type)
	}
	var accept acceptMsg
	if err := json.Unmarshal(netMsg.Payload, &accept); err != nil {
		return fmt.Errorf("failed to unmarshal accept: %w", err)
	}

	secret, alert, err := share.Finish(accept.Share)
	if err != nil {
		share.Destroy()
		return fmt.Errorf("finish failed (alert %s): %w", alert, err)
	}

	err = mpd.saveSharedKey(ph, secret)
	share.Destroy()
	return err
}

// saveSharedKey saves the shared key for a peer
func (mpd *MultiPeerDaemon) saveSharedKey(ph *PeerHandler, sharedKey []byte) error {
	ph.keysMu.Lock()
	ph.sharedKey = sharedKey
	ph.keysMu.Unlock()

	return SaveSharedKeyPSK(ph.config.OutputPSK, sharedKey)
}

// setRandomKey sets a random fallback key for a peer
func (mpd *MultiPeerDaemon) setRandomKey(ph *PeerHandler) {
	randomKey := make([]byte, 32)
	if _, err := rand.Read(randomKey); err != nil {
		log.Printf("[%s] Failed to generate random key: %v", ph.name, err)
		return
	}

	ph.keysMu.Lock()
	ph.sharedKey = randomKey
	ph.keysMu.Unlock()

	if err := SaveSharedKeyPSK(ph.config.OutputPSK, randomKey); err != nil {
		log.Printf("[%s] Failed to save random fallback PSK: %v", ph.name, err)
	} else {
		log.Printf("[%s] Saved random fallback PSK to %s", ph.name, ph.config.OutputPSK)
	}
}

// watchdogLoop monitors all peers for extended connection failures and sets fallback keys
func (mpd *MultiPeerDaemon) watchdogLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		for _, ph := range mpd.peers {
			ph.exchangeMu.Lock()
			elapsed := time.Since(ph.lastExchange)
			interval := time.Duration(ph.config.Interval) * time.Second
			if interval == 0 {
				interval = time.Duration(mpd.config.Daemon.Interval) * time.Second
			}

			finalTimeout := interval + 30*time.Second

			if elapsed > finalTimeout {
				log.Printf("[%s] WARNING: No key exchange for %.0fs (final timeout: %.0fs), setting random fallback key",
					ph.name, elapsed.Seconds(), finalTimeout.Seconds())
				ph.exchangeMu.Unlock()
				mpd.setRandomKey(ph)
				ph.exchangeMu.Lock()
				ph.lastExchange = time.Now()
			}
			ph.exchangeMu.Unlock()
		}
	}
}

// Stop stops all peer daemons gracefully
func (mpd *MultiPeerDaemon) Stop() error {
	mpd.mu.Lock()
	defer mpd.mu.Unlock()

	log.Printf("Stopping multi-peer daemon...")

	if mpd.listener != nil {
		if err := mpd.listener.Close(); err != nil {
			log.Printf("Error closing listener: %v", err)
		}
	}

	for name := range mpd.peers {
		log.Printf("[%s] Stopped", name)
	}

	return nil
}
