package main

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	mathRand "math/rand"
	"net"
	"os"
	"sync"
	"time"

	"github.com/pqtls/kexdispatch/pkg/keyshare"
	"github.com/pqtls/kexdispatch/pkg/namedgroup"
)

// ------------------------ Message Serialization ------------------------

// NetworkMsg wraps all message types for network transmission. A
// direct KeyShare exchange only needs two messages: an "offer" from
// the initiator and an "accept" reply from the responder.
type NetworkMsg struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// offerMsg carries the initiator's public contribution, tagged with
// the named group it belongs to so the responder can construct a
// matching KeyShare without out-of-band negotiation.
type offerMsg struct {
	GroupID uint16 `json:"group_id"`
	Share   []byte `json:"share"`
	// PeerName optionally names the link the sender believes it is
	// using, letting a multi-peer responder route an incoming offer to
	// the right handler without a long-term identity key to compare
	// against. Unused (left empty) in single-peer mode.
	PeerName string `json:"peer_name,omitempty"`
}

// acceptMsg carries the responder's public contribution (or, for a
// pure KEM group, the ciphertext) back to the initiator.
type acceptMsg struct {
	Share []byte `json:"share"`
}

func serializeOffer(m offerMsg) ([]byte, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return json.Marshal(NetworkMsg{Type: "offer", Payload: payload})
}

func serializeAccept(m acceptMsg) ([]byte, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return json.Marshal(NetworkMsg{Type: "accept", Payload: payload})
}

// DeserializeNetworkMsg deserializes a network message
func DeserializeNetworkMsg(data []byte) (*NetworkMsg, error) {
	var msg NetworkMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ------------------------ Shared Key Storage ------------------------

// SaveSharedKeyPSK saves the shared key as base64 to a .psk file
func SaveSharedKeyPSK(filename string, sharedKey []byte) error {
	encoded := base64.StdEncoding.EncodeToString(sharedKey)
	if err := os.WriteFile(filename, []byte(encoded), 0600); err != nil {
		return fmt.Errorf("failed to write PSK file: %w", err)
	}
	return nil
}

// LoadSharedKeyPSK loads a shared key from a .psk file
func LoadSharedKeyPSK(filename string) ([]byte, error) {
	// #nosec G304 - filename comes from config, validated by caller
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read PSK file: %w", err)
	}

	key, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode PSK: %w", err)
	}

	return key, nil
}

// ------------------------ Daemon State ------------------------

// DaemonConfig holds daemon configuration
type DaemonConfig struct {
	ListenAddr  string
	ConnectAddr string
	GroupName   string // named group to exchange over, e.g. "X25519", "p256_kyber512"
	Interval    int    // seconds between exchanges
	PeerName    string // output PSK file path
}

// Daemon represents the running daemon
type Daemon struct {
	config  DaemonConfig
	groupID uint16

	lastExchange time.Time
	myTurn       bool // true if it's our turn to initiate next
	exchangeMu   sync.Mutex

	listener net.Listener

	// Current shared key
	sharedKey []byte
	keysMu    sync.RWMutex

	// Connection state
	inExchange bool      // true if currently in an exchange
	resetTimer chan bool // signal to reset the connection timer
}

// NewDaemon creates a new daemon instance
func NewDaemon(config DaemonConfig) (*Daemon, error) {
	groupID, ok := namedgroup.NameToGroupID(config.GroupName)
	if !ok {
		return nil, fmt.Errorf("unknown named group: %s", config.GroupName)
	}
	if !namedgroup.Available(groupID) {
		return nil, fmt.Errorf("named group %s has no available implementation in this build", config.GroupName)
	}

	d := &Daemon{
		config:       config,
		groupID:      groupID,
		lastExchange: time.Now(),
		resetTimer:   make(chan bool, 10),
		myTurn:       true, // Initially both try, one will win
	}

	return d, nil
}

// Start starts the daemon
func (d *Daemon) Start() error {
	log.Printf("Starting daemon...")
	log.Printf("  Listen: %s", d.config.ListenAddr)
	log.Printf("  Connect: %s", d.config.ConnectAddr)
	log.Printf("  Interval: %ds", d.config.Interval)
	log.Printf("  Group: %s", d.config.GroupName)

	var err error
	d.listener, err = net.Listen("tcp", d.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to start listener: %w", err)
	}
	log.Printf("Listening on %s", d.config.ListenAddr)

	go d.acceptLoop()
	go d.connectLoop()
	go d.watchdogLoop()

	select {}
}

// acceptLoop accepts incoming connections
func (d *Daemon) acceptLoop() {
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			log.Printf("Accept error: %v", err)
			continue
		}
		log.Printf("Accepted connection from %s", conn.RemoteAddr())
		go d.handleResponderRole(conn)
	}
}

// connectLoop periodically connects to peer with role-based timing
func (d *Daemon) connectLoop() {
	// Initial random delay to avoid race conditions
	// #nosec G404 - Non-cryptographic randomness acceptable for timing jitter
	time.Sleep(time.Duration(mathRand.Int63n(2000)) * time.Millisecond)
	d.initiateConnection()

	for {
		d.exchangeMu.Lock()
		isMyTurn := d.myTurn
		d.exchangeMu.Unlock()

		if !isMyTurn {
			log.Printf("Waiting for peer to initiate next exchange...")
			<-d.resetTimer
			log.Printf("Peer initiated exchange, checking if our turn next")
		} else {
			waitTime := time.Duration(d.config.Interval) * time.Second

			drained := 0
			for {
				select {
				case <-d.resetTimer:
					drained++
				default:
					goto drained
				}
			}
		drained:
			if drained > 0 {
				log.Printf("Drained %d stale reset signals", drained)
			}

			log.Printf("Scheduling next attempt in %d seconds (our turn)", d.config.Interval)

			timer := time.NewTimer(waitTime)
			select {
			case <-timer.C:
				d.initiateConnection()
			case <-d.resetTimer:
				timer.Stop()
				log.Printf("Peer initiated before our timer, canceling our attempt")
			}
		}
	}
}

// watchdogLoop monitors for extended connection failures and sets fallback key
func (d *Daemon) watchdogLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		d.exchangeMu.Lock()
		elapsed := time.Since(d.lastExchange)
		interval := time.Duration(d.config.Interval) * time.Second
		finalTimeout := interval + 30*time.Second

		if elapsed > finalTimeout {
			log.Printf("WARNING: No key exchange for %.0fs (final timeout: %.0fs), setting random fallback key", elapsed.Seconds(), finalTimeout.Seconds())
			d.setRandomKey()
			d.lastExchange = time.Now()
			d.exchangeMu.Unlock()
			continue
		}

		d.exchangeMu.Unlock()
	}
}

// initiateConnection connects to peer as initiator with simple retry
func (d *Daemon) initiateConnection() {
	d.exchangeMu.Lock()
	if d.inExchange {
		log.Printf("Skipping connection attempt - peer already initiated")
		d.exchangeMu.Unlock()
		return
	}
	d.inExchange = true
	d.exchangeMu.Unlock()

	defer func() {
		d.exchangeMu.Lock()
		d.inExchange = false
		d.exchangeMu.Unlock()
	}()

	attemptNum := 0
	for {
		if attemptNum > 0 {
			// #nosec G404 - Non-cryptographic randomness acceptable for timing jitter
			jitter := time.Duration(mathRand.Int63n(100)) * time.Millisecond
			waitTime := time.Second + jitter

			log.Printf("Retry attempt %d after %.3fs...", attemptNum, waitTime.Seconds())
			time.Sleep(waitTime)
		}

		attemptNum++
		log.Printf("Initiating connection to %s (attempt %d)...", d.config.ConnectAddr, attemptNum)

		conn, err := net.DialTimeout("tcp", d.config.ConnectAddr, 10*time.Second)
		if err != nil {
			log.Printf("Failed to connect to peer: %v", err)
			continue
		}

		log.Printf("Connected to %s", conn.RemoteAddr())
		err = d.performInitiatorExchange(conn)
		_ = conn.Close() // Best effort close

		if err != nil {
			log.Printf("Initiator exchange failed: %v", err)
			continue
		}

		d.exchangeMu.Lock()
		d.lastExchange = time.Now()
		d.myTurn = false
		d.exchangeMu.Unlock()

		log.Printf("Key exchange complete as initiator (peer's turn next)")
		return
	}
}

// performInitiatorExchange drives a KeyShare through Offer then Finish
// against a single peer connection.
func (d *Daemon) performInitiatorExchange(conn net.Conn) error {
	_ = conn.SetDeadline(time.Now().Add(30 * time.Second)) // Best effort

	share, ok := keyshare.Create(d.groupID)
	if !ok {
		return fmt.Errorf("group %s is no longer available", d.config.GroupName)
	}

	var offerBuf bytes.Buffer
	if err := share.Offer(&offerBuf); err != nil {
		return fmt.Errorf("failed to build offer: %w", err)
	}

	data, err := serializeOffer(offerMsg{GroupID: d.groupID, Share: offerBuf.Bytes()})
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

	d.updateKey(secret, false)
	share.Destroy()
	return nil
}

// handleResponderRole handles incoming connection as responder
func (d *Daemon) handleResponderRole(conn net.Conn) {
	defer func() { _ = conn.Close() }() // Best effort close

	d.exchangeMu.Lock()
	if d.inExchange {
		// Race condition: both sides are trying to initiate. Without a
		// persistent identity key there is nothing to compare but the
		// addresses both sides already agree on; the lexicographically
		// lower listen address continues as initiator.
		shouldBackoff := d.config.ListenAddr > d.config.ConnectAddr

		if !shouldBackoff {
			d.exchangeMu.Unlock()
			log.Printf("Simultaneous connection attempt - continuing as initiator (lower address)")
			return
		}

		log.Printf("Simultaneous connection attempt - backing off to become responder (higher address)")
	} else {
		d.inExchange = true
	}
	d.exchangeMu.Unlock()

	defer func() {
		d.exchangeMu.Lock()
		d.inExchange = false
		d.exchangeMu.Unlock()
	}()

	_ = conn.SetDeadline(time.Now().Add(30 * time.Second)) // Best effort deadline

	if err := d.performResponderExchange(conn); err != nil {
		log.Printf("Responder exchange failed: %v", err)
		return
	}

	d.exchangeMu.Lock()
	d.lastExchange = time.Now()
	d.myTurn = true
	d.exchangeMu.Unlock()

	select {
	case d.resetTimer <- true:
	default:
	}

	log.Printf("Key exchange complete as responder (our turn in %ds)", d.config.Interval)
}

// performResponderExchange drives a KeyShare through Accept against a
// single incoming offer.
func (d *Daemon) performResponderExchange(conn net.Conn) error {
	_ = conn.SetDeadline(time.Now().Add(30 * time.Second)) // Best effort deadline

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
	if offer.GroupID != d.groupID {
		return fmt.Errorf("peer offered group %#x, we are configured for %#x", offer.GroupID, d.groupID)
	}

	share, ok := keyshare.Create(d.groupID)
	if !ok {
		return fmt.Errorf("group %s is no longer available", d.config.GroupName)
	}

	var acceptBuf bytes.Buffer
	secret, alert, err := share.Accept(&acceptBuf, offer.Share)
	if err != nil {
		share.Destroy()
		return fmt.Errorf("accept failed (alert %s): %w", alert, err)
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

	d.updateKey(secret, false)
	share.Destroy()
	return nil
}

// updateKey updates the daemon's shared key and saves to disk
func (d *Daemon) updateKey(sharedKey []byte, isRandom bool) {
	d.keysMu.Lock()
	d.sharedKey = sharedKey
	d.keysMu.Unlock()

	pskFile := d.config.PeerName
	if err := SaveSharedKeyPSK(pskFile, sharedKey); err != nil {
		log.Printf("Failed to save PSK: %v", err)
	} else {
		if isRandom {
			log.Printf("Saved random fallback PSK to %s", pskFile)
		} else {
			log.Printf("Saved shared PSK to %s", pskFile)
		}
	}
}

// setRandomKey sets a random fallback key
func (d *Daemon) setRandomKey() {
	randomKey := make([]byte, 32)
	if _, err := rand.Read(randomKey); err != nil {
		panic(err)
	}
	d.updateKey(randomKey, true)
}

// sendMessage sends a length-prefixed message
func sendMessage(conn net.Conn, data []byte) error {
	dataLen := len(data)
	if dataLen > 10*1024*1024 { // 10MB max
		return fmt.Errorf("message too large: %d bytes", dataLen)
	}
	length := uint32(dataLen) // #nosec G115 - validated above
	lengthBuf := []byte{
		byte(length >> 24),
		byte(length >> 16),
		byte(length >> 8),
		byte(length),
	}

	if _, err := conn.Write(lengthBuf); err != nil {
		return err
	}
	if _, err := conn.Write(data); err != nil {
		return err
	}
	return nil
}

// receiveMessage receives a length-prefixed message
func receiveMessage(conn net.Conn) ([]byte, error) {
	lengthBuf := make([]byte, 4)
	if _, err := io.ReadFull(conn, lengthBuf); err != nil {
		return nil, err
	}

	length := uint32(lengthBuf[0])<<24 | uint32(lengthBuf[1])<<16 | uint32(lengthBuf[2])<<8 | uint32(lengthBuf[3])

	if length > 10*1024*1024 { // 10MB max
		return nil, fmt.Errorf("message too large: %d bytes", length)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(conn, data); err != nil {
		return nil, err
	}

	return data, nil
}
