package main

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"sync"
	"testing"
	"time"
)

// getFreePort asks the kernel for a free open port that is ready to use
func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer func() { _ = l.Close() }() // Best effort close
	return l.Addr().(*net.TCPAddr).Port, nil
}

// testSimultaneousStartWithPorts is the core test function that accepts custom ports
func testSimultaneousStartWithPorts(t *testing.T, alicePort, bobPort string) {
	tmpDir := t.TempDir()

	aliceConfig := DaemonConfig{
		ListenAddr:  "127.0.0.1:" + alicePort,
		ConnectAddr: "127.0.0.1:" + bobPort,
		GroupName:   "X25519",
		Interval:    5,
		PeerName:    tmpDir + "/alice.psk",
	}

	bobConfig := DaemonConfig{
		ListenAddr:  "127.0.0.1:" + bobPort,
		ConnectAddr: "127.0.0.1:" + alicePort,
		GroupName:   "X25519",
		Interval:    5,
		PeerName:    tmpDir + "/bob.psk",
	}

	alice, err := NewDaemon(aliceConfig)
	if err != nil {
		t.Fatalf("Failed to create Alice daemon: %v", err)
	}

	bob, err := NewDaemon(bobConfig)
	if err != nil {
		t.Fatalf("Failed to create Bob daemon: %v", err)
	}

	alice.listener, err = net.Listen("tcp", aliceConfig.ListenAddr)
	if err != nil {
		t.Fatalf("Failed to start Alice listener: %v", err)
	}
	defer func() { _ = alice.listener.Close() }() // Best effort close

	bob.listener, err = net.Listen("tcp", bobConfig.ListenAddr)
	if err != nil {
		t.Fatalf("Failed to start Bob listener: %v", err)
	}
	defer func() { _ = bob.listener.Close() }() // Best effort close

	go func() {
		for {
			conn, err := alice.listener.Accept()
			if err != nil {
				return // Listener closed
			}
			go alice.handleResponderRole(conn)
		}
	}()
	go func() {
		for {
			conn, err := bob.listener.Accept()
			if err != nil {
				return // Listener closed
			}
			go bob.handleResponderRole(conn)
		}
	}()

	var wg sync.WaitGroup
	wg.Add(2)

	aliceDone := make(chan bool, 1)
	bobDone := make(chan bool, 1)

	go func() {
		defer wg.Done()
		for {
			alice.keysMu.RLock()
			hasKey := len(alice.sharedKey) > 0
			alice.keysMu.RUnlock()

			if hasKey {
				select {
				case aliceDone <- true:
				default:
				}
				return
			}

			alice.exchangeMu.Lock()
			if !alice.inExchange {
				alice.exchangeMu.Unlock()
				alice.initiateConnection()
			} else {
				alice.exchangeMu.Unlock()
				time.Sleep(100 * time.Millisecond)
			}
		}
	}()

	go func() {
		defer wg.Done()
		for {
			bob.keysMu.RLock()
			hasKey := len(bob.sharedKey) > 0
			bob.keysMu.RUnlock()

			if hasKey {
				select {
				case bobDone <- true:
				default:
				}
				return
			}

			bob.exchangeMu.Lock()
			if !bob.inExchange {
				bob.exchangeMu.Unlock()
				bob.initiateConnection()
			} else {
				bob.exchangeMu.Unlock()
				time.Sleep(100 * time.Millisecond)
			}
		}
	}()

	timeout := time.After(10 * time.Second)
	aliceReady := false
	bobReady := false

	for !aliceReady || !bobReady {
		select {
		case <-aliceDone:
			aliceReady = true
		case <-bobDone:
			bobReady = true
		case <-timeout:
			t.Fatal("Test timeout: daemons did not complete key exchange within 10 seconds")
		}
	}

	time.Sleep(200 * time.Millisecond)

	wg.Wait()

	alice.keysMu.RLock()
	aliceHasKey := len(alice.sharedKey) > 0
	aliceKey := make([]byte, len(alice.sharedKey))
	copy(aliceKey, alice.sharedKey)
	alice.keysMu.RUnlock()

	bob.keysMu.RLock()
	bobHasKey := len(bob.sharedKey) > 0
	bobKey := make([]byte, len(bob.sharedKey))
	copy(bobKey, bob.sharedKey)
	bob.keysMu.RUnlock()

	if !aliceHasKey {
		t.Error("Alice did not generate a shared key")
	}
	if !bobHasKey {
		t.Error("Bob did not generate a shared key")
	}

	if !bytes.Equal(aliceKey, bobKey) {
		t.Error("Shared keys do not match between Alice and Bob")
	}

	alicePSK, err := LoadSharedKeyPSK(aliceConfig.PeerName)
	if err != nil {
		t.Errorf("Failed to load Alice's PSK: %v", err)
	}

	bobPSK, err := LoadSharedKeyPSK(bobConfig.PeerName)
	if err != nil {
		t.Errorf("Failed to load Bob's PSK: %v", err)
	}

	if !bytes.Equal(alicePSK, bobPSK) {
		t.Error("PSK files do not match between Alice and Bob")
	}

	if !bytes.Equal(alicePSK, aliceKey) {
		t.Error("Alice's PSK file does not match her in-memory key")
	}

	t.Logf("Successfully completed simultaneous start test")
	t.Logf("Alice's turn next: %v", alice.myTurn)
	t.Logf("Bob's turn next: %v", bob.myTurn)

	alice.exchangeMu.Lock()
	aliceTurn := alice.myTurn
	alice.exchangeMu.Unlock()

	bob.exchangeMu.Lock()
	bobTurn := bob.myTurn
	bob.exchangeMu.Unlock()

	if aliceTurn == bobTurn {
		t.Error("Both daemons have the same myTurn value - they should alternate")
	}
}

// TestSimultaneousStart tests that two daemons can start simultaneously without race conditions
func TestSimultaneousStart(t *testing.T) {
	alicePort, err := getFreePort()
	if err != nil {
		t.Fatalf("Failed to get free port for Alice: %v", err)
	}
	bobPort, err := getFreePort()
	if err != nil {
		t.Fatalf("Failed to get free port for Bob: %v", err)
	}

	testSimultaneousStartWithPorts(t, fmt.Sprintf("%d", alicePort), fmt.Sprintf("%d", bobPort))
}

// TestMultipleSimultaneousStarts runs the simultaneous start test 5 times sequentially
// to catch race conditions that might not appear every time
func TestMultipleSimultaneousStarts(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping multiple simultaneous starts test in short mode")
	}

	for i := 1; i <= 5; i++ {
		t.Run(fmt.Sprintf("Attempt%d", i), func(t *testing.T) {
			alicePort, err := getFreePort()
			if err != nil {
				t.Fatalf("Failed to get free port for Alice: %v", err)
			}
			bobPort, err := getFreePort()
			if err != nil {
				t.Fatalf("Failed to get free port for Bob: %v", err)
			}

			testSimultaneousStartWithPorts(t, fmt.Sprintf("%d", alicePort), fmt.Sprintf("%d", bobPort))
		})
	}
}

// TestSetRandomKey tests the random key fallback functionality
func TestSetRandomKey(t *testing.T) {
	tmpDir := t.TempDir()

	config := DaemonConfig{
		ListenAddr:  "127.0.0.1:0",
		ConnectAddr: "127.0.0.1:0",
		GroupName:   "X25519",
		Interval:    5,
		PeerName:    tmpDir + "/test.psk",
	}

	daemon, err := NewDaemon(config)
	if err != nil {
		t.Fatalf("Failed to create daemon: %v", err)
	}

	daemon.setRandomKey()

	daemon.keysMu.RLock()
	hasKey := len(daemon.sharedKey) > 0
	keyLen := len(daemon.sharedKey)
	daemon.keysMu.RUnlock()

	if !hasKey {
		t.Error("setRandomKey did not set a shared key")
	}
	if keyLen != 32 {
		t.Errorf("Expected random key length of 32 bytes, got %d", keyLen)
	}

	pskData, err := LoadSharedKeyPSK(config.PeerName)
	if err != nil {
		t.Errorf("Failed to load PSK file: %v", err)
	}
	if len(pskData) != 32 {
		t.Errorf("Expected PSK file to contain 32 bytes, got %d", len(pskData))
	}
}

// TestUpdateKey tests the updateKey function
func TestUpdateKey(t *testing.T) {
	tmpDir := t.TempDir()

	config := DaemonConfig{
		ListenAddr:  "127.0.0.1:0",
		ConnectAddr: "127.0.0.1:0",
		GroupName:   "X25519",
		Interval:    5,
		PeerName:    tmpDir + "/test.psk",
	}

	daemon, err := NewDaemon(config)
	if err != nil {
		t.Fatalf("Failed to create daemon: %v", err)
	}

	testKey := []byte("this is a test shared key 123")
	daemon.updateKey(testKey, false)

	daemon.keysMu.RLock()
	storedKey := make([]byte, len(daemon.sharedKey))
	copy(storedKey, daemon.sharedKey)
	daemon.keysMu.RUnlock()

	if !bytes.Equal(storedKey, testKey) {
		t.Error("updateKey did not store the key correctly")
	}

	pskData, err := LoadSharedKeyPSK(config.PeerName)
	if err != nil {
		t.Errorf("Failed to load PSK file: %v", err)
	}
	if !bytes.Equal(pskData, testKey) {
		t.Error("PSK file does not match the key")
	}

	randomKey := []byte("random fallback key 1234567890")
	daemon.updateKey(randomKey, true)

	daemon.keysMu.RLock()
	storedKey2 := make([]byte, len(daemon.sharedKey))
	copy(storedKey2, daemon.sharedKey)
	daemon.keysMu.RUnlock()

	if !bytes.Equal(storedKey2, randomKey) {
		t.Error("updateKey with random flag did not store the key correctly")
	}
}

// TestSendMessageSizeLimit tests that sendMessage works for normal messages
func TestSendMessageSizeLimit(t *testing.T) {
	reader, writer := net.Pipe()
	defer func() { _ = reader.Close() }() // Best effort close
	defer func() { _ = writer.Close() }() // Best effort close

	smallMsg := make([]byte, 1000)

	done := make(chan error, 1)
	go func() {
		done <- sendMessage(writer, smallMsg)
	}()

	receivedMsg, err := receiveMessage(reader)
	if err != nil {
		t.Errorf("receiveMessage failed: %v", err)
	}

	if !bytes.Equal(receivedMsg, smallMsg) {
		t.Error("Received message does not match sent message")
	}

	if sendErr := <-done; sendErr != nil {
		t.Errorf("sendMessage failed: %v", sendErr)
	}
}

// TestReceiveMessageSizeLimit tests that receiveMessage rejects oversized messages
func TestReceiveMessageSizeLimit(t *testing.T) {
	reader, writer := net.Pipe()
	defer func() { _ = reader.Close() }() // Best effort close
	defer func() { _ = writer.Close() }() // Best effort close

	go func() {
		largeSizeBytes := []byte{0x00, 0xA8, 0xC0, 0x00} // 11,059,200 bytes
		_, _ = writer.Write(largeSizeBytes)              // Best effort write
	}()

	_, err := receiveMessage(reader)
	if err == nil {
		t.Error("Expected error for oversized message, got nil")
	}
}

// TestDeserializeNetworkMsgError tests error handling in message deserialization
func TestDeserializeNetworkMsgError(t *testing.T) {
	_, err := DeserializeNetworkMsg([]byte("not valid json"))
	if err == nil {
		t.Error("Expected error for invalid JSON, got nil")
	}

	_, err = DeserializeNetworkMsg([]byte{})
	if err == nil {
		t.Error("Expected error for empty data, got nil")
	}
}

// TestLoadSharedKeyPSKError tests error handling in LoadSharedKeyPSK
func TestLoadSharedKeyPSKError(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("FileNotExist", func(t *testing.T) {
		_, err := LoadSharedKeyPSK(tmpDir + "/nonexistent.psk")
		if err == nil {
			t.Error("Expected error for non-existent file, got nil")
		}
	})

	t.Run("InvalidBase64", func(t *testing.T) {
		invalidFile := tmpDir + "/invalid.psk"
		_ = os.WriteFile(invalidFile, []byte("not-valid-base64!!!"), 0600)
		_, err := LoadSharedKeyPSK(invalidFile)
		if err == nil {
			t.Error("Expected error for invalid base64, got nil")
		}
	})
}

// TestNewDaemonErrors tests error handling in NewDaemon
func TestNewDaemonErrors(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("UnknownGroup", func(t *testing.T) {
		config := DaemonConfig{
			ListenAddr:  "127.0.0.1:0",
			ConnectAddr: "127.0.0.1:0",
			GroupName:   "not-a-real-group",
			Interval:    5,
			PeerName:    tmpDir + "/test.psk",
		}

		_, err := NewDaemon(config)
		if err == nil {
			t.Error("Expected error for unknown group, got nil")
		}
	})

	t.Run("UnavailableGroup", func(t *testing.T) {
		config := DaemonConfig{
			ListenAddr:  "127.0.0.1:0",
			ConnectAddr: "127.0.0.1:0",
			GroupName:   "sidhp751",
			Interval:    5,
			PeerName:    tmpDir + "/test.psk",
		}

		_, err := NewDaemon(config)
		if err == nil {
			t.Error("Expected error for unavailable group, got nil")
		}
	})
}
