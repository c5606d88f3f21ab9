package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/mdlayher/vsock"

	"github.com/cloudx-io/bidvault/engine"
	"github.com/cloudx-io/bidvault/hostapi"
	"github.com/cloudx-io/bidvault/receipts"
	"github.com/cloudx-io/bidvault/store"
	pebblestore "github.com/cloudx-io/bidvault/store/pebble"
)

// Server hosts the auction engine behind a one-request-per-connection JSON
// protocol, over TCP or (for enclave deployments) vsock.
type Server struct {
	engine *engine.Engine
	signer *receipts.Signer
}

func NewServer(eng *engine.Engine, signer *receipts.Signer) *Server {
	return &Server{engine: eng, signer: signer}
}

func (s *Server) Serve(listener net.Listener, maxWorkers int) error {
	defer func() {
		if err := listener.Close(); err != nil {
			log.Printf("ERROR: Failed to close listener: %v", err)
		}
	}()

	log.Printf("INFO: bidvault server listening on %s", listener.Addr())

	semaphore := make(chan struct{}, maxWorkers)
	log.Printf("INFO: Worker pool initialized with %d max concurrent workers", maxWorkers)

	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Printf("ERROR: Failed to accept connection: %v", err)
			continue
		}

		// Acquire worker slot - immediate rejection if pool full
		select {
		case semaphore <- struct{}{}:
			go func(c net.Conn) {
				defer func() { <-semaphore }() // Release worker slot
				s.handleConnection(c)
			}(conn)
		default:
			log.Printf("INFO: No workers available, rejecting connection (pool full)")
			if err := conn.Close(); err != nil {
				log.Printf("ERROR: Failed to close rejected connection: %v", err)
			}
		}
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: Panic recovered in handleConnection: %v", r)
		}
		if err := conn.Close(); err != nil {
			log.Printf("ERROR: Failed to close connection: %v", err)
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, conn); err != nil {
		log.Printf("ERROR: Failed to read request: %v", err)
		return
	}

	response := s.handleRequest(buf.Bytes())

	encoder := json.NewEncoder(conn)
	if err := encoder.Encode(response); err != nil {
		log.Printf("ERROR: Failed to encode response: %v", err)
	}
}

// handleRequest decodes the base request, dispatches on its type, and
// returns the response document.
func (s *Server) handleRequest(raw []byte) any {
	var baseReq struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &baseReq); err != nil {
		log.Printf("ERROR: Failed to decode base request: %v", err)
		return hostapi.ErrorResponse{Type: "error", Message: fmt.Sprintf("Failed to decode request: %v", err)}
	}

	log.Printf("INFO: Received request type: %s", baseReq.Type)

	switch baseReq.Type {
	case hostapi.TypePing:
		return hostapi.PingResponse{
			Type:      "pong",
			Message:   "bidvault server is healthy",
			Timestamp: time.Now().Unix(),
		}

	case hostapi.TypeInstantiate:
		var req hostapi.InstantiateRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return hostapi.ErrorResponse{Type: "error", Message: fmt.Sprintf("Failed to decode instantiate request: %v", err)}
		}
		return s.handleInstantiate(req)

	case hostapi.TypeExecute:
		var req hostapi.ExecuteRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return hostapi.ErrorResponse{Type: "error", Message: fmt.Sprintf("Failed to decode execute request: %v", err)}
		}
		return s.handleExecute(req)

	case hostapi.TypeQuery:
		var req hostapi.QueryRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return hostapi.ErrorResponse{Type: "error", Message: fmt.Sprintf("Failed to decode query request: %v", err)}
		}
		return s.handleQuery(req)

	default:
		return hostapi.ErrorResponse{Type: "error", Message: fmt.Sprintf("Unknown request type: %s", baseReq.Type)}
	}
}

// Helper function for required environment variable parsing
func getRequiredEnvInt(key string) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return 0, fmt.Errorf("required environment variable %s is not set", key)
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %s (must be a valid integer)", key, value)
	}

	log.Printf("INFO: Using %s=%d from environment", key, intValue)
	return intValue, nil
}

func getRequiredEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("required environment variable %s is not set", key)
	}
	return value, nil
}

func openListener() (net.Listener, error) {
	if port := os.Getenv("BIDVAULT_VSOCK_PORT"); port != "" {
		p, err := strconv.ParseUint(port, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid BIDVAULT_VSOCK_PORT %q: %w", port, err)
		}
		return vsock.Listen(uint32(p), nil)
	}

	addr := os.Getenv("BIDVAULT_LISTEN_ADDR")
	if addr == "" {
		addr = ":5000"
	}
	return net.Listen("tcp", addr)
}

func openStore() (store.KV, error) {
	dataDir := os.Getenv("BIDVAULT_DATA_DIR")
	if dataDir == "" {
		log.Printf("INFO: BIDVAULT_DATA_DIR not set, using in-memory store")
		return store.NewMemory(), nil
	}
	log.Printf("INFO: Opening pebble store at %s", dataDir)
	return pebblestore.Open(dataDir)
}

func run() error {
	selfAddr, err := getRequiredEnv("BIDVAULT_SELF_ADDR")
	if err != nil {
		return err
	}

	maxWorkers, err := getRequiredEnvInt("BIDVAULT_MAX_WORKERS")
	if err != nil {
		return err
	}

	kv, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	eng := engine.NewEngine(kv, selfAddr, nil)

	var signer *receipts.Signer
	if os.Getenv("BIDVAULT_SIGN_RECEIPTS") == "1" {
		key, err := receipts.GenerateSigningKey()
		if err != nil {
			return fmt.Errorf("failed to generate receipt key: %w", err)
		}
		signer, err = receipts.NewSigner(key)
		if err != nil {
			return err
		}
		log.Printf("INFO: Receipt signing enabled")
	}

	listener, err := openListener()
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	server := NewServer(eng, signer)
	return server.Serve(listener, maxWorkers)
}

func main() {
	log.Fatal(run())
}
