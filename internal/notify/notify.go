// Package notify pushes new-chapter messages to registered UDP clients.
// Clients register by sending a JSON register datagram; the crawler drives
// the pushes after each ingestion run.
package notify

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"sync"
)

const (
	RegisterMessageType   = "register"
	NewChapterMessageType = "new_chapter"
)

type RegisterMessage struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

type NewChapterMessage struct {
	Type     string `json:"type"`
	BookID   int64  `json:"book_id"`
	BookSlug string `json:"book_slug"`
	Chapter  int64  `json:"chapter"`
}

type Client struct {
	UserID string
	Addr   *net.UDPAddr
}

type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

func (r *Registry) Register(userID string, addr *net.UDPAddr) {
	if userID == "" || addr == nil {
		return
	}
	r.mu.Lock()
	r.clients[userID] = Client{UserID: userID, Addr: addr}
	r.mu.Unlock()
}

func (r *Registry) Remove(userID string) {
	r.mu.Lock()
	delete(r.clients, userID)
	r.mu.Unlock()
}

func (r *Registry) Snapshot() []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clients := make([]Client, 0, len(r.clients))
	for _, client := range r.clients {
		clients = append(clients, client)
	}
	return clients
}

type Server struct {
	addr     string
	registry *Registry
	logger   *log.Logger
	conn     *net.UDPConn
}

func NewServer(addr string, registry *Registry, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{addr: addr, registry: registry, logger: logger}
}

func (s *Server) Run() error {
	udpAddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	s.conn = conn
	defer conn.Close()

	s.logger.Printf("[notify] UDP server listening on %s", s.addr)

	buffer := make([]byte, 2048)
	for {
		n, addr, err := conn.ReadFromUDP(buffer)
		if err != nil {
			return err
		}

		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(buffer[:n], &head); err != nil {
			s.logger.Printf("[notify] invalid UDP message from %s: %v", addr, err)
			continue
		}

		switch head.Type {
		case RegisterMessageType:
			msg, err := parseRegisterMessage(buffer[:n])
			if err != nil {
				s.logger.Printf("[notify] invalid register from %s: %v", addr, err)
				continue
			}
			s.registry.Register(msg.UserID, addr)
			s.logger.Printf("[notify] registered UDP client %s (%s)", msg.UserID, addr)
		case NewChapterMessageType:
			// Relayed by the crawler after an ingestion run.
			var msg NewChapterMessage
			if err := json.Unmarshal(buffer[:n], &msg); err != nil {
				s.logger.Printf("[notify] invalid new_chapter from %s: %v", addr, err)
				continue
			}
			s.BroadcastNewChapter(msg.BookID, msg.BookSlug, msg.Chapter)
		}
	}
}

// BroadcastNewChapter tells every registered client that bookSlug now has
// chapters up to the given index.
func (s *Server) BroadcastNewChapter(bookID int64, bookSlug string, chapter int64) {
	if s.conn == nil {
		s.logger.Printf("[notify] UDP server not running")
		return
	}
	payload, err := json.Marshal(NewChapterMessage{
		Type:     NewChapterMessageType,
		BookID:   bookID,
		BookSlug: bookSlug,
		Chapter:  chapter,
	})
	if err != nil {
		s.logger.Printf("[notify] failed to marshal broadcast: %v", err)
		return
	}

	for _, client := range s.registry.Snapshot() {
		s.sendWithRetry(client, payload)
	}
}

// sendWithRetry tries twice, then drops the client from the registry.
func (s *Server) sendWithRetry(client Client, payload []byte) {
	if err := s.sendOnce(client, payload); err == nil {
		return
	}
	if err := s.sendOnce(client, payload); err != nil {
		s.logger.Printf("[notify] failed to notify user %s at %s: %v", client.UserID, client.Addr, err)
		s.registry.Remove(client.UserID)
	}
}

func (s *Server) sendOnce(client Client, payload []byte) error {
	if client.Addr == nil {
		return errors.New("missing client address")
	}
	_, err := s.conn.WriteToUDP(payload, client.Addr)
	return err
}

func parseRegisterMessage(data []byte) (RegisterMessage, error) {
	var msg RegisterMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, err
	}
	if msg.UserID == "" || msg.Type == "" {
		return msg, errors.New("missing required fields")
	}
	return msg, nil
}
