// sync-client tails bookmark events from the sync hub, either over the raw
// TCP feed or the /ws WebSocket endpoint, and prints them to stdout.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type AnyEvent map[string]any

func main() {
	addr := flag.String("addr", "127.0.0.1:7070", "TCP sync server address")
	wsURL := flag.String("ws", "", "WebSocket URL (e.g. ws://127.0.0.1:8080/ws); overrides -addr")
	pretty := flag.Bool("pretty", true, "pretty print JSON events")
	flag.Parse()

	for {
		var err error
		if *wsURL != "" {
			err = runWS(*wsURL, *pretty)
		} else {
			err = runTCP(*addr, *pretty)
		}
		if err != nil {
			log.Printf("[sync-client] disconnected: %v", err)
		}
		time.Sleep(1 * time.Second) // auto reconnect
	}
}

func runTCP(addr string, pretty bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[sync-client] connected to %s", addr)

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		printEvent(sc.Bytes(), pretty)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

func runWS(url string, pretty bool) error {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()

	log.Printf("[sync-client] connected to %s", url)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		printEvent(msg, pretty)
	}
}

func printEvent(line []byte, pretty bool) {
	if !pretty {
		fmt.Println(string(line))
		return
	}

	var obj AnyEvent
	if err := json.Unmarshal(line, &obj); err != nil {
		// not JSON? print raw
		fmt.Println(string(line))
		return
	}

	b, _ := json.MarshalIndent(obj, "", "  ")
	fmt.Println(string(b))
}
