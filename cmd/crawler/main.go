// The crawler command ingests every configured upstream collection, merges
// the results, persists them to the catalog, and pushes UDP new-chapter
// notifications for books that grew.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net"
	"time"

	"tusach/internal/crawler"
	"tusach/internal/notify"
	"tusach/pkg/config"
	"tusach/pkg/database"
)

func main() {
	timeout := flag.Duration("timeout", 2*time.Minute, "overall run timeout")
	notifyAddr := flag.String("notify", "", "UDP notify server address (empty: skip notifications)")
	flag.Parse()

	cfg := config.MustLoad()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db := database.MustOpen(cfg.DBPath)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	agg := crawler.NewAggregator(
		crawler.NewTruyenFull(),
		crawler.NewThuQuan(cfg.MirrorURL),
	)

	entries, err := agg.FetchAndMerge(ctx)
	if err != nil {
		log.Fatalf("fetch failed: %v", err)
	}
	log.Printf("[crawler] merged %d books", len(entries))

	updates, err := crawler.Persist(ctx, db, entries)
	if err != nil {
		log.Fatalf("persist failed: %v", err)
	}
	log.Printf("[crawler] persisted; %d books grew", len(updates))

	if *notifyAddr != "" && len(updates) > 0 {
		pushNotifications(*notifyAddr, updates)
	}
}

// pushNotifications sends new_chapter datagrams straight to the notify
// server's port, which relays to its registered clients.
func pushNotifications(addr string, updates []crawler.ChapterUpdate) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		log.Printf("[crawler] notify dial failed: %v", err)
		return
	}
	defer conn.Close()

	for _, u := range updates {
		payload, err := json.Marshal(notify.NewChapterMessage{
			Type:     notify.NewChapterMessageType,
			BookID:   u.BookID,
			BookSlug: u.Slug,
			Chapter:  u.Chapters,
		})
		if err != nil {
			continue
		}
		if _, err := conn.Write(payload); err != nil {
			log.Printf("[crawler] notify send failed: %v", err)
			return
		}
	}
}
