// The migrate command applies schema migrations and repairs the search
// mirror. Unlike the API server, a mirror failure here is fatal: this is the
// operator-invoked repair pass the server defers to when its own best-effort
// Ensure fails.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"tusach/internal/searchindex"
	"tusach/pkg/config"
	"tusach/pkg/database"
)

func main() {
	force := flag.Bool("rebuild-index", false, "force a full search-mirror rebuild even if it looks healthy")
	flag.Parse()

	cfg := config.MustLoad()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db := database.MustOpen(cfg.DBPath)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}
	log.Println("schema migrations applied")

	if *force {
		if err := searchindex.Rebuild(ctx, db); err != nil {
			log.Fatalf("search mirror rebuild failed: %v", err)
		}
		log.Println("search mirror rebuilt (forced)")
		return
	}

	res, err := searchindex.Ensure(ctx, db)
	if err != nil {
		log.Fatalf("search mirror repair failed: %v", err)
	}
	switch {
	case res.BooksTableMissing:
		log.Println("books table missing; nothing to index")
	case res.Rebuilt:
		log.Println("search mirror rebuilt")
	default:
		log.Println("search mirror healthy")
	}
}
