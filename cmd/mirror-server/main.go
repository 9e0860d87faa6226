// mirror-server serves a locally mirrored "thuquan" collection so ingestion
// can be exercised without hitting any live upstream. The payload file uses
// the shape internal/crawler.ThuQuan expects.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
)

func main() {
	addr := flag.String("addr", ":9000", "listen address")
	dataPath := flag.String("data", "data/mirror.json", "mirrored collection JSON")
	flag.Parse()

	http.HandleFunc("/books", func(w http.ResponseWriter, r *http.Request) {
		b, err := os.ReadFile(*dataPath)
		if err != nil {
			http.Error(w, "cannot read mirror data: "+err.Error(), http.StatusInternalServerError)
			return
		}
		// Validate so a corrupt file fails loudly instead of breaking the
		// crawler's decoder halfway through.
		var tmp any
		if err := json.Unmarshal(b, &tmp); err != nil {
			http.Error(w, "mirror data invalid JSON: "+err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(b)
	})

	log.Printf("mirror-server listening on %s", *addr)
	log.Fatal(http.ListenAndServe(*addr, nil))
}
