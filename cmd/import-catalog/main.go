package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"repackhub/internal/catalog"
	"repackhub/pkg/database"
)

// catalogFile is the JSON document this tool seeds the sqlite reference
// tables from:
//
//	{
//	  "entries":     [{"id": "220", "name": "Half-Life 2"}, ...],
//	  "titleHashes": {"<sha256 hex>": ["220"], ...}
//	}
type catalogFile struct {
	Entries     []catalog.Entry          `json:"entries"`
	TitleHashes catalog.TitleHashMapping `json:"titleHashes"`
}

func main() {
	var in = flag.String("in", "data/catalog.json", "input JSON path for the reference catalog")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	b, err := os.ReadFile(*in)
	if err != nil {
		log.Fatalf("read %s: %v", *in, err)
	}

	var file catalogFile
	if err := json.Unmarshal(b, &file); err != nil {
		log.Fatalf("decode %s: %v", *in, err)
	}

	repo := catalog.NewRepo(db)

	if err := repo.SaveEntries(ctx, file.Entries); err != nil {
		log.Fatalf("save catalog entries: %v", err)
	}
	log.Printf("imported %d catalog entries", len(file.Entries))

	if err := repo.SaveTitleHashes(ctx, file.TitleHashes); err != nil {
		log.Fatalf("save title hashes: %v", err)
	}
	log.Printf("imported %d title hashes", len(file.TitleHashes))
}
