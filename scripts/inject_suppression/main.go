// inject_suppression seeds an active alert-suppression window into suppress.db
// for smoke testing the chat cooldown. It is a standalone tool — not part of
// the module's test suite.
//
// Usage:
//
//	go run scripts/inject_suppression/main.go --db /var/lib/tabinspect/suppress.db \
//	    --inspector id-format --dataset users --window 30m
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"time"

	bolt "go.etcd.io/bbolt"
)

// suppressKey mirrors the key format the cooldown sink writes in
// pkg/sink/cooldown.go: inspector and dataset label joined with a pipe.
func suppressKey(inspector, dataset string) string {
	return inspector + "|" + dataset
}

// expiryValue encodes an expiry timestamp the way internal/suppress/bolt.go
// stores it: eight bytes, big-endian, unix seconds.
func expiryValue(expiry time.Time) []byte {
	v := make([]byte, 8)
	binary.BigEndian.PutUint64(v, uint64(expiry.Unix()))
	return v
}

func requireFlag(name, value string) {
	if value == "" {
		log.Fatalf("--%s is required", name)
	}
}

func main() {
	dbPath := flag.String("db", "", "Path to suppress.db (required)")
	inspector := flag.String("inspector", "", "Inspector name to suppress (required)")
	dataset := flag.String("dataset", "", "Dataset label to suppress (required)")
	window := flag.Duration("window", 15*time.Minute, "Suppression window starting now")
	flag.Parse()

	requireFlag("db", *dbPath)
	requireFlag("inspector", *inspector)
	requireFlag("dataset", *dataset)

	opts := &bolt.Options{Timeout: 2 * time.Second}
	db, err := bolt.Open(*dbPath, 0o600, opts)
	if err != nil {
		log.Fatalf("open suppress db %s: %v", *dbPath, err)
	}
	defer db.Close()

	// ── Write suppression record ──────────────────────────────────────────────
	expiry := time.Now().Add(*window)
	key := suppressKey(*inspector, *dataset)
	val := expiryValue(expiry)

	err = db.Update(func(tx *bolt.Tx) error {
		b, berr := tx.CreateBucketIfNotExists([]byte("suppression"))
		if berr != nil {
			return fmt.Errorf("create suppression bucket: %w", berr)
		}
		return b.Put([]byte(key), val)
	})
	if err != nil {
		log.Fatalf("write suppression: %v", err)
	}
	fmt.Printf("[inject_suppression] suppression bucket: key=%s value=unix(%d) expires=%s\n",
		key, expiry.Unix(), expiry.UTC().Format(time.RFC3339))

	fmt.Println("[inject_suppression] done — chat alerts for this pair stay suppressed until expiry")
}
