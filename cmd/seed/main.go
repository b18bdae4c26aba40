// Command seed loads crop and disease reference data into the database.
//
// Usage:
//
//	seed -f crops.json [-d dsn] [-r redis-addr]
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/dmitrijs2005/agrodetect/internal/flagx"
	"github.com/dmitrijs2005/agrodetect/internal/logging"
	"github.com/dmitrijs2005/agrodetect/internal/server"
	"github.com/dmitrijs2005/agrodetect/internal/server/config"
)

func main() {

	var path string
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	fs.StringVar(&path, "f", "crops.json", "JSON file with crop metadata records")
	_ = fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-f"}))

	cfg := config.LoadConfig()
	logger := logging.NewJSONLogger(os.Stderr, cfg.LogLevel)

	ctx := context.Background()
	n, err := server.Seed(ctx, cfg, path, logger)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}

	logger.Info(ctx, "seed complete", "records", n, "file", path)
}
