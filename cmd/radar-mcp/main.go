// Command radar-mcp serves the stored postings to MCP clients over stdio.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/nelson-zack/job-radar/internal/config"
	"github.com/nelson-zack/job-radar/internal/mcpserver"
	"github.com/nelson-zack/job-radar/internal/poll"
)

func main() {
	cfgPath := flag.String("config", "", "config file (default $RADAR_CONFIG or "+config.DefaultPath+")")
	flag.Parse()

	// stdout carries the protocol
	log.SetOutput(os.Stderr)

	cfg, err := config.Load(config.ResolvePath(*cfgPath))
	if err != nil {
		log.Fatalf("[mcp] config err=%v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	st, err := poll.OpenStore(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("[mcp] store err=%v", err)
	}
	defer st.Close()

	rules, err := poll.NewRules(cfg)
	if err != nil {
		log.Fatalf("[mcp] rules err=%v", err)
	}

	srv := mcpserver.New(st, mcpserver.Options{
		Experimental:    cfg.API.EnableExperimental,
		EntryExclusions: cfg.Pipeline.EntryExclusions,
		Rules:           rules,
	})
	if err := mcpserver.ServeStdio(srv); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
