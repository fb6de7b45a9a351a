package main

import (
	"flag"
	"log"

	"github.com/danmuck/edgerelay/internal/config"
)

func main() {
	kind := flag.String("kind", config.KindRecv, "config kind: recv|send")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to per-kind cmd path)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		path := *input
		if path == "" {
			path = defaultPath(*kind)
		}
		if _, err := config.Load(path); err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated %s config at %s", *kind, path)
		return
	}

	target := *output
	if target == "" {
		target = defaultPath(*kind)
	}
	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", *kind, target)
}

func defaultPath(kind string) string {
	switch kind {
	case config.KindRecv:
		return "cmd/relay-recv/config.toml"
	case config.KindSend:
		return "cmd/relay-send/config.toml"
	default:
		log.Fatalf("unknown kind: %s", kind)
		return ""
	}
}
