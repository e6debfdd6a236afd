package main

import (
	"flag"
	"log"

	"github.com/danmuck/peerboard/internal/config"
)

const defaultPath = "cmd/boardctl/config.toml"

func main() {
	kind := flag.String("kind", "board", "config kind: board")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to the boardctl path)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *kind != "board" {
		log.Fatalf("unknown kind: %s", *kind)
	}

	if *validate {
		path := *input
		if path == "" {
			path = defaultPath
		}
		if _, err := config.LoadBoardConfig(path); err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated %s config at %s", *kind, path)
		return
	}

	target := *output
	if target == "" {
		target = defaultPath
	}
	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", *kind, target)
}
