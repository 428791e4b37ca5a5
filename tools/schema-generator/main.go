// Command schema-generator writes the reference schema reflected from the
// config types. The embedded validation schema is maintained by hand and is
// stricter (enums, bounds, closed objects).
package main

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/framefill/config"
)

func main() {
	out := flag.String("out", filepath.Join("schema", "definitions", "framefill.schema.json"), "file to write")
	check := flag.Bool("check", false, "fail instead of writing when the file is stale")
	flag.Parse()

	log := logrus.WithField("component", "schema-generator")

	schemaBytes, err := config.GenerateSchema()
	if err != nil {
		log.Fatalf("Error generating schema: %v", err)
	}
	schemaBytes = append(schemaBytes, '\n')

	if *check {
		current, err := os.ReadFile(*out)
		if err != nil {
			log.Fatalf("Error reading %s: %v", *out, err)
		}
		if !bytes.Equal(current, schemaBytes) {
			log.Fatalf("%s is stale; run go generate ./schema", *out)
		}
		log.Infof("%s is up to date", *out)
		return
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		log.Fatalf("Error creating schema directory: %v", err)
	}
	if err := os.WriteFile(*out, schemaBytes, 0o644); err != nil {
		log.Fatalf("Error writing schema file: %v", err)
	}
	log.Infof("Generated schema at %s", *out)
}
