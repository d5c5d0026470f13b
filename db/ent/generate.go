// Command generate regenerates the Ent client for the archive schema into
// gen/ent. The generated tree is not committed; run this from the repo root
// after changing anything under db/ent/schema.
package main

import (
	"log"

	"entgo.io/ent/entc"
	"entgo.io/ent/entc/gen"
)

func main() {
	err := entc.Generate(
		"./db/ent/schema",
		&gen.Config{
			Target:  "gen/ent",
			Package: "ent",
			Schema:  "ent/schema",
		},
		entc.FeatureNames("sql/upsert"),
	)
	if err != nil {
		log.Fatal(err)
	}
}
