package protocol

import (
	_ "embed"
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/client.schema.json
var clientSchemaSrc string

var clientSchema = mustCompile("client.schema.json", clientSchemaSrc)

func mustCompile(name, src string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, strings.NewReader(src)); err != nil {
		panic(err)
	}
	s, err := c.Compile(name)
	if err != nil {
		panic(err)
	}
	return s
}

// ValidateClient checks an inbound client message against the client
// schema. Invalid messages are dropped by the transport; the room never
// sees them.
func ValidateClient(raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return clientSchema.Validate(v)
}
