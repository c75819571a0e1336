package cart

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	d "github.com/fjod/canteen/payment-service/domain"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed cart.schema.json
var schemaJSON []byte

var schema = gojsonschema.NewBytesLoader(schemaJSON)

var ErrInvalidCart = errors.New("invalid cart")

// Load reads a cart file and checks it against the cart schema before decoding.
func Load(path string) (*d.CreateIntentRequest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (*d.CreateIntentRequest, error) {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCart, err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, fmt.Sprintf("%s: %s", desc.Context().String(), desc.Description()))
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidCart, strings.Join(problems, "; "))
	}

	var c d.CreateIntentRequest
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCart, err)
	}
	return &c, nil
}
