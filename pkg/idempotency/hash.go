package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

type Item struct {
	ID       string
	Quantity int
}

type Location struct {
	Lat float64
	Lng float64
}

// Request is the economically relevant part of an order request.
type Request struct {
	MerchantID      string
	Items           []Item
	FulfillmentType string
	Location        *Location
}

type canonicalItem struct {
	ID       string `json:"id"`
	Quantity int    `json:"qty"`
}

type canonicalRequest struct {
	MerchantID      string          `json:"merchant"`
	Items           []canonicalItem `json:"items"`
	FulfillmentType string          `json:"fulfillment"`
	Location        []string        `json:"location"`
}

// Canonical renders r so that equivalent carts produce the same string:
// quantities of repeated items are merged, items are sorted, and the
// location is rounded to three decimals (about 110 m). Every field is
// JSON-quoted, so ids may contain any character.
func Canonical(r Request) string {
	qty := make(map[string]int, len(r.Items))
	for _, it := range r.Items {
		qty[it.ID] += it.Quantity
	}
	ids := make([]string, 0, len(qty))
	for id := range qty {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	c := canonicalRequest{
		MerchantID:      r.MerchantID,
		Items:           make([]canonicalItem, 0, len(ids)),
		FulfillmentType: strings.ToUpper(r.FulfillmentType),
	}
	for _, id := range ids {
		c.Items = append(c.Items, canonicalItem{ID: id, Quantity: qty[id]})
	}
	if r.Location != nil {
		c.Location = []string{coord(r.Location.Lat), coord(r.Location.Lng)}
	}

	raw, err := json.Marshal(c)
	if err != nil {
		// strings, ints and string slices always marshal
		panic(err)
	}
	return string(raw)
}

func coord(v float64) string {
	s := strconv.FormatFloat(v, 'f', 3, 64)
	if s == "-0.000" {
		return "0.000"
	}
	return s
}

// RequestHash is the hex SHA-256 of the canonical request.
func RequestHash(r Request) string {
	sum := sha256.Sum256([]byte(Canonical(r)))
	return hex.EncodeToString(sum[:])
}
