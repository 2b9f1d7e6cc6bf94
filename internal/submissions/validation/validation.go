package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/dejobratic/ordersubmit/internal/submissions/domain"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// HeaderIdempotencyKey carries the client key out-of-band from the body.
const HeaderIdempotencyKey = "Idempotency-Key"

const maxPayloadBytes = 1 << 20

var (
	// ErrMissingKey is returned when the idempotency key is absent or blank.
	ErrMissingKey = errors.New("missing Idempotency-Key header")
	// ErrMalformedPayload is returned when the body is not a valid order.
	ErrMalformedPayload = errors.New("malformed order payload")
)

const orderSchemaURL = "https://ordersubmit.schemas.local/order.schema.json"

const orderSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["product", "qty"],
  "properties": {
    "product": {"type": "string"},
    "qty": {"type": "integer"}
  }
}`

var compiledOrderSchema = mustCompileOrderSchema()

func mustCompileOrderSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(orderSchemaURL, strings.NewReader(orderSchema)); err != nil {
		panic(fmt.Sprintf("order schema load failed: %v", err))
	}
	schema, err := c.Compile(orderSchemaURL)
	if err != nil {
		panic(fmt.Sprintf("order schema compile failed: %v", err))
	}
	return schema
}

// Key extracts the idempotency key from request headers.
func Key(header http.Header) (domain.IdempotencyKey, error) {
	key := domain.IdempotencyKey(strings.TrimSpace(header.Get(HeaderIdempotencyKey)))
	if key.IsZero() {
		return "", ErrMissingKey
	}
	return key, nil
}

// Payload parses and validates an order body.
func Payload(body io.Reader) (domain.OrderPayload, error) {
	if body == nil {
		return domain.OrderPayload{}, fmt.Errorf("%w: empty body", ErrMalformedPayload)
	}

	raw, err := io.ReadAll(io.LimitReader(body, maxPayloadBytes))
	if err != nil {
		return domain.OrderPayload{}, fmt.Errorf("%w: read body: %w", ErrMalformedPayload, err)
	}

	doc, err := decodeDocument(raw)
	if err != nil {
		return domain.OrderPayload{}, fmt.Errorf("%w: invalid JSON: %w", ErrMalformedPayload, err)
	}

	if err := compiledOrderSchema.Validate(doc); err != nil {
		return domain.OrderPayload{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	var fields struct {
		Product string      `json:"product"`
		Qty     json.Number `json:"qty"`
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&fields); err != nil {
		return domain.OrderPayload{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	qty, err := integerValue(fields.Qty)
	if err != nil {
		return domain.OrderPayload{}, fmt.Errorf("%w: qty: %w", ErrMalformedPayload, err)
	}

	return domain.OrderPayload{
		Product: fields.Product,
		Qty:     qty,
	}, nil
}

// Request validates the key first, then the body. It never reaches a store.
func Request(r *http.Request) (domain.IdempotencyKey, domain.OrderPayload, error) {
	key, err := Key(r.Header)
	if err != nil {
		return "", domain.OrderPayload{}, err
	}

	payload, err := Payload(r.Body)
	if err != nil {
		return "", domain.OrderPayload{}, err
	}

	return key, payload, nil
}

// decodeDocument parses exactly one JSON value, keeping numbers as
// json.Number so the schema sees integers without float rounding.
func decodeDocument(raw []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var doc any
	if err := decoder.Decode(&doc); err != nil {
		return nil, err
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON value")
	}
	return doc, nil
}

// integerValue accepts integral numbers written with a fractional part, e.g. 3.0.
func integerValue(n json.Number) (int64, error) {
	if v, err := n.Int64(); err == nil {
		return v, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
	if f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%s is not a valid integer", n)
	}
	return int64(f), nil
}
