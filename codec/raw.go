package codec

// Bytes stores []byte results as-is, for wrapped functions that already
// produce a serialized form (rendered pages, upstream response bodies).
type Bytes struct{}

func (Bytes) Encode(b []byte) ([]byte, error) { return b, nil }
func (Bytes) Decode(b []byte) ([]byte, error) { return b, nil }

// String keeps string values readable in the store, which helps when the
// store is inspected by hand (redis-cli GET). No UTF-8 validation.
type String struct{}

func (String) Encode(s string) ([]byte, error) { return []byte(s), nil }
func (String) Decode(b []byte) (string, error) { return string(b), nil }
