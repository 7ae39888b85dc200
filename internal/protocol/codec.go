package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// EncodeRequest serializes req as a single JSON line and writes it to w.
func EncodeRequest(w io.Writer, req *Request) error {
	switch req.Verb {
	case VerbCall, VerbEstimateFee:
	default:
		return fmt.Errorf("unsupported verb: %q", req.Verb)
	}

	// json.Encoder appends the newline the executor frames on.
	if err := json.NewEncoder(w).Encode(req); err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return nil
}

// DecodeResponse parses one reply line. Unknown fields and inconsistent
// status/error combinations are rejected; a reply that fails here is
// treated as a worker failure by the pool.
func DecodeResponse(data []byte) (*Response, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var resp Response
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	switch resp.Status {
	case StatusOK:
	case StatusError, StatusFailed:
		if resp.Error == "" {
			return nil, fmt.Errorf("response has status %q but no error message", resp.Status)
		}
	case "":
		return nil, errors.New("response missing required field: status")
	default:
		return nil, fmt.Errorf("invalid status value: %q", resp.Status)
	}

	return &resp, nil
}
