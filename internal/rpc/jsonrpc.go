package rpc

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// JSON-RPC 2.0 error codes, plus the Starknet API domain codes the node
// can produce.
const (
	codeParse          = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternal       = -32603

	codeContractNotFound = 20
	codeBlockNotFound    = 24
	codeContractError    = 40
)

// rpcRequest is a single JSON-RPC 2.0 request envelope.
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// rpcResponse is a single JSON-RPC 2.0 response envelope.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError is the error member of a response.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

func errParse() *rpcError {
	return &rpcError{Code: codeParse, Message: "Parse error"}
}

func errInvalidRequest(reason string) *rpcError {
	return &rpcError{Code: codeInvalidRequest, Message: "Invalid request", Data: reason}
}

func errMethodNotFound(method string) *rpcError {
	return &rpcError{Code: codeMethodNotFound, Message: "Method not found", Data: method}
}

func errInvalidParams(reason string) *rpcError {
	return &rpcError{Code: codeInvalidParams, Message: "Invalid params", Data: reason}
}

func errInternal() *rpcError {
	return &rpcError{Code: codeInternal, Message: "Internal error"}
}

func errContractNotFound() *rpcError {
	return &rpcError{Code: codeContractNotFound, Message: "Contract not found"}
}

func errBlockNotFound() *rpcError {
	return &rpcError{Code: codeBlockNotFound, Message: "Block not found"}
}

func errContractError(detail string) *rpcError {
	return &rpcError{Code: codeContractError, Message: "Contract error", Data: detail}
}

// blockID is the block selector accepted by read methods: the string
// "latest", or an object naming a block number.
type blockID struct {
	Latest bool
	Number uint64
}

func (b *blockID) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		if tag != "latest" {
			return fmt.Errorf("unsupported block tag %q", tag)
		}
		b.Latest = true
		return nil
	}

	var obj struct {
		BlockNumber *uint64 `json:"block_number"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("block_id must be \"latest\" or {\"block_number\": n}")
	}
	if obj.BlockNumber == nil {
		return fmt.Errorf("block_id object is missing block_number")
	}
	b.Number = *obj.BlockNumber
	return nil
}

// atBlock renders the selector in the executor wire form.
func (b blockID) atBlock() string {
	if b.Latest {
		return "latest"
	}
	return strconv.FormatUint(b.Number, 10)
}
