// Package protocol defines the wire format spoken with Cairo executor
// processes: one JSON request per line on the child's stdin, one JSON
// response per line on its stdout.
package protocol

// Verbs understood by the executor.
const (
	VerbCall        = "CALL"
	VerbEstimateFee = "ESTIMATE_FEE"
)

// Response status values.
const (
	// StatusOK means the call executed and Output (and Fee, for
	// ESTIMATE_FEE) is valid.
	StatusOK = "ok"

	// StatusError means the executor rejected the call (missing contract,
	// bad entry point, invalid calldata).
	StatusError = "error"

	// StatusFailed means the executor hit an internal error while running
	// the call.
	StatusFailed = "failed"
)

// Request is one unit of work sent to an executor.
type Request struct {
	Verb            string   `json:"verb"`
	AtBlock         string   `json:"at_block"`
	Chain           string   `json:"chain"`
	ContractAddress string   `json:"contract_address"`
	EntryPoint      string   `json:"entry_point_selector"`
	Calldata        []string `json:"calldata"`
	GasPrice        string   `json:"gas_price,omitempty"`
}

// Response is the executor's reply to a single Request.
type Response struct {
	Status string   `json:"status"`
	Output []string `json:"output,omitempty"`
	Fee    *Fee     `json:"fee,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// Fee is the estimate returned for an ESTIMATE_FEE request.
type Fee struct {
	GasConsumed string `json:"gas_consumed"`
	GasPrice    string `json:"gas_price"`
	OverallFee  string `json:"overall_fee"`
}

// OK reports whether the response carries a usable result.
func (r *Response) OK() bool {
	return r.Status == StatusOK
}
