package rpc

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mirovale/cairod/internal/callpool"
	"github.com/mirovale/cairod/internal/crypto/pedersen"
	"github.com/mirovale/cairod/internal/protocol"
	"github.com/mirovale/cairod/internal/storage"
)

// handleRPC decodes one JSON-RPC request, dispatches it, and writes the
// response envelope. Batch requests are not supported.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req rpcRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeResponse(w, rpcResponse{JSONRPC: "2.0", ID: null(), Error: errParse()})
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		writeResponse(w, rpcResponse{JSONRPC: "2.0", ID: idOrNull(req.ID), Error: errInvalidRequest("jsonrpc must be \"2.0\" and method must be set")})
		return
	}

	result, rpcErr := s.dispatch(r, &req)

	resp := rpcResponse{JSONRPC: "2.0", ID: idOrNull(req.ID)}
	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		resp.Result = result
	}
	writeResponse(w, resp)
}

func (s *Server) dispatch(r *http.Request, req *rpcRequest) (any, *rpcError) {
	switch req.Method {
	case "starknet_chainId":
		return s.chainID(r)
	case "starknet_blockNumber":
		return s.blockNumber(r)
	case "starknet_blockHashAndNumber":
		return s.blockHashAndNumber(r)
	case "starknet_getStorageAt":
		return s.getStorageAt(r, req.Params)
	case "starknet_call":
		return s.call(r, req.Params)
	case "starknet_estimateFee":
		return s.estimateFee(r, req.Params)
	case "cairod_pedersenHash":
		return s.pedersenHash(req.Params)
	default:
		return nil, errMethodNotFound(req.Method)
	}
}

func (s *Server) chainID(r *http.Request) (any, *rpcError) {
	id, err := s.state.ChainID(r.Context())
	if err != nil {
		s.logger.Error("chain_id_read_failed", "error", err)
		return nil, errInternal()
	}
	return id, nil
}

func (s *Server) blockNumber(r *http.Request) (any, *rpcError) {
	number, err := s.state.LatestBlockNumber(r.Context())
	if errors.Is(err, storage.ErrNoBlocks) {
		return nil, errBlockNotFound()
	}
	if err != nil {
		s.logger.Error("block_number_read_failed", "error", err)
		return nil, errInternal()
	}
	return number, nil
}

func (s *Server) blockHashAndNumber(r *http.Request) (any, *rpcError) {
	hash, number, err := s.state.BlockHashAndNumber(r.Context())
	if errors.Is(err, storage.ErrNoBlocks) {
		return nil, errBlockNotFound()
	}
	if err != nil {
		s.logger.Error("chain_head_read_failed", "error", err)
		return nil, errInternal()
	}
	return map[string]any{
		"block_hash":   hash,
		"block_number": number,
	}, nil
}

// storageAtParams accepts named params or the positional form
// [contract_address, key, block_id].
type storageAtParams struct {
	ContractAddress string  `json:"contract_address"`
	Key             string  `json:"key"`
	BlockID         blockID `json:"block_id"`
}

func (s *Server) getStorageAt(r *http.Request, raw json.RawMessage) (any, *rpcError) {
	var p storageAtParams
	if err := unmarshalParams(raw, &p, &p.ContractAddress, &p.Key, &p.BlockID); err != nil {
		return nil, errInvalidParams(err.Error())
	}
	if p.ContractAddress == "" || p.Key == "" {
		return nil, errInvalidParams("contract_address and key are required")
	}

	number, rpcErr := s.resolveBlock(r, p.BlockID)
	if rpcErr != nil {
		return nil, rpcErr
	}

	value, err := s.state.StorageAt(r.Context(), p.ContractAddress, p.Key, number)
	switch {
	case errors.Is(err, storage.ErrContractNotFound):
		return nil, errContractNotFound()
	case errors.Is(err, storage.ErrBlockNotFound):
		return nil, errBlockNotFound()
	case err != nil:
		s.logger.Error("storage_read_failed", "error", err)
		return nil, errInternal()
	}
	return value, nil
}

// callParams carries the function call shared by starknet_call and
// starknet_estimateFee.
type callParams struct {
	Request struct {
		ContractAddress    string   `json:"contract_address"`
		EntryPointSelector string   `json:"entry_point_selector"`
		Calldata           []string `json:"calldata"`
		GasPrice           string   `json:"gas_price,omitempty"`
	} `json:"request"`
	BlockID blockID `json:"block_id"`
}

func (p *callParams) validate() error {
	if p.Request.ContractAddress == "" {
		return errors.New("request.contract_address is required")
	}
	if p.Request.EntryPointSelector == "" {
		return errors.New("request.entry_point_selector is required")
	}
	return nil
}

func (s *Server) call(r *http.Request, raw json.RawMessage) (any, *rpcError) {
	var p callParams
	if err := unmarshalParams(raw, &p, &p.Request, &p.BlockID); err != nil {
		return nil, errInvalidParams(err.Error())
	}
	if err := p.validate(); err != nil {
		return nil, errInvalidParams(err.Error())
	}

	req, rpcErr := s.buildPoolRequest(r, protocol.VerbCall, &p)
	if rpcErr != nil {
		return nil, rpcErr
	}

	resp, rpcErr := s.submit(r, req)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if resp.Output == nil {
		return []string{}, nil
	}
	return resp.Output, nil
}

func (s *Server) estimateFee(r *http.Request, raw json.RawMessage) (any, *rpcError) {
	var p callParams
	if err := unmarshalParams(raw, &p, &p.Request, &p.BlockID); err != nil {
		return nil, errInvalidParams(err.Error())
	}
	if err := p.validate(); err != nil {
		return nil, errInvalidParams(err.Error())
	}

	req, rpcErr := s.buildPoolRequest(r, protocol.VerbEstimateFee, &p)
	if rpcErr != nil {
		return nil, rpcErr
	}

	resp, rpcErr := s.submit(r, req)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if resp.Fee == nil {
		s.logger.Error("estimate_fee_missing_fee")
		return nil, errInternal()
	}
	return map[string]any{
		"gas_consumed": resp.Fee.GasConsumed,
		"gas_price":    resp.Fee.GasPrice,
		"overall_fee":  resp.Fee.OverallFee,
	}, nil
}

// buildPoolRequest translates validated params into the executor wire form.
func (s *Server) buildPoolRequest(r *http.Request, verb string, p *callParams) (protocol.Request, *rpcError) {
	chain, err := s.state.ChainID(r.Context())
	if err != nil {
		s.logger.Error("chain_id_read_failed", "error", err)
		return protocol.Request{}, errInternal()
	}
	return protocol.Request{
		Verb:            verb,
		AtBlock:         p.BlockID.atBlock(),
		Chain:           chain,
		ContractAddress: p.Request.ContractAddress,
		EntryPoint:      p.Request.EntryPointSelector,
		Calldata:        p.Request.Calldata,
		GasPrice:        p.Request.GasPrice,
	}, nil
}

// submit runs one request through the pool and maps the outcome onto RPC
// errors. An executor-reported error is the contract's fault; a transport
// failure or an unavailable pool is ours.
func (s *Server) submit(r *http.Request, req protocol.Request) (*protocol.Response, *rpcError) {
	resp, err := s.pool.Call(r.Context(), req)
	if errors.Is(err, callpool.ErrPoolUnavailable) {
		return nil, errInternal()
	}
	if err != nil {
		s.logger.Warn("pool_call_failed", "error", err)
		return nil, errInternal()
	}
	if !resp.OK() {
		return nil, errContractError(resp.Error)
	}
	return resp, nil
}

// pedersenHashParams accepts named params or the positional form [a, b].
type pedersenHashParams struct {
	A string `json:"a"`
	B string `json:"b"`
}

// pedersenHash is a node extension: clients derive storage addresses with
// the same hash the chain uses without shipping the curve themselves.
func (s *Server) pedersenHash(raw json.RawMessage) (any, *rpcError) {
	var p pedersenHashParams
	if err := unmarshalParams(raw, &p, &p.A, &p.B); err != nil {
		return nil, errInvalidParams(err.Error())
	}

	a, err := pedersen.ParseFelt(p.A)
	if err != nil {
		return nil, errInvalidParams(err.Error())
	}
	b, err := pedersen.ParseFelt(p.B)
	if err != nil {
		return nil, errInvalidParams(err.Error())
	}

	h, err := pedersen.Hash(a, b)
	if err != nil {
		return nil, errInvalidParams(err.Error())
	}
	return pedersen.FormatFelt(h), nil
}

// resolveBlock turns a block selector into a concrete block number.
func (s *Server) resolveBlock(r *http.Request, b blockID) (uint64, *rpcError) {
	if !b.Latest {
		return b.Number, nil
	}
	number, err := s.state.LatestBlockNumber(r.Context())
	if errors.Is(err, storage.ErrNoBlocks) {
		return 0, errBlockNotFound()
	}
	if err != nil {
		s.logger.Error("block_number_read_failed", "error", err)
		return 0, errInternal()
	}
	return number, nil
}

// unmarshalParams decodes named-object params into dst, or positional
// params into slots, in order.
func unmarshalParams(raw json.RawMessage, dst any, slots ...any) error {
	if len(raw) == 0 {
		return errors.New("params are required")
	}

	var positional []json.RawMessage
	if err := json.Unmarshal(raw, &positional); err == nil {
		if len(positional) != len(slots) {
			return errors.New("wrong number of positional params")
		}
		for i, item := range positional {
			if err := json.Unmarshal(item, slots[i]); err != nil {
				return err
			}
		}
		return nil
	}

	return json.Unmarshal(raw, dst)
}

func writeResponse(w http.ResponseWriter, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func null() json.RawMessage {
	return json.RawMessage("null")
}

func idOrNull(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return null()
	}
	return id
}
