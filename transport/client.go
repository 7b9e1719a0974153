// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/luxfi/ids"

	"github.com/luxfi/poda"
	"github.com/luxfi/poda/bundle"
)

// gorilla/rpc's JSON codec speaks the same envelope as any JSON-RPC 1.0
// server: {"method","params","id"} in, {"result","error","id"} out, with
// params carrying a single-element array for a one-argument RPC method.
type rpcRequest struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
	ID     uint64        `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  interface{}     `json:"error"`
	ID     uint64          `json:"id"`
}

// Peer is a resolvable compute endpoint: the HTTP base URL a given
// authority's node serves its ComputeService under.
type Peer struct {
	Authority bundle.Address
	Endpoint  string
}

// AddressBook is a static Router backed by a fixed authority-to-endpoint
// mapping, suitable for a process whose authority set rarely changes
// membership between deploys.
type AddressBook struct {
	byAuthority map[bundle.Address]string
}

// NewAddressBook builds an AddressBook from peers.
func NewAddressBook(peers []Peer) *AddressBook {
	book := &AddressBook{byAuthority: make(map[bundle.Address]string, len(peers))}
	for _, p := range peers {
		book.byAuthority[p.Authority] = p.Endpoint
	}
	return book
}

// Find implements Router. processID is unused here: the address book
// resolves by authority alone, not per-process — a deployment with
// per-process routing would replace this with a lookup service instead.
func (b *AddressBook) Find(_ context.Context, _ ids.ID, authority bundle.Address) (poda.NodeHandle, bool, error) {
	endpoint, ok := b.byAuthority[authority]
	if !ok {
		return nil, false, nil
	}
	return endpoint, true, nil
}

// Client implements ComputeClient over JSON-RPC, calling the
// "ComputeService.Compute" method a peer's transport.NewHandler exposes
// when registered under the name "ComputeService".
type Client struct {
	httpClient *http.Client
}

// NewClient builds a Client with the given request timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

// Compute implements ComputeClient. node must be the string endpoint URL
// an AddressBook.Find resolved.
func (c *Client) Compute(ctx context.Context, node poda.NodeHandle, processID, assignmentID ids.ID) (*bundle.Item, error) {
	endpoint, ok := node.(string)
	if !ok {
		return nil, fmt.Errorf("transport: unexpected node handle type %T", node)
	}

	args := ComputeArgs{ProcessID: processID, AssignmentID: assignmentID}
	var reply ComputeReply
	if err := c.call(ctx, endpoint, "ComputeService.Compute", args, &reply); err != nil {
		return nil, err
	}
	if !reply.Found {
		return nil, nil
	}
	return reply.Attestation, nil
}

func (c *Client) call(ctx context.Context, endpoint, method string, params, result interface{}) error {
	reqBody := rpcRequest{Method: method, Params: []interface{}{params}, ID: 1}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("transport: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("transport: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("transport: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("transport: failed to read response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("transport: failed to unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("transport: rpc error: %v", rpcResp.Error)
	}
	if result != nil && len(rpcResp.Result) > 0 {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("transport: failed to unmarshal result: %w", err)
		}
	}
	return nil
}
