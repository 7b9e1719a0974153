// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package transport provides the default wire implementation of the
// Router and ComputeClient collaborators (§6), letting a process
// aggregate attestations from peer nodes over plain JSON-RPC.
package transport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/rpc/v2"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/utils/json"

	"github.com/luxfi/poda/bundle"
)

// ComputeArgs is the JSON-RPC request payload for the
// "ComputeService.Compute" method: produce an attestation for processID at
// assignmentID.
type ComputeArgs struct {
	ProcessID    ids.ID `json:"processId"`
	AssignmentID ids.ID `json:"assignmentId"`
}

// ComputeReply carries the attestation item, JSON-encoded.
type ComputeReply struct {
	Found       bool          `json:"found"`
	Attestation *bundle.Item `json:"attestation,omitempty"`
}

// Computer produces an attestation for a locally-hosted process
// assignment. It is the node-side counterpart of ComputeClient.
type Computer interface {
	Compute(ctx context.Context, processID, assignmentID ids.ID) (*bundle.Item, bool, error)
}

// ComputeService adapts a Computer to the gorilla/rpc calling convention:
// exported methods of the form Method(r *http.Request, args, reply *T)
// error become JSON-RPC endpoints.
type ComputeService struct {
	computer Computer
	logger   log.Logger
}

// NewComputeService wraps computer as a gorilla/rpc service.
func NewComputeService(computer Computer, logger log.Logger) *ComputeService {
	return &ComputeService{computer: computer, logger: logger}
}

// Compute implements the RPC method invoked by Client.Compute.
func (s *ComputeService) Compute(r *http.Request, args *ComputeArgs, reply *ComputeReply) error {
	att, ok, err := s.computer.Compute(r.Context(), args.ProcessID, args.AssignmentID)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("transport: compute failed", log.String("error", err.Error()))
		}
		return err
	}
	reply.Found = ok
	reply.Attestation = att
	return nil
}

// NewHandler builds the HTTP handler a peer node serves its ComputeService
// behind, mirroring xsvm's VM.CreateHandlers: one gorilla/rpc server with
// the JSON codec registered under both the bare and charset-qualified
// content types.
func NewHandler(service *ComputeService, serviceName string) (http.Handler, error) {
	server := rpc.NewServer()
	server.RegisterCodec(json.NewCodec(), "application/json")
	server.RegisterCodec(json.NewCodec(), "application/json;charset=UTF-8")
	if err := server.RegisterService(service, serviceName); err != nil {
		return nil, fmt.Errorf("failed to register compute service: %w", err)
	}
	return server, nil
}
