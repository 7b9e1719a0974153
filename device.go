// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package poda

import (
	"context"
	"fmt"

	"github.com/luxfi/log"

	"github.com/luxfi/poda/bundle"
)

// Device is the host contract this package exports (§6): init, execute,
// push, and is_user_signed, bundled as a single value a host's device
// table can hold onto per process invocation.
type Device struct {
	Options DeviceOptions
	Logger  log.Logger
}

// Init parses a process definition's tags into DeviceOptions (§4.1) and
// returns the configured Device, mirroring vm.Factory.New's role of
// producing a ready-to-use instance from static configuration.
func Init(tags bundle.Tags, wallet bundle.Wallet, logger log.Logger) (*Device, error) {
	opts, err := ParseOptions(tags, wallet)
	if err != nil {
		return nil, err
	}
	return &Device{Options: opts, Logger: logger}, nil
}

// Execute runs the Pre-Execution Gate against outer for the given pass
// (§4.4).
func (d *Device) Execute(outer *bundle.Item, state *ExecState) (Outcome, error) {
	if state.Logger == nil {
		state.Logger = d.Logger
	}
	return Execute(outer, state, d.Options)
}

// Push runs the Attestation Aggregator over state.Results (§4.6).
func (d *Device) Push(ctx context.Context, state *ExecState) error {
	if state.Logger == nil {
		state.Logger = d.Logger
	}
	return Push(ctx, state)
}

// IsUserSigned reports whether msg carries a direct user signature (§4.2).
func (d *Device) IsUserSigned(msg *bundle.Item) bool {
	return IsUserSigned(msg)
}

// String implements fmt.Stringer for diagnostic logging.
func (d *Device) String() string {
	return fmt.Sprintf("poda.Device{authorities=%d, quorum=%d}", d.Options.Authorities.Len(), d.Options.Quorum)
}
