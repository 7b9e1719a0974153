// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package poda

import (
	"errors"
	"fmt"
	"sync"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/poda/bundle"
)

// ErrDeviceNotFound is returned by Registry.Get when no device has been
// registered for a process ID.
var ErrDeviceNotFound = errors.New("poda: no device registered for process")

// Factory creates a new Device instance for a process definition,
// mirroring vm.Factory's role for a pluggable VM implementation.
type Factory interface {
	New(tags bundle.Tags, wallet bundle.Wallet, logger log.Logger) (*Device, error)
}

// FactoryFunc adapts a plain function to Factory.
type FactoryFunc func(tags bundle.Tags, wallet bundle.Wallet, logger log.Logger) (*Device, error)

// New implements Factory.
func (f FactoryFunc) New(tags bundle.Tags, wallet bundle.Wallet, logger log.Logger) (*Device, error) {
	return f(tags, wallet, logger)
}

// defaultFactory builds a Device via Init, the host contract's normal
// entry point.
var defaultFactory Factory = FactoryFunc(Init)

// Registry holds one live Device per process ID, the host's device
// table (§4.7 "register it in the host's device table"), mirroring
// registry.VMRegisterer's factory-keyed-by-ID pattern but scoped to a
// single host process rather than a node-wide API server.
type Registry struct {
	mu       sync.RWMutex
	factory  Factory
	devices  map[ids.ID]*Device
	logger   log.Logger
}

// NewRegistry constructs an empty Registry. A nil factory defaults to
// Init.
func NewRegistry(factory Factory, logger log.Logger) *Registry {
	if factory == nil {
		factory = defaultFactory
	}
	return &Registry{
		factory: factory,
		devices: make(map[ids.ID]*Device),
		logger:  logger,
	}
}

// Register builds and installs a Device for processID from the process
// definition's tags, overwriting any previously registered device for
// the same process.
func (r *Registry) Register(processID ids.ID, tags bundle.Tags, wallet bundle.Wallet) (*Device, error) {
	device, err := r.factory.New(tags, wallet, r.logger)
	if err != nil {
		return nil, fmt.Errorf("poda: registering device for process %s: %w", processID, err)
	}

	r.mu.Lock()
	r.devices[processID] = device
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.Debug("poda: registered device",
			log.Stringer("processID", processID),
			log.Stringer("device", device),
		)
	}
	return device, nil
}

// Get returns the device registered for processID.
func (r *Registry) Get(processID ids.ID) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	device, ok := r.devices[processID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, processID)
	}
	return device, nil
}

// Unregister removes the device registered for processID, if any.
func (r *Registry) Unregister(processID ids.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.devices, processID)
}
