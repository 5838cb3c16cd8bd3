// Copyright (c) 2020-2023, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

// Package radiomodel provides the propagation models that arbitrate the shared radio medium.
package radiomodel

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/motesim/motesim/radio"
)

const (
	ModelRadius   = "radius"
	ModelPathLoss = "pathloss"
)

// Names gets the names of all radio models that Create accepts.
func Names() []string {
	return []string{ModelRadius, ModelPathLoss}
}

// Create creates the radio model with the given name, configured with params. A nil params uses
// DefaultParams.
func Create(name string, params *Params) (radio.Arbitrator, error) {
	if params == nil {
		params = DefaultParams()
	}
	switch strings.ToLower(name) {
	case ModelRadius, "disk", "":
		if err := params.validateRadius(); err != nil {
			return nil, errors.Wrapf(err, "radio model %s", ModelRadius)
		}
		return newRadiusModel(params), nil
	case ModelPathLoss, "itu":
		m, err := NewPathLossModel(params)
		if err != nil {
			return nil, errors.Wrapf(err, "radio model %s", ModelPathLoss)
		}
		return m, nil
	default:
		return nil, errors.Errorf("unknown radio model: %q (available: %s)", name, strings.Join(Names(), ", "))
	}
}
