// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package packet

import (
	"errors"
	"fmt"
)

// ErrMalformedPacket indicates a decode failure: an unknown property
// id, or an inconsistent field combination (e.g. authentication data
// without a method). A variable-byte integer longer than four bytes is
// reported as wire.ErrVarIntTooLong instead.
var ErrMalformedPacket = errors.New("packet: malformed packet")

// ErrPolicyViolation indicates the encoder refused to produce an
// ill-formed packet: an empty Subscribe/Unsubscribe list, a missing
// packet identifier at QoS>0, authentication data without a method,
// and similar. Encoders do not check a packet against the broker's
// negotiated maximum packet size.
var ErrPolicyViolation = errors.New("packet: policy violation")

// PolicyError carries the specific reason a PolicyViolation was
// raised, for callers that want to log or branch on it.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("packet: policy violation: %s", e.Reason)
}

func (e *PolicyError) Unwrap() error { return ErrPolicyViolation }

func policyViolation(reason string) error {
	return &PolicyError{Reason: reason}
}

// MalformedError carries the specific reason a decode was rejected.
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("packet: malformed packet: %s", e.Reason)
}

func (e *MalformedError) Unwrap() error { return ErrMalformedPacket }

func malformed(reason string) error {
	return &MalformedError{Reason: reason}
}
