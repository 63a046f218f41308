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

package mqtt

import (
	"sync"
	"time"

	"github.com/sclera-iot/mqtt5/packet"
)

// Token is the asynchronous result of a user-facing operation
// (Publish, Subscribe, Unsubscribe).
type Token interface {
	// Wait blocks until the operation completes.
	Wait() error
	// WaitTimeout blocks until completion or the timeout elapses,
	// returning ErrTimeout in the latter case.
	WaitTimeout(timeout time.Duration) error
	// Done returns a channel closed when the operation completes.
	Done() <-chan struct{}
	// Error returns the completion error, if any. Safe to call only
	// after Done is closed.
	Error() error
}

// token is the shared Wait/Done/Error machinery embedded by every
// concrete token type.
type token struct {
	done chan struct{}
	mu   sync.Mutex
	err  error
}

func newToken() *token {
	return &token{done: make(chan struct{})}
}

func (t *token) Wait() error {
	<-t.done
	return t.Error()
}

func (t *token) WaitTimeout(timeout time.Duration) error {
	select {
	case <-t.done:
		return t.Error()
	case <-time.After(timeout):
		return ErrTimeout
	}
}

func (t *token) Done() <-chan struct{} { return t.done }

func (t *token) Error() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *token) complete(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
	close(t.done)
}

// PublishToken is returned from Client.Publish.
type PublishToken struct {
	*token
	PacketID packet.PacketIdentifier
}

func newPublishToken() *PublishToken {
	return &PublishToken{token: newToken()}
}

// SubscribeToken is returned from Client.Subscribe.
type SubscribeToken struct {
	*token
	Result *packet.SubAckPacket
}

func newSubscribeToken() *SubscribeToken {
	return &SubscribeToken{token: newToken()}
}

// UnsubscribeToken is returned from Client.Unsubscribe.
type UnsubscribeToken struct {
	*token
	Result *packet.UnsubAckPacket
}

func newUnsubscribeToken() *UnsubscribeToken {
	return &UnsubscribeToken{token: newToken()}
}

// AuthToken is a Token for an Auth exchange. Client.Auth returns a
// plain error and does not use it.
type AuthToken struct {
	*token
}

func newAuthToken() *AuthToken {
	return &AuthToken{token: newToken()}
}
