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
	"github.com/sclera-iot/mqtt5/wire"
)

// PropertyID identifies one of MQTT 5.0's 27 property types.
type PropertyID byte

const (
	PropPayloadFormatIndicator   PropertyID = 0x01
	PropMessageExpiryInterval    PropertyID = 0x02
	PropContentType              PropertyID = 0x03
	PropResponseTopic            PropertyID = 0x08
	PropCorrelationData          PropertyID = 0x09
	PropSubscriptionIdentifier   PropertyID = 0x0B
	PropSessionExpiryInterval    PropertyID = 0x11
	PropAssignedClientIdentifier PropertyID = 0x12
	PropServerKeepAlive          PropertyID = 0x13
	PropAuthenticationMethod     PropertyID = 0x15
	PropAuthenticationData       PropertyID = 0x16
	PropRequestProblemInfo       PropertyID = 0x17
	PropWillDelayInterval        PropertyID = 0x18
	PropRequestResponseInfo      PropertyID = 0x19
	PropResponseInfo             PropertyID = 0x1A
	PropServerReference          PropertyID = 0x1C
	PropReasonString             PropertyID = 0x1F
	PropReceiveMaximum           PropertyID = 0x21
	PropTopicAliasMaximum        PropertyID = 0x22
	PropTopicAlias               PropertyID = 0x23
	PropMaximumQoS               PropertyID = 0x24
	PropRetainAvailable          PropertyID = 0x25
	PropUserProperty             PropertyID = 0x26
	PropMaximumPacketSize        PropertyID = 0x27
	PropWildcardSubAvailable     PropertyID = 0x28
	PropSubIDAvailable           PropertyID = 0x29
	PropSharedSubAvailable       PropertyID = 0x2A
)

// UserProperty is a repeatable user-defined key/value pair.
type UserProperty struct {
	Key   string
	Value string
}

// Properties holds the decoded (id, value) pairs of a packet's
// variable header. A nil *Properties and an empty, non-nil one both
// encode to a zero-length property block.
type Properties struct {
	PayloadFormat           *byte
	MessageExpiry           *uint32
	ContentType             string
	ResponseTopic           string
	CorrelationData         []byte
	SubscriptionIdentifiers []uint32
	SessionExpiryInterval   *uint32
	AssignedClientID        string
	ServerKeepAlive         *uint16
	AuthMethod              string
	AuthData                []byte
	RequestProblemInfo      *byte
	WillDelayInterval       *uint32
	RequestResponseInfo     *byte
	ResponseInfo            string
	ServerReference         string
	ReasonString            string
	ReceiveMaximum          *uint16
	TopicAliasMaximum       *uint16
	TopicAlias              *uint16
	MaximumQoS              *byte
	RetainAvailable         *byte
	UserProperties          []UserProperty
	MaximumPacketSize       *uint32
	WildcardSubAvailable    *byte
	SubIDAvailable          *byte
	SharedSubAvailable      *byte
}

// propertyContext distinguishes the one packet type (Publish) where
// Subscription Identifier may repeat from every other packet type,
// where a second occurrence overwrites the first (see SPEC_FULL.md
// Open Question (a): last-wins, not a decode error).
type propertyContext int

const (
	contextGeneric propertyContext = iota
	contextPublish
)

func encodeProperties(w *wire.Writer, props *Properties) error {
	body := wire.NewWriter()

	if props != nil {
		if props.PayloadFormat != nil {
			body.WriteByte(byte(PropPayloadFormatIndicator))
			body.WriteByte(*props.PayloadFormat)
		}
		if props.MessageExpiry != nil {
			body.WriteByte(byte(PropMessageExpiryInterval))
			body.Uint32(*props.MessageExpiry)
		}
		if props.ContentType != "" {
			body.WriteByte(byte(PropContentType))
			body.String(props.ContentType)
		}
		if props.ResponseTopic != "" {
			body.WriteByte(byte(PropResponseTopic))
			body.String(props.ResponseTopic)
		}
		if props.CorrelationData != nil {
			body.WriteByte(byte(PropCorrelationData))
			body.Binary(props.CorrelationData)
		}
		for _, id := range props.SubscriptionIdentifiers {
			body.WriteByte(byte(PropSubscriptionIdentifier))
			if err := body.VarInt(int(id)); err != nil {
				return err
			}
		}
		if props.SessionExpiryInterval != nil {
			body.WriteByte(byte(PropSessionExpiryInterval))
			body.Uint32(*props.SessionExpiryInterval)
		}
		if props.AssignedClientID != "" {
			body.WriteByte(byte(PropAssignedClientIdentifier))
			body.String(props.AssignedClientID)
		}
		if props.ServerKeepAlive != nil {
			body.WriteByte(byte(PropServerKeepAlive))
			body.Uint16(*props.ServerKeepAlive)
		}
		if props.AuthMethod != "" {
			body.WriteByte(byte(PropAuthenticationMethod))
			body.String(props.AuthMethod)
		}
		if props.AuthData != nil {
			body.WriteByte(byte(PropAuthenticationData))
			body.Binary(props.AuthData)
		}
		if props.RequestProblemInfo != nil {
			body.WriteByte(byte(PropRequestProblemInfo))
			body.WriteByte(*props.RequestProblemInfo)
		}
		if props.WillDelayInterval != nil {
			body.WriteByte(byte(PropWillDelayInterval))
			body.Uint32(*props.WillDelayInterval)
		}
		if props.RequestResponseInfo != nil {
			body.WriteByte(byte(PropRequestResponseInfo))
			body.WriteByte(*props.RequestResponseInfo)
		}
		if props.ResponseInfo != "" {
			body.WriteByte(byte(PropResponseInfo))
			body.String(props.ResponseInfo)
		}
		if props.ServerReference != "" {
			body.WriteByte(byte(PropServerReference))
			body.String(props.ServerReference)
		}
		if props.ReasonString != "" {
			body.WriteByte(byte(PropReasonString))
			body.String(props.ReasonString)
		}
		if props.ReceiveMaximum != nil {
			body.WriteByte(byte(PropReceiveMaximum))
			body.Uint16(*props.ReceiveMaximum)
		}
		if props.TopicAliasMaximum != nil {
			body.WriteByte(byte(PropTopicAliasMaximum))
			body.Uint16(*props.TopicAliasMaximum)
		}
		if props.TopicAlias != nil {
			body.WriteByte(byte(PropTopicAlias))
			body.Uint16(*props.TopicAlias)
		}
		if props.MaximumQoS != nil {
			body.WriteByte(byte(PropMaximumQoS))
			body.WriteByte(*props.MaximumQoS)
		}
		if props.RetainAvailable != nil {
			body.WriteByte(byte(PropRetainAvailable))
			body.WriteByte(*props.RetainAvailable)
		}
		for _, up := range props.UserProperties {
			body.WriteByte(byte(PropUserProperty))
			body.String(up.Key)
			body.String(up.Value)
		}
		if props.MaximumPacketSize != nil {
			body.WriteByte(byte(PropMaximumPacketSize))
			body.Uint32(*props.MaximumPacketSize)
		}
		if props.WildcardSubAvailable != nil {
			body.WriteByte(byte(PropWildcardSubAvailable))
			body.WriteByte(*props.WildcardSubAvailable)
		}
		if props.SubIDAvailable != nil {
			body.WriteByte(byte(PropSubIDAvailable))
			body.WriteByte(*props.SubIDAvailable)
		}
		if props.SharedSubAvailable != nil {
			body.WriteByte(byte(PropSharedSubAvailable))
			body.WriteByte(*props.SharedSubAvailable)
		}
	}

	if err := w.VarInt(body.Len()); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

func decodeProperties(r *wire.Reader, ctx propertyContext) (*Properties, error) {
	length, _, err := r.VarInt()
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, nil
	}

	pr, err := r.SubReader(length)
	if err != nil {
		return nil, err
	}

	props := &Properties{}
	for pr.Remaining() > 0 {
		id, err := pr.Uint8()
		if err != nil {
			return nil, err
		}

		switch PropertyID(id) {
		case PropPayloadFormatIndicator:
			b, err := pr.Uint8()
			if err != nil {
				return nil, err
			}
			props.PayloadFormat = &b

		case PropMessageExpiryInterval:
			v, err := pr.Uint32()
			if err != nil {
				return nil, err
			}
			props.MessageExpiry = &v

		case PropContentType:
			s, err := decodeUTF8(pr)
			if err != nil {
				return nil, err
			}
			props.ContentType = s

		case PropResponseTopic:
			s, err := decodeUTF8(pr)
			if err != nil {
				return nil, err
			}
			props.ResponseTopic = s

		case PropCorrelationData:
			b, err := decodeBinaryCopy(pr)
			if err != nil {
				return nil, err
			}
			props.CorrelationData = b

		case PropSubscriptionIdentifier:
			v, _, err := pr.VarInt()
			if err != nil {
				return nil, err
			}
			if ctx == contextPublish {
				props.SubscriptionIdentifiers = append(props.SubscriptionIdentifiers, uint32(v))
			} else {
				props.SubscriptionIdentifiers = []uint32{uint32(v)}
			}

		case PropSessionExpiryInterval:
			v, err := pr.Uint32()
			if err != nil {
				return nil, err
			}
			props.SessionExpiryInterval = &v

		case PropAssignedClientIdentifier:
			s, err := decodeUTF8(pr)
			if err != nil {
				return nil, err
			}
			props.AssignedClientID = s

		case PropServerKeepAlive:
			v, err := pr.Uint16()
			if err != nil {
				return nil, err
			}
			props.ServerKeepAlive = &v

		case PropAuthenticationMethod:
			s, err := decodeUTF8(pr)
			if err != nil {
				return nil, err
			}
			props.AuthMethod = s

		case PropAuthenticationData:
			b, err := decodeBinaryCopy(pr)
			if err != nil {
				return nil, err
			}
			props.AuthData = b

		case PropRequestProblemInfo:
			b, err := pr.Uint8()
			if err != nil {
				return nil, err
			}
			props.RequestProblemInfo = &b

		case PropWillDelayInterval:
			v, err := pr.Uint32()
			if err != nil {
				return nil, err
			}
			props.WillDelayInterval = &v

		case PropRequestResponseInfo:
			b, err := pr.Uint8()
			if err != nil {
				return nil, err
			}
			props.RequestResponseInfo = &b

		case PropResponseInfo:
			s, err := decodeUTF8(pr)
			if err != nil {
				return nil, err
			}
			props.ResponseInfo = s

		case PropServerReference:
			s, err := decodeUTF8(pr)
			if err != nil {
				return nil, err
			}
			props.ServerReference = s

		case PropReasonString:
			s, err := decodeUTF8(pr)
			if err != nil {
				return nil, err
			}
			props.ReasonString = s

		case PropReceiveMaximum:
			v, err := pr.Uint16()
			if err != nil {
				return nil, err
			}
			props.ReceiveMaximum = &v

		case PropTopicAliasMaximum:
			v, err := pr.Uint16()
			if err != nil {
				return nil, err
			}
			props.TopicAliasMaximum = &v

		case PropTopicAlias:
			v, err := pr.Uint16()
			if err != nil {
				return nil, err
			}
			props.TopicAlias = &v

		case PropMaximumQoS:
			b, err := pr.Uint8()
			if err != nil {
				return nil, err
			}
			props.MaximumQoS = &b

		case PropRetainAvailable:
			b, err := pr.Uint8()
			if err != nil {
				return nil, err
			}
			props.RetainAvailable = &b

		case PropUserProperty:
			key, err := decodeUTF8(pr)
			if err != nil {
				return nil, err
			}
			value, err := decodeUTF8(pr)
			if err != nil {
				return nil, err
			}
			props.UserProperties = append(props.UserProperties, UserProperty{Key: key, Value: value})

		case PropMaximumPacketSize:
			v, err := pr.Uint32()
			if err != nil {
				return nil, err
			}
			props.MaximumPacketSize = &v

		case PropWildcardSubAvailable:
			b, err := pr.Uint8()
			if err != nil {
				return nil, err
			}
			props.WildcardSubAvailable = &b

		case PropSubIDAvailable:
			b, err := pr.Uint8()
			if err != nil {
				return nil, err
			}
			props.SubIDAvailable = &b

		case PropSharedSubAvailable:
			b, err := pr.Uint8()
			if err != nil {
				return nil, err
			}
			props.SharedSubAvailable = &b

		default:
			return nil, malformed("unknown property id")
		}
	}

	return props, nil
}

// decodeUTF8 reads a two-byte-length-prefixed UTF-8 string.
func decodeUTF8(r *wire.Reader) (string, error) {
	n, err := r.Uint16()
	if err != nil {
		return "", err
	}
	return r.UTF8(int(n))
}

// decodeBinaryCopy reads a two-byte-length-prefixed binary blob and
// returns an owned copy (properties outlive the sub-reader's window
// once the packet has been fully decoded and handed to the caller).
func decodeBinaryCopy(r *wire.Reader) ([]byte, error) {
	n, err := r.Uint16()
	if err != nil {
		return nil, err
	}
	b, err := r.Bytes(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// authDataNeedsMethod reports whether props carries authentication
// data without the authentication method that gives it meaning. This
// invariant applies everywhere AuthData/AuthMethod appear together:
// CONNECT, CONNACK and AUTH.
func authDataNeedsMethod(props *Properties) bool {
	return props != nil && props.AuthData != nil && props.AuthMethod == ""
}

// serverReferenceWithoutRedirect reports whether props names a
// ServerReference on a reason code other than the two redirects that
// give it meaning (Server_moved, Use_another_server).
func serverReferenceWithoutRedirect(reasonCode ReasonCode, props *Properties) bool {
	if props == nil || props.ServerReference == "" {
		return false
	}
	return reasonCode != ReasonServerMoved && reasonCode != ReasonUseAnotherServer
}
