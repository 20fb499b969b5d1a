// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package socketio encodes and decodes the Socket.IO v5 protocol carried
// over Engine.IO v4 websocket frames.
//
// # Overview
//
// Every websocket text frame is one Engine.IO packet: a type digit followed
// by its payload. Socket.IO packets ride inside Engine.IO message packets
// ("4"), so an event for the default namespace reads
//
//	42["notification:new",{"_id":"n1"}]
//
// Only text packets are supported; binary attachments are decoded as
// packets without data.
package socketio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Path is the default Engine.IO endpoint.
const Path = "/socket.io/"

// Protocol is the Engine.IO protocol revision sent as the EIO query value.
const Protocol = "4"

// DefaultNamespace is the namespace used when a packet names none.
const DefaultNamespace = "/"

// EngineType is an Engine.IO packet type.
type EngineType byte

const (
	EngineOpen    EngineType = '0'
	EngineClose   EngineType = '1'
	EnginePing    EngineType = '2'
	EnginePong    EngineType = '3'
	EngineMessage EngineType = '4'
	EngineUpgrade EngineType = '5'
	EngineNoop    EngineType = '6'
)

// PacketType is a Socket.IO packet type.
type PacketType byte

const (
	Connect      PacketType = '0'
	Disconnect   PacketType = '1'
	Event        PacketType = '2'
	Ack          PacketType = '3'
	ConnectError PacketType = '4'
	BinaryEvent  PacketType = '5'
	BinaryAck    PacketType = '6'
)

var (
	// ErrEmptyFrame is returned by Decode for a zero-length frame.
	ErrEmptyFrame = errors.New("socketio: empty frame")

	// ErrNotEvent is returned by Packet.Event for packets that carry no
	// event.
	ErrNotEvent = errors.New("socketio: not an event packet")
)

// Handshake is the payload of the Engine.IO open packet.
type Handshake struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"`
	PingTimeout  int      `json:"pingTimeout"`
	MaxPayload   int      `json:"maxPayload"`
}

// ReadTimeout is how long a client waits for the next frame before treating
// the connection as dead: one ping interval plus the ping timeout.
func (h Handshake) ReadTimeout() time.Duration {
	return time.Duration(h.PingInterval+h.PingTimeout) * time.Millisecond
}

// Frame is one decoded websocket frame.
type Frame struct {
	Type EngineType

	// Data is the raw payload of non-message packets.
	Data []byte

	// Packet is set for EngineMessage frames.
	Packet *Packet
}

// Packet is a Socket.IO packet.
type Packet struct {
	Type      PacketType
	Namespace string

	// ID is the acknowledgement id, or -1 when none was sent.
	ID int

	// Attachments counts binary attachments of binary packets.
	Attachments int

	Data json.RawMessage
}

// Decode parses one websocket text frame.
func Decode(frame []byte) (Frame, error) {
	if len(frame) == 0 {
		return Frame{}, ErrEmptyFrame
	}
	f := Frame{Type: EngineType(frame[0])}
	switch f.Type {
	case EngineOpen, EngineClose, EnginePing, EnginePong, EngineUpgrade, EngineNoop:
		f.Data = frame[1:]
	case EngineMessage:
		p, err := decodePacket(frame[1:])
		if err != nil {
			return Frame{}, err
		}
		f.Packet = &p
	default:
		return Frame{}, fmt.Errorf("socketio: unknown engine packet type %q", frame[0])
	}
	return f, nil
}

func decodePacket(b []byte) (Packet, error) {
	if len(b) == 0 {
		return Packet{}, errors.New("socketio: empty message packet")
	}
	p := Packet{Type: PacketType(b[0]), Namespace: DefaultNamespace, ID: -1}
	if p.Type < Connect || p.Type > BinaryAck {
		return Packet{}, fmt.Errorf("socketio: unknown packet type %q", b[0])
	}
	rest := b[1:]

	if p.Type == BinaryEvent || p.Type == BinaryAck {
		i := bytes.IndexByte(rest, '-')
		if i < 0 {
			return Packet{}, errors.New("socketio: binary packet without attachment count")
		}
		n, err := strconv.Atoi(string(rest[:i]))
		if err != nil {
			return Packet{}, fmt.Errorf("socketio: attachment count: %w", err)
		}
		p.Attachments, rest = n, rest[i+1:]
	}

	if len(rest) > 0 && rest[0] == '/' {
		if i := bytes.IndexByte(rest, ','); i >= 0 {
			p.Namespace, rest = string(rest[:i]), rest[i+1:]
		} else {
			p.Namespace, rest = string(rest), nil
		}
	}

	digits := 0
	for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
		digits++
	}
	if digits > 0 {
		id, err := strconv.Atoi(string(rest[:digits]))
		if err != nil {
			return Packet{}, fmt.Errorf("socketio: ack id: %w", err)
		}
		p.ID, rest = id, rest[digits:]
	}

	if len(rest) > 0 {
		if !json.Valid(rest) {
			return Packet{}, errors.New("socketio: packet payload is not JSON")
		}
		p.Data = json.RawMessage(rest)
	}
	return p, nil
}

// Event returns the event name and its arguments.
func (p Packet) Event() (string, []json.RawMessage, error) {
	if p.Type != Event {
		return "", nil, ErrNotEvent
	}
	var args []json.RawMessage
	if err := json.Unmarshal(p.Data, &args); err != nil {
		return "", nil, fmt.Errorf("socketio: event payload: %w", err)
	}
	if len(args) == 0 {
		return "", nil, errors.New("socketio: event without a name")
	}
	var name string
	if err := json.Unmarshal(args[0], &name); err != nil {
		return "", nil, fmt.Errorf("socketio: event name: %w", err)
	}
	return name, args[1:], nil
}

// ErrorMessage returns the message of a ConnectError packet.
func (p Packet) ErrorMessage() string {
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(p.Data, &body) == nil && body.Message != "" {
		return body.Message
	}
	var text string
	if json.Unmarshal(p.Data, &text) == nil && text != "" {
		return text
	}
	return "connection refused"
}

// =============================================================================
// Encoding
// =============================================================================

// Ping and Pong are the Engine.IO heartbeat frames.
var (
	Ping = []byte{byte(EnginePing)}
	Pong = []byte{byte(EnginePong)}
)

// Encode renders p as an Engine.IO message frame.
func Encode(p Packet) []byte {
	var b bytes.Buffer
	b.WriteByte(byte(EngineMessage))
	b.WriteByte(byte(p.Type))
	if p.Type == BinaryEvent || p.Type == BinaryAck {
		b.WriteString(strconv.Itoa(p.Attachments))
		b.WriteByte('-')
	}
	if p.Namespace != "" && p.Namespace != DefaultNamespace {
		b.WriteString(p.Namespace)
		b.WriteByte(',')
	}
	if p.ID >= 0 {
		b.WriteString(strconv.Itoa(p.ID))
	}
	b.Write(p.Data)
	return b.Bytes()
}

// EncodeOpen renders the Engine.IO open frame.
func EncodeOpen(h Handshake) ([]byte, error) {
	data, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	return append([]byte{byte(EngineOpen)}, data...), nil
}

// EncodeConnect renders a Connect packet for the default namespace. Clients
// send their auth object; servers answer with {"sid":...}.
func EncodeConnect(payload any) ([]byte, error) {
	p := Packet{Type: Connect, ID: -1}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		p.Data = data
	}
	return Encode(p), nil
}

// EncodeConnectError renders a ConnectError packet carrying message.
func EncodeConnectError(message string) ([]byte, error) {
	data, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return nil, err
	}
	return Encode(Packet{Type: ConnectError, ID: -1, Data: data}), nil
}

// EncodeEvent renders an event for the default namespace.
func EncodeEvent(event string, args ...any) ([]byte, error) {
	data, err := json.Marshal(append([]any{event}, args...))
	if err != nil {
		return nil, err
	}
	return Encode(Packet{Type: Event, ID: -1, Data: data}), nil
}

// EncodeDisconnect renders a Disconnect packet for the default namespace.
func EncodeDisconnect() []byte {
	return Encode(Packet{Type: Disconnect, ID: -1})
}

// DialURL returns the websocket URL of the Engine.IO endpoint under base
// with query appended to the protocol parameters.
func DialURL(base string, query url.Values) string {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("EIO", Protocol)
	q.Set("transport", "websocket")
	return strings.TrimSuffix(base, "/") + Path + "?" + q.Encode()
}
