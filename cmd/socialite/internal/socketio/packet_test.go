// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package socketio

import (
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_EnginePackets(t *testing.T) {
	tests := []struct {
		frame string
		want  EngineType
	}{
		{"2", EnginePing},
		{"3", EnginePong},
		{"1", EngineClose},
		{"6", EngineNoop},
	}
	for _, tt := range tests {
		t.Run(tt.frame, func(t *testing.T) {
			f, err := Decode([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Type)
			assert.Nil(t, f.Packet)
		})
	}
}

func TestDecode_Open(t *testing.T) {
	f, err := Decode([]byte(`0{"sid":"abc","upgrades":[],"pingInterval":25000,"pingTimeout":20000,"maxPayload":1000000}`))
	require.NoError(t, err)
	require.Equal(t, EngineOpen, f.Type)

	var h Handshake
	require.NoError(t, json.Unmarshal(f.Data, &h))
	assert.Equal(t, "abc", h.SID)
	assert.Equal(t, 45*time.Second, h.ReadTimeout())
}

func TestDecode_Event(t *testing.T) {
	f, err := Decode([]byte(`42["notification:new",{"_id":"n1"}]`))
	require.NoError(t, err)
	require.NotNil(t, f.Packet)
	assert.Equal(t, Event, f.Packet.Type)
	assert.Equal(t, DefaultNamespace, f.Packet.Namespace)
	assert.Equal(t, -1, f.Packet.ID)

	name, args, err := f.Packet.Event()
	require.NoError(t, err)
	assert.Equal(t, "notification:new", name)
	require.Len(t, args, 1)
	assert.JSONEq(t, `{"_id":"n1"}`, string(args[0]))
}

func TestDecode_NamespaceAndAckID(t *testing.T) {
	f, err := Decode([]byte(`42/admin,13["ping",1]`))
	require.NoError(t, err)
	assert.Equal(t, "/admin", f.Packet.Namespace)
	assert.Equal(t, 13, f.Packet.ID)

	f, err = Decode([]byte(`41/admin`))
	require.NoError(t, err)
	assert.Equal(t, Disconnect, f.Packet.Type)
	assert.Equal(t, "/admin", f.Packet.Namespace)
	assert.Nil(t, f.Packet.Data)
}

func TestDecode_Binary(t *testing.T) {
	f, err := Decode([]byte(`451-["upload",{"_placeholder":true,"num":0}]`))
	require.NoError(t, err)
	assert.Equal(t, BinaryEvent, f.Packet.Type)
	assert.Equal(t, 1, f.Packet.Attachments)

	_, _, err = f.Packet.Event()
	assert.ErrorIs(t, err, ErrNotEvent)
}

func TestDecode_Invalid(t *testing.T) {
	for _, frame := range []string{"", "x", "4", "49", `42{not json`, "45[]"} {
		t.Run(frame, func(t *testing.T) {
			_, err := Decode([]byte(frame))
			assert.Error(t, err)
		})
	}
}

func TestPacket_EventErrors(t *testing.T) {
	for _, frame := range []string{`42[]`, `42[7,{}]`, `42{"a":1}`} {
		t.Run(frame, func(t *testing.T) {
			f, err := Decode([]byte(frame))
			require.NoError(t, err)
			_, _, err = f.Packet.Event()
			assert.Error(t, err)
		})
	}
}

func TestEncode(t *testing.T) {
	connect, err := EncodeConnect(map[string]string{"token": "t1"})
	require.NoError(t, err)
	assert.Equal(t, `40{"token":"t1"}`, string(connect))

	bare, err := EncodeConnect(nil)
	require.NoError(t, err)
	assert.Equal(t, "40", string(bare))

	event, err := EncodeEvent("notification:new", map[string]string{"_id": "n1"})
	require.NoError(t, err)
	assert.Equal(t, `42["notification:new",{"_id":"n1"}]`, string(event))

	refused, err := EncodeConnectError("Unauthorized")
	require.NoError(t, err)
	f, err := Decode(refused)
	require.NoError(t, err)
	assert.Equal(t, ConnectError, f.Packet.Type)
	assert.Equal(t, "Unauthorized", f.Packet.ErrorMessage())

	assert.Equal(t, "41", string(EncodeDisconnect()))
	assert.Equal(t, `42/chat,7["x"]`, string(Encode(Packet{Type: Event, Namespace: "/chat", ID: 7, Data: json.RawMessage(`["x"]`)})))
}

func TestPacket_ErrorMessageFallbacks(t *testing.T) {
	assert.Equal(t, "nope", Packet{Data: json.RawMessage(`"nope"`)}.ErrorMessage())
	assert.Equal(t, "connection refused", Packet{}.ErrorMessage())
}

func TestDialURL(t *testing.T) {
	got := DialURL("ws://localhost:5000/", url.Values{"userId": {"u1"}})
	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "/socket.io/", u.Path)
	assert.Equal(t, "4", u.Query().Get("EIO"))
	assert.Equal(t, "websocket", u.Query().Get("transport"))
	assert.Equal(t, "u1", u.Query().Get("userId"))
}
