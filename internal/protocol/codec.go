package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrEmptyType    = errors.New("protocol: empty message type")
	ErrEmptyMessage = errors.New("protocol: empty message")
	ErrEmptyPayload = errors.New("protocol: empty payload")
)

// Codec encodes envelopes and payloads for one wire format.
type Codec interface {
	// Name identifies the codec ("json", "msgpack").
	Name() string
	// Binary reports whether frames must be sent as binary messages.
	Binary() bool
	// Encode frames payload under message type t.
	Encode(t string, payload any) ([]byte, error)
	// Decode splits a frame into its type and raw payload.
	Decode(b []byte) (Envelope, error)
	// Unmarshal decodes a raw payload into v.
	Unmarshal(p []byte, v any) error
}

// CodecByName returns the codec for name, defaulting to JSON.
func CodecByName(name string) Codec {
	if name == (MsgpackCodec{}).Name() {
		return MsgpackCodec{}
	}
	return JSONCodec{}
}

// DecodePayload decodes the payload of env into a value of type T.
func DecodePayload[T any](c Codec, env Envelope) (T, error) {
	var out T
	if len(env.P) == 0 {
		return out, fmt.Errorf("%w for type %q", ErrEmptyPayload, env.T)
	}
	err := c.Unmarshal(env.P, &out)
	return out, err
}

// JSONCodec is the default text codec.
type JSONCodec struct{}

type jsonEnvelope struct {
	T string          `json:"t"`
	P json.RawMessage `json:"p,omitempty"`
}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Binary() bool { return false }

func (JSONCodec) Encode(t string, payload any) ([]byte, error) {
	if t == "" {
		return nil, ErrEmptyType
	}
	var raw json.RawMessage
	if payload != nil {
		pb, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = pb
	}
	return json.Marshal(jsonEnvelope{T: t, P: raw})
}

func (JSONCodec) Decode(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, ErrEmptyMessage
	}
	var e jsonEnvelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, err
	}
	if e.T == "" {
		return Envelope{}, ErrEmptyType
	}
	return Envelope{T: e.T, P: e.P}, nil
}

func (JSONCodec) Unmarshal(p []byte, v any) error {
	return json.Unmarshal(p, v)
}

// MsgpackCodec is the compact binary codec. It reuses the json struct tags so
// both codecs produce the same field names.
type MsgpackCodec struct{}

type msgpackEnvelope struct {
	T string             `json:"t"`
	P msgpack.RawMessage `json:"p,omitempty"`
}

func (MsgpackCodec) Name() string { return "msgpack" }

func (MsgpackCodec) Binary() bool { return true }

func (MsgpackCodec) Encode(t string, payload any) ([]byte, error) {
	if t == "" {
		return nil, ErrEmptyType
	}
	var raw msgpack.RawMessage
	if payload != nil {
		pb, err := marshalMsgpack(payload)
		if err != nil {
			return nil, err
		}
		raw = pb
	}
	return marshalMsgpack(msgpackEnvelope{T: t, P: raw})
}

func (c MsgpackCodec) Decode(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, ErrEmptyMessage
	}
	var e msgpackEnvelope
	if err := c.Unmarshal(b, &e); err != nil {
		return Envelope{}, err
	}
	if e.T == "" {
		return Envelope{}, ErrEmptyType
	}
	return Envelope{T: e.T, P: e.P}, nil
}

func (MsgpackCodec) Unmarshal(p []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(p))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

func marshalMsgpack(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
