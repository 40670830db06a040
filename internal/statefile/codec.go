package statefile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec serializes documents.
type Codec interface {
	Encode(doc *Document) ([]byte, error)
	Decode(data []byte) (*Document, error)
	Name() string
	// Extension is the file extension, including the dot.
	Extension() string
}

var (
	// JSON is the human-readable codec.
	JSON Codec = jsonCodec{}
	// MsgpackZstd is the compact binary codec.
	MsgpackZstd Codec = msgpackZstdCodec{}
)

// CodecFor picks a codec by file name extension, defaulting to JSON.
func CodecFor(name string) Codec {
	if strings.HasSuffix(name, MsgpackZstd.Extension()) {
		return MsgpackZstd
	}
	return JSON
}

// CodecByName returns the codec called name.
func CodecByName(name string) (Codec, error) {
	switch name {
	case JSON.Name():
		return JSON, nil
	case MsgpackZstd.Name():
		return MsgpackZstd, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

type jsonCodec struct{}

func (jsonCodec) Encode(doc *Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

func (jsonCodec) Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("codec decoding failed: %w", err)
	}
	return &doc, nil
}

func (jsonCodec) Name() string      { return "json" }
func (jsonCodec) Extension() string { return ".json" }

// msgpackZstdCodec encodes with msgpack, reusing the json struct tags, and
// compresses the result with zstd.
type msgpackZstdCodec struct{}

func (msgpackZstdCodec) Encode(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("codec encoding failed: %w", err)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer encoder.Close()
	return encoder.EncodeAll(buf.Bytes(), nil), nil
}

func (msgpackZstdCodec) Decode(data []byte) (*Document, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer decoder.Close()

	raw, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompression failed: %w", err)
	}

	var doc Document
	dec := msgpack.NewDecoder(bytes.NewReader(raw))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("codec decoding failed: %w", err)
	}
	return &doc, nil
}

func (msgpackZstdCodec) Name() string      { return "msgpack+zstd" }
func (msgpackZstdCodec) Extension() string { return ".ngz" }
