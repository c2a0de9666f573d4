package queue

import (
	"encoding/json"
	"fmt"

	"github.com/tinylib/msgp/msgp"

	"github.com/tracebeam/courier/types"
)

// Codec serializes the full queue snapshot for the persisted slot.
//
// The mode determines the element shape: ordered field objects for
// ModePost, query strings for ModeGet. Decode must fail on any element
// that does not match the mode's shape so the store can discard the
// corrupted snapshot wholesale.
type Codec interface {
	// Encode serializes the records into a single slot value.
	Encode(mode types.Mode, records []types.Record) ([]byte, error)

	// Decode parses a slot value back into an ordered record sequence.
	Decode(mode types.Mode, data []byte) ([]types.Record, error)
}

// JSONCodec is the default persisted format: a JSON array of payload
// objects (post) or query strings (get).
type JSONCodec struct{}

// Compile-time assertion that JSONCodec implements Codec.
var _ Codec = JSONCodec{}

// Encode serializes the records as a JSON array.
func (JSONCodec) Encode(mode types.Mode, records []types.Record) ([]byte, error) {
	switch mode {
	case types.ModeGet:
		items := make([]string, 0, len(records))
		for _, rec := range records {
			get, ok := rec.(types.GetRecord)
			if !ok {
				return nil, fmt.Errorf("courier: record %T is not a get record", rec)
			}
			items = append(items, string(get))
		}

		return json.Marshal(items)
	default:
		items := make([]*types.Payload, 0, len(records))
		for _, rec := range records {
			post, ok := rec.(*types.PostRecord)
			if !ok {
				return nil, fmt.Errorf("courier: record %T is not a post record", rec)
			}
			items = append(items, post.Payload)
		}

		return json.Marshal(items)
	}
}

// Decode parses a JSON array back into records. Byte sizes of post
// records are recomputed from the decoded payloads.
func (JSONCodec) Decode(mode types.Mode, data []byte) ([]types.Record, error) {
	switch mode {
	case types.ModeGet:
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("courier: decoding get queue: %w", err)
		}

		records := make([]types.Record, 0, len(items))
		for _, item := range items {
			records = append(records, types.GetRecord(item))
		}

		return records, nil
	default:
		var items []*types.Payload
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("courier: decoding post queue: %w", err)
		}

		records := make([]types.Record, 0, len(items))
		for _, item := range items {
			if item == nil {
				item = types.NewPayload()
			}
			records = append(records, types.NewPostRecord(item))
		}

		return records, nil
	}
}

// MsgpCodec is a compact MessagePack encoding for byte-oriented stores.
//
// Post queues are encoded as an array of maps (field order preserved),
// get queues as an array of strings.
type MsgpCodec struct{}

// Compile-time assertion that MsgpCodec implements Codec.
var _ Codec = MsgpCodec{}

// Encode serializes the records as a MessagePack array.
func (MsgpCodec) Encode(mode types.Mode, records []types.Record) ([]byte, error) {
	buf := msgp.AppendArrayHeader(nil, uint32(len(records)))

	for _, rec := range records {
		switch mode {
		case types.ModeGet:
			get, ok := rec.(types.GetRecord)
			if !ok {
				return nil, fmt.Errorf("courier: record %T is not a get record", rec)
			}
			buf = msgp.AppendString(buf, string(get))
		default:
			post, ok := rec.(*types.PostRecord)
			if !ok {
				return nil, fmt.Errorf("courier: record %T is not a post record", rec)
			}
			fields := post.Payload.Fields()
			buf = msgp.AppendMapHeader(buf, uint32(len(fields)))
			for _, f := range fields {
				buf = msgp.AppendString(buf, f.Key)
				buf = msgp.AppendString(buf, f.Value)
			}
		}
	}

	return buf, nil
}

// Decode parses a MessagePack array back into records.
func (MsgpCodec) Decode(mode types.Mode, data []byte) ([]types.Record, error) {
	count, buf, err := msgp.ReadArrayHeaderBytes(data)
	if err != nil {
		return nil, fmt.Errorf("courier: decoding queue header: %w", err)
	}

	records := make([]types.Record, 0, count)
	for i := uint32(0); i < count; i++ {
		switch mode {
		case types.ModeGet:
			var item string
			item, buf, err = msgp.ReadStringBytes(buf)
			if err != nil {
				return nil, fmt.Errorf("courier: decoding get record: %w", err)
			}
			records = append(records, types.GetRecord(item))
		default:
			var size uint32
			size, buf, err = msgp.ReadMapHeaderBytes(buf)
			if err != nil {
				return nil, fmt.Errorf("courier: decoding post record: %w", err)
			}

			payload := types.NewPayload()
			for j := uint32(0); j < size; j++ {
				var key, value string
				key, buf, err = msgp.ReadStringBytes(buf)
				if err != nil {
					return nil, fmt.Errorf("courier: decoding field key: %w", err)
				}
				value, buf, err = msgp.ReadStringBytes(buf)
				if err != nil {
					return nil, fmt.Errorf("courier: decoding field value: %w", err)
				}
				payload.Append(key, value)
			}
			records = append(records, types.NewPostRecord(payload))
		}
	}

	return records, nil
}
