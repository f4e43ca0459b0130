package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type JSONRPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

type JSONRPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type SlotRange struct {
	FirstSlot uint64 `json:"firstSlot"`
	LastSlot  uint64 `json:"lastSlot"`
}

// BlockProductionParams are the optional getBlockProduction arguments. The
// zero value sends no params at all.
type BlockProductionParams struct {
	Range      *SlotRange `json:"range,omitempty"`
	Commitment string     `json:"commitment,omitempty"`
}

func (p BlockProductionParams) args() []interface{} {
	if p.Range == nil && p.Commitment == "" {
		return nil
	}
	return []interface{}{p}
}

type BlockProductionResult struct {
	Context *ResponseContext     `json:"context,omitempty"`
	Value   BlockProductionValue `json:"value"`
}

type ResponseContext struct {
	Slot       uint64 `json:"slot"`
	APIVersion string `json:"apiVersion,omitempty"`
}

type BlockProductionValue struct {
	ByIdentity IdentityCounts `json:"byIdentity"`
	Range      SlotRange      `json:"range"`
}

type IdentityCount struct {
	Identity       string
	AssignedSlots  uint64
	ProducedBlocks uint64
}

// IdentityCounts is the byIdentity object kept in document order. A repeated
// key replaces the earlier value in place.
type IdentityCounts []IdentityCount

func (c *IdentityCounts) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*c = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("byIdentity: expected object, got %v", tok)
	}

	out := IdentityCounts{}
	index := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("byIdentity: unexpected key %v", keyTok)
		}

		var pair [2]uint64
		if err := dec.Decode(&pair); err != nil {
			return fmt.Errorf("byIdentity[%s]: %w", key, err)
		}

		entry := IdentityCount{Identity: key, AssignedSlots: pair[0], ProducedBlocks: pair[1]}
		if i, seen := index[key]; seen {
			out[i] = entry
			continue
		}
		index[key] = len(out)
		out = append(out, entry)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = out
	return nil
}

func (c IdentityCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Identity)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		fmt.Fprintf(&buf, ":[%d,%d]", e.AssignedSlots, e.ProducedBlocks)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Result is a successful call together with what the transport observed
// while making it.
type Result struct {
	Method      string          `json:"method"`
	Request     json.RawMessage `json:"request"`
	Body        json.RawMessage `json:"-"`
	Result      json.RawMessage `json:"-"`
	Endpoint    string          `json:"endpoint"`
	Attempts    int             `json:"attempts"`
	Elapsed     time.Duration   `json:"elapsed"`
	RateLimited bool            `json:"rateLimited"`
}
