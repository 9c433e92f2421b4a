package ruleapi

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/regrule/internal/model"
)

type rulePayload struct {
	Rule string `json:"rule"`
}

type categoryPayload struct {
	Rule     string `json:"rule"`
	Category string `json:"category"`
}

type generatePayload struct {
	Rule       string          `json:"rule"`
	Category   string          `json:"category"`
	EntityInfo json.RawMessage `json:"entity_info"`
}

// flagResponse is the {"data": n} shape of the verdict stages.
type flagResponse struct {
	Data json.RawMessage `json:"data"`
}

func (c *httpClient) CheckAtomicity(ctx context.Context, text string) (model.Atomicity, error) {
	raw, err := c.Call(ctx, EndpointCheck, rulePayload{Rule: text})
	if err != nil {
		return 0, err
	}
	n, err := decodeFlag(raw)
	if err != nil {
		return 0, eris.Wrap(err, "ruleapi: decode check response")
	}
	if n == int(model.AtomicityComplex) {
		return model.AtomicityComplex, nil
	}
	return model.AtomicityAtomic, nil
}

func (c *httpClient) Split(ctx context.Context, text string) ([]model.AtomicRule, error) {
	raw, err := c.Call(ctx, EndpointSplit, rulePayload{Rule: text})
	if err != nil {
		return nil, err
	}
	var resp struct {
		RuleList []model.AtomicRule `json:"ruleList"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, eris.Wrap(err, "ruleapi: decode split response")
	}
	return resp.RuleList, nil
}

func (c *httpClient) Identify(ctx context.Context, text string) (model.Supervision, error) {
	raw, err := c.Call(ctx, EndpointIdentify, rulePayload{Rule: text})
	if err != nil {
		return 0, err
	}
	n, err := decodeFlag(raw)
	if err != nil {
		return 0, eris.Wrap(err, "ruleapi: decode identify response")
	}
	if n == int(model.AutoSupervised) {
		return model.AutoSupervised, nil
	}
	return model.NotAutoSupervised, nil
}

func (c *httpClient) Classify(ctx context.Context, text string) (string, string, error) {
	raw, err := c.Call(ctx, EndpointClassify, rulePayload{Rule: text})
	if err != nil {
		return "", "", err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		// Absent or non-object body: both values default to empty.
		return "", "", nil
	}
	return stringField(fields, "category"), stringField(fields, "type"), nil
}

func (c *httpClient) ExtractCommonElement(ctx context.Context, text, category string) (json.RawMessage, error) {
	return c.Call(ctx, EndpointExtract, categoryPayload{Rule: text, Category: category})
}

func (c *httpClient) GenerateCDSRL(ctx context.Context, text, category string, entityInfo json.RawMessage) (json.RawMessage, error) {
	if len(entityInfo) == 0 {
		entityInfo = json.RawMessage("null")
	}
	return c.Call(ctx, EndpointGenerate, generatePayload{Rule: text, Category: category, EntityInfo: entityInfo})
}

// decodeFlag reads the "data" field as an integer. Numbers, numeric strings
// and booleans are accepted.
func decodeFlag(raw json.RawMessage) (int, error) {
	var resp flagResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return 0, err
	}
	data := bytes.TrimSpace(resp.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0, eris.New("missing data field")
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		return numberToInt(n)
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return numberToInt(json.Number(s))
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if b {
			return 1, nil
		}
		return 0, nil
	}
	return 0, eris.Errorf("unsupported data value %s", string(data))
}

func numberToInt(n json.Number) (int, error) {
	if i, err := n.Int64(); err == nil {
		return int(i), nil
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return 0, eris.Wrapf(err, "parse data value %q", n.String())
	}
	return int(f), nil
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
