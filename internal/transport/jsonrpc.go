package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type jsonRPCRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

type jsonRPCResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    struct {
			Message string `json:"message"`
		} `json:"data"`
	} `json:"error"`
}

// CallJSON posts a JSON-RPC "call" to url and decodes the result into reply.
func CallJSON(ctx context.Context, client *http.Client, url string, params map[string]any, reply any) error {
	if params == nil {
		params = map[string]any{}
	}
	payload, err := json.Marshal(jsonRPCRequest{JSONRPC: "2.0", Method: "call", Params: params})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	var out jsonRPCResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&out); err != nil {
		return fmt.Errorf("decode json-rpc response: %w", err)
	}
	if out.Error != nil {
		msg := out.Error.Data.Message
		if msg == "" {
			msg = out.Error.Message
		}
		return &Fault{Code: fmt.Sprint(out.Error.Code), Message: msg}
	}
	if reply == nil || len(out.Result) == 0 {
		return nil
	}
	return json.Unmarshal(out.Result, reply)
}
