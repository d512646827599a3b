package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/kolo/xmlrpc"
)

const maxResponseSize = 64 << 20

// RPCClient calls methods on one XML-RPC endpoint.
type RPCClient struct {
	URL  string
	HTTP *http.Client
}

// NewRPCClient binds an endpoint URL to an HTTP client.
func NewRPCClient(url string, client *http.Client) *RPCClient {
	return &RPCClient{URL: url, HTTP: client}
}

// Call invokes method with positional args and decodes the response into
// reply (which may be nil). Server faults are returned as *Fault.
func (c *RPCClient) Call(ctx context.Context, method string, args []any, reply any) error {
	payload, err := xmlrpc.EncodeMethodCall(method, args...)
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	response := xmlrpc.Response(body)
	if ferr := response.Err(); ferr != nil {
		return toFault(body, ferr)
	}
	if reply == nil {
		return nil
	}
	if err := response.Unmarshal(reply); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}

func toFault(body []byte, err error) *Fault {
	var fe xmlrpc.FaultError
	if errors.As(err, &fe) {
		return &Fault{Code: strconv.Itoa(fe.Code), Message: fe.String}
	}
	// The fault did not decode into the library's shape (string fault
	// codes), fall back to the raw faultString.
	return &Fault{Message: faultStringFromBody(body)}
}
