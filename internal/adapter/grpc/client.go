package grpc

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls the RemittanceService with dto requests and views
type Client struct {
	conn  grpc.ClientConnInterface
	token string
}

// NewClient creates a new RemittanceService client. The token is sent as
// the authorization metadata on every call.
func NewClient(conn grpc.ClientConnInterface, token string) *Client {
	return &Client{conn: conn, token: token}
}

// Call invokes method with req and decodes the response into resp
func (c *Client) Call(ctx context.Context, method string, req, resp interface{}) error {
	raw, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}
	in := new(structpb.Struct)
	if err := in.UnmarshalJSON(raw); err != nil {
		return fmt.Errorf("failed to build %s request: %w", method, err)
	}

	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", c.token)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out); err != nil {
		return err
	}

	if resp == nil {
		return nil
	}
	raw, err = out.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", method, err)
	}
	if err := json.Unmarshal(raw, resp); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	return nil
}
