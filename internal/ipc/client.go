package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

const dialTimeout = 2 * time.Second

// Client calls the daemon over its socket. It is not safe to use after Close.
type Client struct {
	rpc *rpc.Client
}

// Dial connects to the daemon socket at path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return nil, err
	}
	return &Client{rpc: jsonrpc.NewClient(conn)}, nil
}

// Close hangs up.
func (c *Client) Close() error {
	return c.rpc.Close()
}

func call[Resp any](c *Client, method string, req any) (*Resp, error) {
	var resp Resp
	if err := c.rpc.Call(ServiceName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Start requests the daemon to start its loops.
func (c *Client) Start() (*StartResponse, error) {
	return call[StartResponse](c, "Start", StartRequest{})
}

// Stop requests the daemon to stop its loops.
func (c *Client) Stop() (*StopResponse, error) {
	return call[StopResponse](c, "Stop", StopRequest{})
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusResponse](c, "Status", StatusRequest{})
}

// Scan verifies pending download folders.
func (c *Client) Scan(async bool) (*ScanResponse, error) {
	return call[ScanResponse](c, "Scan", ScanRequest{Async: async})
}

// Search queues a wanted-album search.
func (c *Client) Search() (*SearchResponse, error) {
	return call[SearchResponse](c, "Search", SearchRequest{})
}

// SnatchList returns snatches optionally filtered by statuses.
func (c *Client) SnatchList(statuses []string) (*SnatchListResponse, error) {
	return call[SnatchListResponse](c, "SnatchList", SnatchListRequest{Statuses: statuses})
}

// SnatchDescribe returns details for a single snatch.
func (c *Client) SnatchDescribe(id int64) (*SnatchDescribeResponse, error) {
	return call[SnatchDescribeResponse](c, "SnatchDescribe", SnatchDescribeRequest{ID: id})
}

// SnatchClear removes finished snatches.
func (c *Client) SnatchClear(statuses []string) (*SnatchClearResponse, error) {
	return call[SnatchClearResponse](c, "SnatchClear", SnatchClearRequest{Statuses: statuses})
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	return call[TestNotificationResponse](c, "TestNotification", TestNotificationRequest{})
}
