package httpclient

import httpcodec "github.com/wirepath/wirepath/codec/http"

// Get, Post, etc. are thin wrappers around Request for the common case of a
// keep-alive call against this Client's connection. They always buffer the
// whole response body: they take no stream or sink argument, so streaming
// to a sink goes through Request directly.
func (c *Client) Get(url string, headers map[string]string) (*httpcodec.Response, error) {
	return c.Request(httpcodec.Get, url, headers, nil, true, false, nil)
}

func (c *Client) Post(url string, headers map[string]string, body []byte) (*httpcodec.Response, error) {
	return c.Request(httpcodec.Post, url, headers, body, true, false, nil)
}

func (c *Client) Put(url string, headers map[string]string, body []byte) (*httpcodec.Response, error) {
	return c.Request(httpcodec.Put, url, headers, body, true, false, nil)
}

func (c *Client) Delete(url string, headers map[string]string) (*httpcodec.Response, error) {
	return c.Request(httpcodec.Delete, url, headers, nil, true, false, nil)
}

func (c *Client) Head(url string, headers map[string]string) (*httpcodec.Response, error) {
	return c.Request(httpcodec.Head, url, headers, nil, true, false, nil)
}

func (c *Client) Options(url string, headers map[string]string) (*httpcodec.Response, error) {
	return c.Request(httpcodec.Options, url, headers, nil, true, false, nil)
}

func (c *Client) Connect(url string, headers map[string]string) (*httpcodec.Response, error) {
	return c.Request(httpcodec.Connect, url, headers, nil, true, false, nil)
}

func (c *Client) Trace(url string, headers map[string]string) (*httpcodec.Response, error) {
	return c.Request(httpcodec.Trace, url, headers, nil, true, false, nil)
}

func (c *Client) Patch(url string, headers map[string]string, body []byte) (*httpcodec.Response, error) {
	return c.Request(httpcodec.Patch, url, headers, body, true, false, nil)
}

// Close releases the underlying connection, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.release()
	return nil
}

// Free functions below mirror the Client methods, except that there are no
// Connect or Trace free functions; each opens a throwaway, non-keep-alive
// connection for a single one-off request.

func Get(url string, headers map[string]string) (*httpcodec.Response, error) {
	c := NewClient()
	defer c.Close()
	return c.Request(httpcodec.Get, url, headers, nil, false, false, nil)
}

func Post(url string, headers map[string]string, body []byte) (*httpcodec.Response, error) {
	c := NewClient()
	defer c.Close()
	return c.Request(httpcodec.Post, url, headers, body, false, false, nil)
}

func Put(url string, headers map[string]string, body []byte) (*httpcodec.Response, error) {
	c := NewClient()
	defer c.Close()
	return c.Request(httpcodec.Put, url, headers, body, false, false, nil)
}

func Delete(url string, headers map[string]string) (*httpcodec.Response, error) {
	c := NewClient()
	defer c.Close()
	return c.Request(httpcodec.Delete, url, headers, nil, false, false, nil)
}

func Head(url string, headers map[string]string) (*httpcodec.Response, error) {
	c := NewClient()
	defer c.Close()
	return c.Request(httpcodec.Head, url, headers, nil, false, false, nil)
}

func Options(url string, headers map[string]string) (*httpcodec.Response, error) {
	c := NewClient()
	defer c.Close()
	return c.Request(httpcodec.Options, url, headers, nil, false, false, nil)
}

func Patch(url string, headers map[string]string, body []byte) (*httpcodec.Response, error) {
	c := NewClient()
	defer c.Close()
	return c.Request(httpcodec.Patch, url, headers, body, false, false, nil)
}
