package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

// maxResponseBody bounds how much of a one-shot or error body is read.
const maxResponseBody = 8 << 20

func (c *Client) newRequest(ctx context.Context, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.appToken)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", contentType)

	return req, nil
}

func (c *Client) newJSONRequest(ctx context.Context, path string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	return c.newRequest(ctx, path, bytes.NewReader(body), "application/json")
}

// newUploadRequest streams the file at path as a multipart body so the file
// is never held in memory whole.
func (c *Client) newUploadRequest(ctx context.Context, path, conversationID string) (*http.Request, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		defer f.Close()
		pw.CloseWithError(c.writeUploadBody(mw, f, filepath.Base(path), conversationID))
	}()

	req, err := c.newRequest(ctx, uploadPath, pr, mw.FormDataContentType())
	if err != nil {
		pr.Close()
		return nil, err
	}

	return req, nil
}

// writeUploadBody writes the parts in the order app_id, file, conversation_id.
func (c *Client) writeUploadBody(mw *multipart.Writer, f io.Reader, filename, conversationID string) error {
	if err := mw.WriteField("app_id", c.appID); err != nil {
		return err
	}

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("copying file: %w", err)
	}

	if err := mw.WriteField("conversation_id", conversationID); err != nil {
		return err
	}

	return mw.Close()
}

// doOneShot sends req and returns the body of a 200 response. A transport
// failure, any other status or an empty body is a KindTransport error.
func (c *Client) doOneShot(op string, req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &Error{Kind: KindTransport, Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, resp.StatusCode, &Error{Kind: KindTransport, Op: op, Status: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, &Error{Kind: KindTransport, Op: op, Status: resp.StatusCode, Body: string(body), Err: ErrUnexpectedStatus}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, resp.StatusCode, &Error{Kind: KindTransport, Op: op, Status: resp.StatusCode, Err: ErrEmptyBody}
	}

	return body, resp.StatusCode, nil
}

// openStream sends req and returns the response once it is known to carry a
// 200 status and at least one byte of body. The returned reader replays that
// byte; the caller must close resp.Body.
func (c *Client) openStream(op string, req *http.Request) (*http.Response, io.Reader, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, &Error{Kind: KindStreamTransport, Op: op, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		return nil, nil, &Error{Kind: KindStreamTransport, Op: op, Status: resp.StatusCode, Body: string(body), Err: ErrUnexpectedStatus}
	}

	first := make([]byte, 1)
	if _, err := io.ReadFull(resp.Body, first); err != nil {
		resp.Body.Close()
		if errors.Is(err, io.EOF) {
			err = ErrEmptyBody
		}
		return nil, nil, &Error{Kind: KindStreamTransport, Op: op, Status: resp.StatusCode, Err: err}
	}

	return resp, io.MultiReader(bytes.NewReader(first), resp.Body), nil
}
