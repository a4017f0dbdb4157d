package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
)

const opUploadFile = "upload file"

type uploadFileResponse struct {
	RequestID      string  `json:"request_id"`
	ID             *string `json:"id"`
	ConversationID string  `json:"conversation_id"`
}

// UploadFile uploads the regular file at path into a conversation and returns
// the file id to pass to Talk or TalkStream. The platform infers the file type
// from the extension of path.
func (c *Client) UploadFile(ctx context.Context, path, conversationID string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", &Error{Kind: KindInvalidArgument, Op: opUploadFile, Err: err}
	}
	if !info.Mode().IsRegular() {
		return "", &Error{Kind: KindInvalidArgument, Op: opUploadFile, Err: fmt.Errorf("%s is not a regular file", path)}
	}

	req, err := c.newUploadRequest(ctx, path, conversationID)
	if err != nil {
		return "", &Error{Kind: KindTransport, Op: opUploadFile, Err: err}
	}

	body, status, err := c.doOneShot(opUploadFile, req)
	if err != nil {
		return "", err
	}

	var resp uploadFileResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &Error{Kind: KindMissingField, Op: opUploadFile, Status: status, Body: string(body), Err: err}
	}
	if resp.ID == nil {
		return "", &Error{Kind: KindMissingField, Op: opUploadFile, Status: status, Body: string(body), Err: errors.New(`response has no "id"`)}
	}

	c.logger.Debug("file uploaded",
		zap.String("conversation_id", conversationID),
		zap.String("file_id", *resp.ID),
		zap.Int64("size", info.Size()),
	)

	return *resp.ID, nil
}
