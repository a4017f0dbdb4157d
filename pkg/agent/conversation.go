package agent

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
)

const opNewConversation = "new conversation"

type newConversationRequest struct {
	AppID string `json:"app_id"`
}

type newConversationResponse struct {
	RequestID      string  `json:"request_id"`
	ConversationID *string `json:"conversation_id"`
}

// NewConversation opens a conversation with the app and returns its id.
func (c *Client) NewConversation(ctx context.Context) (string, error) {
	req, err := c.newJSONRequest(ctx, conversationPath, newConversationRequest{AppID: c.appID})
	if err != nil {
		return "", &Error{Kind: KindTransport, Op: opNewConversation, Err: err}
	}

	body, status, err := c.doOneShot(opNewConversation, req)
	if err != nil {
		return "", err
	}

	var resp newConversationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &Error{Kind: KindMissingField, Op: opNewConversation, Status: status, Body: string(body), Err: err}
	}
	if resp.ConversationID == nil {
		return "", &Error{Kind: KindMissingField, Op: opNewConversation, Status: status, Body: string(body), Err: errors.New(`response has no "conversation_id"`)}
	}

	c.logger.Debug("conversation created",
		zap.String("conversation_id", *resp.ConversationID),
		zap.String("request_id", resp.RequestID),
	)

	return *resp.ConversationID, nil
}
