package client

import (
	"context"
	"fmt"
	"net/http"

	msgmodel "QChat/module/message/model"
	usermodel "QChat/module/user/model"
	"QChat/tools/errs"

	"github.com/go-resty/resty/v2"
)

// PeerDirectory is one peer/unseen resync response: the full peer list and
// the per-peer unseen counts, as the server sees them.
type PeerDirectory struct {
	Peers  []usermodel.Summary
	Unseen map[string]int64
}

// Gateway is the message store contract the sync engine pulls from.
type Gateway interface {
	ListPeers(ctx context.Context) (PeerDirectory, error)
	ListMessages(ctx context.Context, peerID string) ([]msgmodel.Message, error)
	SendMessage(ctx context.Context, peerID string, content msgmodel.Content) (msgmodel.Message, error)
}

// HTTPGateway talks to the QChat HTTP API.
type HTTPGateway struct {
	rc *resty.Client
}

func NewHTTPGateway(baseURL, token string) *HTTPGateway {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetHeader("token", token)
	return &HTTPGateway{rc: rc}
}

type usersResponse struct {
	Success        bool                `json:"success"`
	Message        string              `json:"message"`
	Users          []usermodel.Summary `json:"users"`
	UnseenMessages map[string]int64    `json:"unseenMessages"`
}

type messagesResponse struct {
	Success  bool               `json:"success"`
	Message  string             `json:"message"`
	Messages []msgmodel.Message `json:"messages"`
}

type sendResponse struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message"`
	NewMessage msgmodel.Message `json:"newMessage"`
}

func (g *HTTPGateway) ListPeers(ctx context.Context) (PeerDirectory, error) {
	var out usersResponse
	resp, err := g.rc.R().SetContext(ctx).SetResult(&out).Get("/api/messages/users")
	if err := mapTransport(resp, err, out.Message); err != nil {
		return PeerDirectory{}, err
	}
	unseen := out.UnseenMessages
	if unseen == nil {
		unseen = map[string]int64{}
	}
	return PeerDirectory{Peers: out.Users, Unseen: unseen}, nil
}

func (g *HTTPGateway) ListMessages(ctx context.Context, peerID string) ([]msgmodel.Message, error) {
	var out messagesResponse
	resp, err := g.rc.R().SetContext(ctx).SetResult(&out).Get("/api/messages/" + peerID)
	if err := mapTransport(resp, err, out.Message); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (g *HTTPGateway) SendMessage(ctx context.Context, peerID string, content msgmodel.Content) (msgmodel.Message, error) {
	var out sendResponse
	resp, err := g.rc.R().SetContext(ctx).SetBody(content).SetResult(&out).Post("/api/messages/send/" + peerID)
	if err := mapTransport(resp, err, out.Message); err != nil {
		return msgmodel.Message{}, err
	}
	return out.NewMessage, nil
}

// mapTransport folds transport failures and HTTP statuses into the error
// taxonomy. Network errors are Unavailable: the next tick retries them.
func mapTransport(resp *resty.Response, err error, serverMsg string) error {
	if err != nil {
		return errs.ErrUnavailable.WrapMsg(err.Error())
	}
	if resp.IsSuccess() {
		return nil
	}
	detail := serverMsg
	if detail == "" {
		detail = fmt.Sprintf("http %d", resp.StatusCode())
	}
	switch resp.StatusCode() {
	case http.StatusUnauthorized:
		return errs.ErrUnauthorized.WrapMsg(detail)
	case http.StatusNotFound:
		return errs.ErrNotFound.WrapMsg(detail)
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		return errs.ErrInvalidContent.WrapMsg(detail)
	default:
		return errs.ErrUnavailable.WrapMsg(detail)
	}
}
