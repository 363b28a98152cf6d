package grpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/dmitrijs2005/tradeportal/internal/oa"
	"github.com/dmitrijs2005/tradeportal/internal/server/auth"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

var ErrUnavailable = errors.New("node unavailable")

// ClientConfig identifies the calling peer node. Tokens are minted locally
// with the secret shared between nodes.
type ClientConfig struct {
	NodeID       string
	Jurisdiction string
	SecretKey    string
	Validity     time.Duration
}

// NodeClient is the peer side of the node callback service.
type NodeClient struct {
	cfg  ClientConfig
	conn *grpc.ClientConn

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
	now         func() time.Time
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func NewNodeClient(endpointURL string, cfg ClientConfig, opts ...grpc.DialOption) (*NodeClient, error) {
	if cfg.Validity <= 0 {
		cfg.Validity = 15 * time.Minute
	}
	c := &NodeClient{cfg: cfg, now: time.Now}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func (c *NodeClient) Close() error {
	return c.conn.Close()
}

// token returns the cached token, minting a new one when it is missing,
// about to expire or force is set.
func (c *NodeClient) token(force bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !force && c.accessToken != "" && c.now().Add(5*time.Second).Before(c.expiresAt) {
		return c.accessToken, nil
	}
	tok, err := auth.GenerateToken(c.cfg.NodeID, c.cfg.Jurisdiction, []byte(c.cfg.SecretKey), c.cfg.Validity)
	if err != nil {
		return "", err
	}
	c.accessToken = tok
	c.expiresAt = c.now().Add(c.cfg.Validity)
	return tok, nil
}

func (c *NodeClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if open[method] {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	tok, err := c.token(false)
	if err != nil {
		return err
	}

	err = invoker(withAccessToken(ctx, tok), method, req, reply, cc, opts...)
	if status.Code(err) != codes.Unauthenticated {
		return err
	}

	// the server does not tell an expired token from a bad one, so retry
	// once with a fresh token
	tok, terr := c.token(true)
	if terr != nil {
		return err
	}
	return invoker(withAccessToken(ctx, tok), method, req, reply, cc, opts...)
}

func (c *NodeClient) call(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, method, in, out); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (c *NodeClient) Ping(ctx context.Context) error {
	resp, err := c.call(ctx, MethodPing, nil)
	if err != nil {
		return err
	}
	if str(resp, "status") != "OK" {
		return ErrUnavailable
	}
	return nil
}

// DeliverMessage hands an inbound message to the portal. body must be a
// JSON object.
func (c *NodeClient) DeliverMessage(ctx context.Context, senderRef, subject, documentID string, body json.RawMessage) (string, bool, error) {
	return c.deliver(ctx, senderRef, subject, documentID, body, models.DirectionInbound)
}

// DeliverOutbound reports a message the portal sent, so later status
// updates apply to its document.
func (c *NodeClient) DeliverOutbound(ctx context.Context, senderRef, subject, documentID string, body json.RawMessage) (string, bool, error) {
	return c.deliver(ctx, senderRef, subject, documentID, body, models.DirectionOutbound)
}

func (c *NodeClient) deliver(ctx context.Context, senderRef, subject, documentID string, body json.RawMessage, direction string) (string, bool, error) {
	fields := map[string]any{"sender_ref": senderRef, "subject": subject, "direction": direction}
	if documentID != "" {
		fields["document_id"] = documentID
	}
	if len(body) > 0 {
		var v map[string]any
		if err := json.Unmarshal(body, &v); err != nil {
			return "", false, fmt.Errorf("%w: body must be a JSON object", common.ErrorValidation)
		}
		fields["body"] = v
	}

	resp, err := c.call(ctx, MethodDeliverMessage, fields)
	if err != nil {
		return "", false, err
	}
	return str(resp, "message_id"), resp.GetFields()["created"].GetBoolValue(), nil
}

// ImportRequest describes a document handed over by its sending
// jurisdiction. IntergovDetails is sent as is.
type ImportRequest struct {
	Type                models.DocumentType
	DocumentNumber      string
	SendingJurisdiction string
	ImportingCountry    string
	ImporterName        string
	ConsignmentRef      string
	IntergovDetails     models.IntergovDetails
}

// ImportDocument creates the incoming document and returns its id and
// locator id.
func (c *NodeClient) ImportDocument(ctx context.Context, req ImportRequest) (string, string, error) {
	fields := map[string]any{
		"type":                 string(req.Type),
		"document_number":      req.DocumentNumber,
		"sending_jurisdiction": req.SendingJurisdiction,
		"importing_country":    req.ImportingCountry,
		"importer_name":        req.ImporterName,
		"consignment_ref":      req.ConsignmentRef,
	}
	raw, err := json.Marshal(req.IntergovDetails)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	var details map[string]any
	if err := json.Unmarshal(raw, &details); err != nil {
		return "", "", fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	if len(details) > 0 {
		fields["intergov_details"] = details
	}

	resp, err := c.call(ctx, MethodImportDocument, fields)
	if err != nil {
		return "", "", err
	}
	return str(resp, "document_id"), str(resp, "oa_id"), nil
}

func (c *NodeClient) UpdateStatus(ctx context.Context, senderRef string, next models.MessageStatus, note string) error {
	_, err := c.call(ctx, MethodUpdateStatus, map[string]any{"sender_ref": senderRef, "status": string(next), "note": note})
	return err
}

func (c *NodeClient) LearnLocator(ctx context.Context, documentID string, pair oa.Locator) (string, error) {
	resp, err := c.call(ctx, MethodLearnLocator, map[string]any{"document_id": documentID, "uri": pair.URI, "key": pair.Key})
	if err != nil {
		return "", err
	}
	return str(resp, "oa_id"), nil
}

// AttachObject uploads a file of an inbound document. canonical marks it
// as the document's canonical object.
func (c *NodeClient) AttachObject(ctx context.Context, documentID, filename string, content []byte, canonical bool) (string, error) {
	resp, err := c.call(ctx, MethodAttachObject, map[string]any{
		"document_id": documentID,
		"filename":    filename,
		"content":     base64.StdEncoding.EncodeToString(content),
		"canonical":   canonical,
	})
	if err != nil {
		return "", err
	}
	return str(resp, "file_id"), nil
}

// mapError turns gRPC codes back into the sentinels toStatus started from.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", common.ErrorUnauthorized, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", common.ErrorNotFound, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", common.ErrorValidation, st.Message())
	case codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", common.ErrInvalidState, st.Message())
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %s", common.ErrorAlreadyExists, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
