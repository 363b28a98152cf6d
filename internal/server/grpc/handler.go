package grpc

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/dmitrijs2005/tradeportal/internal/oa"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
	"github.com/dmitrijs2005/tradeportal/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const uploaderNode = "node"

func str(in *structpb.Struct, key string) string {
	return in.GetFields()[key].GetStringValue()
}

func required(in *structpb.Struct, keys ...string) error {
	for _, k := range keys {
		if str(in, k) == "" {
			return status.Errorf(codes.InvalidArgument, "%s is required", k)
		}
	}
	return nil
}

func reply(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func (s *GRPCServer) caller(ctx context.Context) string {
	if c, ok := ClaimsFromContext(ctx); ok {
		return c.NodeID
	}
	return ""
}

func (s *GRPCServer) Ping(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return reply(map[string]any{"status": "OK"})
}

func (s *GRPCServer) callerJurisdiction(ctx context.Context) string {
	if c, ok := ClaimsFromContext(ctx); ok {
		return c.Jurisdiction
	}
	return ""
}

// DeliverMessage stores a message, inbound unless direction is "outbound".
// Redelivering a sender_ref updates the stored message and reports
// created=false.
func (s *GRPCServer) DeliverMessage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := required(req, "sender_ref"); err != nil {
		return nil, err
	}
	outbound, err := models.ParseDirection(str(req, "direction"))
	if err != nil {
		return nil, toStatus(err)
	}

	var body json.RawMessage
	if v, ok := req.GetFields()["body"]; ok {
		b, err := v.MarshalJSON()
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, "body is not valid JSON")
		}
		body = b
	}

	m, created, err := s.reconciler.Ingest(ctx, services.InboundMessage{
		SenderRef:  str(req, "sender_ref"),
		Subject:    str(req, "subject"),
		Body:       body,
		DocumentID: str(req, "document_id"),
		IsOutbound: outbound,
	})
	if err != nil {
		s.logger.Error(ctx, "deliver message failed", "node_id", s.caller(ctx), "error", err)
		return nil, toStatus(err)
	}
	return reply(map[string]any{"message_id": m.ID, "created": created})
}

// UpdateStatus reports a transport status for a message by sender_ref.
func (s *GRPCServer) UpdateStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := required(req, "sender_ref", "status"); err != nil {
		return nil, err
	}
	next, err := models.ParseMessageStatus(str(req, "status"))
	if err != nil {
		return nil, toStatus(err)
	}
	if err := s.reconciler.Process(ctx, str(req, "sender_ref"), next, str(req, "note")); err != nil {
		s.logger.Warn(ctx, "status update rejected", "node_id", s.caller(ctx), "sender_ref", str(req, "sender_ref"), "error", err)
		return nil, toStatus(err)
	}
	return reply(map[string]any{"status": string(next)})
}

// LearnLocator stores the URI and key of an inbound document's OA envelope.
func (s *GRPCServer) LearnLocator(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := required(req, "document_id", "uri", "key"); err != nil {
		return nil, err
	}
	d, err := s.documents.Get(ctx, str(req, "document_id"))
	if err != nil {
		return nil, toStatus(err)
	}
	if d.OaID == "" {
		return nil, toStatus(common.ErrInvalidState)
	}
	if err := s.locators.Learn(ctx, d.OaID, oa.Locator{URI: str(req, "uri"), Key: str(req, "key")}); err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"oa_id": d.OaID})
}

// ImportDocument creates a document received from the caller's
// jurisdiction. intergov_details is stored as delivered; its obj names the
// attachment holding the canonical object, which AttachObject hands over.
func (s *GRPCServer) ImportDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := required(req, "type"); err != nil {
		return nil, err
	}
	typ, err := models.ParseDocumentType(str(req, "type"))
	if err != nil {
		return nil, toStatus(err)
	}

	d := &models.Document{
		Type:                typ,
		DocumentNumber:      str(req, "document_number"),
		SendingJurisdiction: str(req, "sending_jurisdiction"),
		ImportingCountry:    str(req, "importing_country"),
		ImporterName:        str(req, "importer_name"),
		ConsignmentRef:      str(req, "consignment_ref"),
	}
	if d.SendingJurisdiction == "" {
		d.SendingJurisdiction = s.callerJurisdiction(ctx)
	}
	if d.ImportingCountry == "" {
		d.ImportingCountry = s.home
	}
	if v, ok := req.GetFields()["intergov_details"]; ok {
		b, err := v.MarshalJSON()
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, "intergov_details is not valid JSON")
		}
		if err := json.Unmarshal(b, &d.IntergovDetails); err != nil {
			return nil, status.Error(codes.InvalidArgument, "intergov_details must be an object")
		}
	}

	saved, err := s.documents.Import(ctx, d)
	if err != nil {
		s.logger.Warn(ctx, "import rejected", "node_id", s.caller(ctx), "error", err)
		return nil, toStatus(err)
	}
	s.logger.Info(ctx, "document imported", "node_id", s.caller(ctx), "document_id", saved.ID)
	return reply(map[string]any{
		"document_id":     saved.ID,
		"oa_id":           saved.OaID,
		"workflow_status": string(saved.WorkflowStatus),
	})
}

// AttachObject stores a file delivered with an inbound document. With
// canonical set the file becomes the canonical object named by
// intergov_details.obj.
func (s *GRPCServer) AttachObject(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := required(req, "document_id", "filename", "content"); err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(str(req, "content"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "content must be base64")
	}
	f, err := s.files.Store(ctx, str(req, "document_id"), data, str(req, "filename"), uploaderNode)
	if err != nil {
		return nil, toStatus(err)
	}
	canonical := req.GetFields()["canonical"].GetBoolValue()
	if canonical {
		if _, err := s.documents.SetCanonicalObject(ctx, str(req, "document_id"), f.Filename); err != nil {
			return nil, toStatus(err)
		}
	}
	return reply(map[string]any{"file_id": f.ID, "size": float64(f.Size), "canonical": canonical})
}
