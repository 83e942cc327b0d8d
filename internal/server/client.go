package server

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/docbatch/internal/entity"
)

// Client is a typed client for the batch service.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) SelectFiles(ctx context.Context, paths []string) (SelectResponse, error) {
	var out SelectResponse
	err := c.structCall(ctx, "SelectFiles", SelectRequest{Paths: paths}, &out)
	return out, err
}

// SetTemplate activates a template by name or server-side path. An empty ref clears it and returns nil.
func (c *Client) SetTemplate(ctx context.Context, ref string) (*entity.Template, error) {
	resp := &structpb.Struct{}
	if err := c.cc.Invoke(ctx, fullMethod("SetTemplate"), wrapperspb.String(ref), resp); err != nil {
		return nil, err
	}
	if len(resp.GetFields()) == 0 {
		return nil, nil
	}
	var tpl entity.Template
	if err := fromStruct(resp, &tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (c *Client) SetOptions(ctx context.Context, mode, format string) error {
	req, err := toStruct(OptionsRequest{Mode: mode, Format: format})
	if err != nil {
		return err
	}
	return c.cc.Invoke(ctx, fullMethod("SetOptions"), req, &emptypb.Empty{})
}

// ProcessFiles starts a background run and returns its job id.
func (c *Client) ProcessFiles(ctx context.Context, prompt string) (uuid.UUID, error) {
	resp := &wrapperspb.StringValue{}
	if err := c.cc.Invoke(ctx, fullMethod("ProcessFiles"), wrapperspb.String(prompt), resp); err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(resp.GetValue())
}

func (c *Client) CancelRun(ctx context.Context) (bool, error) {
	resp := &wrapperspb.BoolValue{}
	err := c.cc.Invoke(ctx, fullMethod("CancelRun"), &emptypb.Empty{}, resp)
	return resp.GetValue(), err
}

func (c *Client) GetState(ctx context.Context) (StateView, error) {
	var out StateView
	resp := &structpb.Struct{}
	if err := c.cc.Invoke(ctx, fullMethod("GetState"), &emptypb.Empty{}, resp); err != nil {
		return out, err
	}
	err := fromStruct(resp, &out)
	return out, err
}

// ResolveApproval answers the pending approval prompt. It reports false when nothing was pending.
func (c *Client) ResolveApproval(ctx context.Context, approved bool) (bool, error) {
	resp := &wrapperspb.BoolValue{}
	err := c.cc.Invoke(ctx, fullMethod("ResolveApproval"), wrapperspb.Bool(approved), resp)
	return resp.GetValue(), err
}

func (c *Client) ExportReport(ctx context.Context, req ExportRequest) (ExportResponse, error) {
	var out ExportResponse
	err := c.structCall(ctx, "ExportReport", req, &out)
	return out, err
}

func (c *Client) ListReports(ctx context.Context, limit int) ([]entity.ReportSummary, error) {
	resp := &structpb.Struct{}
	if err := c.cc.Invoke(ctx, fullMethod("ListReports"), wrapperspb.Int32(int32(limit)), resp); err != nil {
		return nil, err
	}
	var out ReportList
	if err := fromStruct(resp, &out); err != nil {
		return nil, err
	}
	return out.Reports, nil
}

func (c *Client) Reset(ctx context.Context) error {
	return c.cc.Invoke(ctx, fullMethod("Reset"), &emptypb.Empty{}, &emptypb.Empty{})
}

func (c *Client) structCall(ctx context.Context, method string, in, out any) error {
	req, err := toStruct(in)
	if err != nil {
		return err
	}
	resp := &structpb.Struct{}
	if err := c.cc.Invoke(ctx, fullMethod(method), req, resp); err != nil {
		return err
	}
	return fromStruct(resp, out)
}
