package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/docbatch/internal/common"
	"github.com/joseph-ayodele/docbatch/internal/entity"
	"github.com/joseph-ayodele/docbatch/internal/workspace"
)

// MaxPromptLength caps the prompt accepted by ProcessFiles, in characters.
const MaxPromptLength = 8000

// BatchService exposes a workspace over gRPC. Runs are started in the background; clients poll
// GetState and answer approval prompts with ResolveApproval.
type BatchService struct {
	ws     *workspace.Workspace
	logger *slog.Logger
}

var _ BatchServer = (*BatchService)(nil)

func NewBatchService(ws *workspace.Workspace, logger *slog.Logger) *BatchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchService{ws: ws, logger: logger}
}

func (s *BatchService) SelectFiles(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in SelectRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, common.InvalidArgumentErrorf("malformed request: %v", err)
	}
	if len(in.Paths) == 0 {
		return nil, common.InvalidArgumentError("paths is required")
	}
	verdicts, err := s.ws.SelectPaths(ctx, in.Paths)
	if err != nil {
		s.logger.Error("select files failed", "paths", len(in.Paths), "error", err)
		return nil, err
	}
	if verdicts == nil {
		verdicts = []entity.ValidationVerdict{}
	}
	return toStruct(SelectResponse{Selected: len(s.ws.Store.Snapshot().SelectedFiles), Verdicts: verdicts})
}

func (s *BatchService) SetTemplate(_ context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	tpl, err := s.ws.SetTemplate(strings.TrimSpace(req.GetValue()))
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return &structpb.Struct{Fields: map[string]*structpb.Value{}}, nil
	}
	return toStruct(tpl)
}

func (s *BatchService) SetOptions(_ context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	var in OptionsRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, common.InvalidArgumentErrorf("malformed request: %v", err)
	}
	if err := s.ws.SetOptions(in.Mode, in.Format); err != nil {
		return nil, err
	}
	return &emptypb.Empty{}, nil
}

// ProcessFiles starts a run and returns its job id without waiting for it.
func (s *BatchService) ProcessFiles(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	v := common.NewValidator().Field("prompt", req.GetValue(), common.Required, common.MaxLength(MaxPromptLength))
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}
	id, err := s.ws.Submit(ctx, req.GetValue())
	if err != nil {
		return nil, err
	}
	return wrapperspb.String(id.String()), nil
}

func (s *BatchService) CancelRun(context.Context, *emptypb.Empty) (*wrapperspb.BoolValue, error) {
	return wrapperspb.Bool(s.ws.Cancel()), nil
}

func (s *BatchService) GetState(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	snap := s.ws.Store.Snapshot()
	p := s.ws.Progress()
	view := StateView{
		Files:          make([]entity.FileRef, len(snap.SelectedFiles)),
		Template:       snap.CurrentTemplate,
		ProcessingMode: snap.ProcessingMode,
		OutputFormat:   snap.OutputFormat,
		IsProcessing:   snap.IsProcessing,
		RunState:       s.ws.Engine.State(),
		RunID:          s.ws.Engine.RunID(),
		Progress:       ProgressView{Index: p.Index, Total: p.Total, Percent: p.Percent, Label: p.Label, FileName: p.FileName},
		ResultCount:    len(snap.Results),
		Errors:         snap.Errors,
	}
	for i, f := range snap.SelectedFiles {
		view.Files[i] = f.Ref()
	}
	if req, ok := s.ws.Gate.Pending(); ok {
		view.PendingApproval = &req
	}
	if last := s.ws.Engine.LastReport(); last != nil {
		view.LastReportID = &last.ID
	}
	return toStruct(view)
}

func (s *BatchService) ResolveApproval(_ context.Context, req *wrapperspb.BoolValue) (*wrapperspb.BoolValue, error) {
	return wrapperspb.Bool(s.ws.Gate.ResolveApproval(req.GetValue())), nil
}

func (s *BatchService) ExportReport(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in ExportRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, common.InvalidArgumentErrorf("malformed request: %v", err)
	}
	id := uuid.Nil
	if in.ReportID != "" {
		if err := common.ValidateAndReturnError(common.NewValidator().Field("report_id", in.ReportID, common.UUID)); err != nil {
			return nil, err
		}
		id = uuid.MustParse(in.ReportID)
	}
	var (
		art entity.ExportArtifact
		loc string
		err error
	)
	if in.Save {
		art, loc, err = s.ws.Save(ctx, id, in.Format)
	} else {
		art, err = s.ws.Export(ctx, id, in.Format)
	}
	if err != nil {
		return nil, err
	}
	return toStruct(ExportResponse{
		Format:      art.Format,
		ContentType: art.ContentType,
		Filename:    art.Filename,
		Data:        art.Data,
		Location:    loc,
	})
}

func (s *BatchService) ListReports(ctx context.Context, req *wrapperspb.Int32Value) (*structpb.Struct, error) {
	list, err := s.ws.History(ctx, int(req.GetValue()))
	if err != nil {
		return nil, err
	}
	return toStruct(ReportList{Reports: list})
}

func (s *BatchService) Reset(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	if err := s.ws.Reset(); err != nil {
		return nil, err
	}
	return &emptypb.Empty{}, nil
}

// UnaryInterceptor tags each call with a request id, logs it and maps domain errors to status codes.
func UnaryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		rid := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get("x-request-id"); len(v) > 0 {
				rid = v[0]
			}
		}
		if rid == "" {
			rid = uuid.NewString()
		}
		ctx = common.WithRequestID(ctx, rid)

		start := time.Now()
		resp, err := handler(ctx, req)
		err = common.ToStatus(err)
		if err != nil {
			logger.Warn("rpc.failed", "method", info.FullMethod, "request_id", rid, "code", status.Code(err), "error", err,
				"elapsed_ms", time.Since(start).Milliseconds())
		} else {
			logger.Debug("rpc.ok", "method", info.FullMethod, "request_id", rid, "elapsed_ms", time.Since(start).Milliseconds())
		}
		return resp, err
	}
}
