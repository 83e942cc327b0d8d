package server

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/joseph-ayodele/docbatch/constants"
	"github.com/joseph-ayodele/docbatch/internal/entity"
	"github.com/joseph-ayodele/docbatch/internal/workspace"
)

type scriptedExtractor struct {
	fail map[string]bool
}

func (s scriptedExtractor) Process(_ context.Context, f entity.SelectedFile, prompt string, _ *entity.Template) (entity.ExtractionResult, error) {
	if s.fail[f.Name] {
		return entity.ExtractionResult{}, errors.New("cannot parse " + f.Name)
	}
	return entity.ExtractionResult{Summary: prompt, Data: []map[string]any{{"file": f.Name}}, Confidence: 0.9}, nil
}

func startServer(t *testing.T, ext scriptedExtractor) (*Client, *workspace.Workspace) {
	t.Helper()
	ws := workspace.New(workspace.Config{}, workspace.Deps{Extractor: ext})
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(UnaryInterceptor(nil)))
	RegisterBatchServer(srv, NewBatchService(ws, nil))
	go func() { _ = srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close()
		srv.Stop()
		ws.Close(context.Background())
	})
	return NewClient(conn), ws
}

func selectDir(t *testing.T, c *Client, names ...string) SelectResponse {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("body of "+n), 0o644))
	}
	resp, err := c.SelectFiles(context.Background(), []string{dir})
	require.NoError(t, err)
	return resp
}

func waitState(t *testing.T, c *Client, cond func(StateView) bool) StateView {
	t.Helper()
	var last StateView
	require.Eventually(t, func() bool {
		st, err := c.GetState(context.Background())
		if err != nil {
			return false
		}
		last = st
		return cond(st)
	}, 3*time.Second, 10*time.Millisecond)
	return last
}

func TestRemoteRunAndExport(t *testing.T) {
	c, ws := startServer(t, scriptedExtractor{})
	ctx := context.Background()

	sel := selectDir(t, c, "a.txt", "b.csv")
	assert.Equal(t, 2, sel.Selected)

	tpl, err := c.SetTemplate(ctx, "invoice")
	require.NoError(t, err)
	require.NotNil(t, tpl)
	require.NoError(t, c.SetOptions(ctx, "", "csv"))

	id, err := c.ProcessFiles(ctx, "totals")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	st := waitState(t, c, func(s StateView) bool { return s.RunState == constants.RunStateCompleted })
	assert.Equal(t, 2, st.ResultCount)
	assert.Equal(t, constants.FormatCSV, st.OutputFormat)
	assert.Equal(t, 100.0, st.Progress.Percent)
	require.NotNil(t, st.LastReportID)
	require.Len(t, st.Files, 2)

	art, err := c.ExportReport(ctx, ExportRequest{})
	require.NoError(t, err)
	assert.Equal(t, constants.FormatCSV, art.Format)
	assert.Contains(t, string(art.Data), "a.txt")

	list, err := c.ListReports(ctx, 5)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, *st.LastReportID, list[0].ID)

	require.Eventually(t, func() bool { _, done := ws.LastSubmitted(); return done }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Reset(ctx))
	st, err = c.GetState(ctx)
	require.NoError(t, err)
	assert.Empty(t, st.Files)
	assert.Nil(t, st.Template)
}

func TestRemoteApproval(t *testing.T) {
	c, _ := startServer(t, scriptedExtractor{fail: map[string]bool{"a.txt": true}})
	ctx := context.Background()
	selectDir(t, c, "a.txt", "b.txt")

	ok, err := c.ResolveApproval(ctx, true)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = c.ProcessFiles(ctx, "p")
	require.NoError(t, err)

	st := waitState(t, c, func(s StateView) bool { return s.PendingApproval != nil })
	assert.Equal(t, "a.txt", st.PendingApproval.FileName)
	assert.True(t, st.IsProcessing)
	require.Len(t, st.Errors, 1)

	err = c.SetOptions(ctx, "combined", "")
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	_, err = c.SelectFiles(ctx, []string{t.TempDir()})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	ok, err = c.ResolveApproval(ctx, true)
	require.NoError(t, err)
	assert.True(t, ok)

	st = waitState(t, c, func(s StateView) bool { return s.RunState == constants.RunStateCompleted })
	assert.Equal(t, 1, st.ResultCount)
	assert.Nil(t, st.PendingApproval)
}

func TestRemoteErrorCodes(t *testing.T) {
	c, _ := startServer(t, scriptedExtractor{})
	ctx := context.Background()

	_, err := c.ProcessFiles(ctx, "p")
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = c.SelectFiles(ctx, nil)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	err = c.SetOptions(ctx, "", "docx")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = c.SetTemplate(ctx, "no-such-template")
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = c.ExportReport(ctx, ExportRequest{ReportID: uuid.NewString()})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = c.ExportReport(ctx, ExportRequest{ReportID: "last-week"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), "report_id")

	_, err = c.ProcessFiles(ctx, "   ")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	_, err = c.ProcessFiles(ctx, strings.Repeat("x", MaxPromptLength+1))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	cancelled, err := c.CancelRun(ctx)
	require.NoError(t, err)
	assert.False(t, cancelled)
}
