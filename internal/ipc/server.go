package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"log/slog"

	"loom/internal/daemon"
	"loom/internal/logging"
	"loom/internal/runs"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Loom", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("ipc server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
				)
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
		)
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func summarizeRun(run *runs.Run) RunSummary {
	results := run.StageResults()
	outcomes := make([]StageOutcome, 0, len(results))
	for _, result := range results {
		outcomes = append(outcomes, StageOutcome{
			Stage:    result.Stage,
			Success:  result.Success,
			Artifact: result.Artifact,
			Elapsed:  result.Elapsed,
			Error:    result.Error,
		})
	}
	return RunSummary{
		ID:              run.ID,
		Status:          string(run.Status),
		SourceURL:       run.SourceURL,
		WorkspaceDir:    run.WorkspaceDir,
		FailedStage:     run.FailedStage,
		ErrorMessage:    run.ErrorMessage,
		ProgressStage:   run.ProgressStage,
		ProgressMessage: run.ProgressMessage,
		SubmissionJSON:  run.SubmissionJSON,
		StageResults:    outcomes,
		StatsJSON:       run.StatsJSON,
		CreatedAt:       run.CreatedAt,
		UpdatedAt:       run.UpdatedAt,
	}
}

func (s *service) Submit(req SubmitRequest, resp *SubmitResponse) error {
	run, err := s.daemon.Submit(s.ctx, runs.Submission{
		SourceURL:     req.SourceURL,
		MaxPages:      req.MaxPages,
		DelayMillis:   req.DelayMillis,
		MaxBlockChars: req.MaxBlockChars,
		MinBlockChars: req.MinBlockChars,
	})
	if err != nil {
		return err
	}
	resp.RunID = run.ID
	resp.WorkspaceDir = run.WorkspaceDir
	s.log().Info("run submitted via ipc",
		logging.String(logging.FieldRunID, run.ID),
		logging.String("source_url", run.SourceURL),
		logging.String(logging.FieldEventType, "run_submitted"),
	)
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.LastError = status.LastError
	resp.LockPath = status.LockPath
	resp.DBPath = status.DBPath
	resp.RunStats = make(map[string]int, len(status.RunStats))
	for status, count := range status.RunStats {
		resp.RunStats[string(status)] = count
	}
	return nil
}

func (s *service) RunList(req RunListRequest, resp *RunListResponse) error {
	statuses := make([]runs.Status, 0, len(req.Statuses))
	for _, raw := range req.Statuses {
		parsed, ok := runs.ParseStatus(raw)
		if !ok {
			return fmt.Errorf("unknown status %q", raw)
		}
		statuses = append(statuses, parsed)
	}
	list, err := s.daemon.ListRuns(s.ctx, statuses)
	if err != nil {
		return err
	}
	resp.Runs = make([]RunSummary, 0, len(list))
	for _, run := range list {
		resp.Runs = append(resp.Runs, summarizeRun(run))
	}
	return nil
}

func (s *service) RunDescribe(req RunDescribeRequest, resp *RunDescribeResponse) error {
	if !runs.IsRunID(req.ID) {
		return fmt.Errorf("invalid run id %q", req.ID)
	}
	run, err := s.daemon.GetRun(s.ctx, req.ID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", req.ID)
	}
	resp.Run = summarizeRun(run)
	return nil
}
