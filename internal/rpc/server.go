package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/randalmurphy/smart-complete/internal/completion"
	"github.com/randalmurphy/smart-complete/internal/engine"
)

// maxMessage bounds one request line. Completion requests carry the whole
// document text.
const maxMessage = 16 * 1024 * 1024

// Handler answers completion requests. *engine.Engine implements it.
type Handler interface {
	Complete(ctx context.Context, req engine.Request) (*engine.Result, error)
}

// Server implements the completion server over a line-delimited stream.
type Server struct {
	name    string
	version string
	handler Handler
	logger  *slog.Logger

	writer io.Writer
	mu     sync.Mutex
	wg     sync.WaitGroup
}

// NewServer creates a new server.
func NewServer(name, version string, handler Handler, logger *slog.Logger) *Server {
	return &Server{
		name:    name,
		version: version,
		handler: handler,
		logger:  logger,
	}
}

// Run reads requests from reader until EOF, a shutdown request or ctx is
// done, writing responses to writer. Completion requests run concurrently
// and their responses may arrive out of order; Run returns once every
// started request has been answered.
func (s *Server) Run(ctx context.Context, reader io.Reader, writer io.Writer) error {
	s.writer = writer

	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		s.wg.Wait()
	}()

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), maxMessage)

	s.logger.Info("completion server started", "name", s.name, "version", s.version)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			s.logger.Info("server shutting down")
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		s.logger.Debug("received request", "bytes", len(line))

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Error("failed to parse request", "error", err)
			s.sendError(nil, ErrCodeParse, "Parse error", err.Error())
			continue
		}

		if req.Method == "shutdown" {
			s.logger.Info("shutdown requested")
			s.wg.Wait()
			s.sendResponse(&Response{JSONRPC: "2.0", ID: req.ID, Result: map[string]interface{}{}})
			return nil
		}

		if req.Method == "complete" {
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.sendResponse(s.handleComplete(ctx, &req))
			}()
			continue
		}

		if response := s.handleRequest(&req); response != nil {
			s.sendResponse(response)
		}
	}

	if err := scanner.Err(); err != nil {
		s.logger.Error("scanner error", "error", err)
		return err
	}

	return nil
}

func (s *Server) handleRequest(req *Request) *Response {
	s.logger.Debug("handling request", "method", req.Method, "id", req.ID)

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)

	case "initialized":
		s.logger.Info("client initialized")
		return nil

	case "ping":
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}

	default:
		s.logger.Warn("unknown method", "method", req.Method)
		if req.ID == nil {
			return nil
		}
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &Error{
				Code:    ErrCodeMethodNotFound,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

func (s *Server) handleInitialize(req *Request) *Response {
	var params InitializeParams
	if req.Params != nil {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.logger.Error("failed to parse initialize params", "error", err)
		}
	}

	s.logger.Info("initializing",
		"client", params.ClientInfo.Name,
		"clientVersion", params.ClientInfo.Version,
		"rootPath", params.RootPath)

	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: InitializeResult{
			ServerInfo:   ServerInfo{Name: s.name, Version: s.version},
			Capabilities: Capabilities{Completion: true, Concurrent: true},
		},
	}
}

func (s *Server) handleComplete(ctx context.Context, req *Request) *Response {
	var params CompleteParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &Error{
				Code:    ErrCodeInvalidParams,
				Message: "Invalid params",
				Data:    err.Error(),
			},
		}
	}

	res, err := s.handler.Complete(ctx, engine.Request{
		File:   params.File,
		Text:   params.Text,
		Offset: params.Offset,
	})
	switch {
	case errors.Is(err, engine.ErrSuperseded):
		s.logger.Debug("request superseded", "id", req.ID, "file", params.File)
		res = &engine.Result{Source: "superseded"}
	case err != nil:
		s.logger.Error("completion failed", "id", req.ID, "file", params.File, "error", err)
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &Error{
				Code:    ErrCodeInternal,
				Message: "Completion failed",
				Data:    err.Error(),
			},
		}
	}

	if res.Candidates == nil {
		res.Candidates = []completion.Candidate{}
	}
	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  res,
	}
}

func (s *Server) sendResponse(resp *Response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("failed to marshal response", "error", err)
		return
	}

	s.logger.Debug("sending response", "id", resp.ID, "bytes", len(data))

	if _, err := fmt.Fprintf(s.writer, "%s\n", data); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

func (s *Server) sendError(id interface{}, code int, message, data string) {
	s.sendResponse(&Response{
		JSONRPC: "2.0",
		ID:      id,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
	})
}
