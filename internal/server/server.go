// Package server serves compiled scenes over HTTP and tells browsers when the
// script changes.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"boxy/internal/diagfmt"
	"boxy/internal/export"
	"boxy/internal/pipeline"
	"boxy/internal/project"
)

// DefaultAddr is used when neither the manifest nor flags set one.
const DefaultAddr = "127.0.0.1:8000"

// Spec configures a Server.
type Spec struct {
	Addr string
	// Script is watched for changes; Compiler compiles it.
	Script   string
	Compiler *pipeline.Compiler
	// ExportDir receives files from split exports. Defaults to the script's directory.
	ExportDir string
	Materials map[string]project.Material
	Debounce  time.Duration
	Log       *slog.Logger
}

// Server is the live-preview HTTP server.
type Server struct {
	Spec Spec
	Hub  *Hub

	upgrader websocket.Upgrader

	mu         sync.RWMutex
	lastGLB    []byte
	// glbVersion is the Compiler version lastGLB was built from.
	glbVersion string
}

func New(spec *Spec) *Server {
	if spec.Log == nil {
		spec.Log = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if spec.Addr == "" {
		spec.Addr = DefaultAddr
	}
	if spec.ExportDir == "" {
		spec.ExportDir = filepath.Dir(spec.Script)
	}
	return &Server{
		Spec: *spec,
		Hub:  NewHub(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler routes every endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /compile", s.handleCompile)
	mux.HandleFunc("GET /glb/{name}", s.handleGLB)
	mux.HandleFunc("GET /export/{filename}", s.handleExport)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

// Run serves until ctx is done, watching the script meanwhile.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Spec.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		err := Watch(ctx, s.Spec.Script, s.Spec.Debounce, func() {
			s.Spec.Compiler.Touch()
			s.Spec.Log.Info("script changed", "path", s.Spec.Script, "clients", s.Hub.Len())
			s.Hub.Broadcast(Message{Type: "file_changed", Path: s.Spec.Script})
		})
		if err != nil {
			s.Spec.Log.Error("watcher stopped", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdown, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = srv.Shutdown(shutdown)
	}()

	s.Spec.Log.Info("serving", "addr", s.Spec.Addr, "script", s.Spec.Script)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type compileResponse struct {
	GLB         string                   `json:"glb"`
	Diagnostics []diagfmt.DiagnosticJSON `json:"diagnostics"`
	Cached      bool                     `json:"cached"`
	Empty       bool                     `json:"empty"`
}

type exportResponse struct {
	Message string   `json:"message"`
	Files   []string `json:"files"`
}

type errorResponse struct {
	Error       string                   `json:"error"`
	Diagnostics []diagfmt.DiagnosticJSON `json:"diagnostics,omitempty"`
}

// compile runs the shared compile and encodes the scene as GLB.
func (s *Server) compile(ctx context.Context) (*pipeline.Result, []byte, error) {
	res, shared, err := s.Spec.Compiler.Compile(ctx)
	if err != nil {
		return nil, nil, err
	}
	glb, err := export.Bytes(export.GLB, res.Scene.Meshes, export.Options{Materials: s.Spec.Materials})
	if err != nil {
		return res, nil, err
	}
	if res == s.Spec.Compiler.Last() {
		s.mu.Lock()
		s.lastGLB, s.glbVersion = glb, res.Version
		s.mu.Unlock()
	}
	s.Spec.Log.Debug("compiled", "meshes", len(res.Scene.Meshes), "diagnostics", res.Bag.Len(), "shared", shared, "cached", res.Cached)
	return res, glb, nil
}

func diagnostics(res *pipeline.Result) []diagfmt.DiagnosticJSON {
	if res == nil {
		return nil
	}
	out := diagfmt.BuildDiagnosticsOutput(res.Bag, res.Files, diagfmt.JSONOpts{PathMode: diagfmt.PathModeBasename, IncludeNotes: true})
	return out.Diagnostics
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	res, glb, err := s.compile(r.Context())
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err, res)
		return
	}
	writeJSON(w, http.StatusOK, compileResponse{
		GLB:         base64.StdEncoding.EncodeToString(glb),
		Diagnostics: diagnostics(res),
		Cached:      res.Cached,
		Empty:       res.Empty,
	})
}

func (s *Server) handleGLB(w http.ResponseWriter, r *http.Request) {
	glb, err := s.currentGLB(r.Context())
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err, nil)
		return
	}
	name := strings.TrimSuffix(r.PathValue("name"), ".glb")
	w.Header().Set("Content-Type", export.GLB.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name+".glb"))
	_, _ = w.Write(glb)
}

// currentGLB returns the last encoded scene when the script has not changed
// since it was compiled, and compiles again otherwise.
func (s *Server) currentGLB(ctx context.Context) ([]byte, error) {
	version, err := s.Spec.Compiler.Version()
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	glb, built := s.lastGLB, s.glbVersion
	s.mu.RUnlock()
	if glb != nil && built == version {
		return glb, nil
	}
	_, glb, err = s.compile(ctx)
	return glb, err
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	filename := filepath.Base(r.PathValue("filename"))
	format, err := export.FormatFromPath(filename)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err, nil)
		return
	}
	res, _, err := s.Spec.Compiler.Compile(r.Context())
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err, nil)
		return
	}
	opts := export.Options{Materials: s.Spec.Materials}

	if strings.Contains(filename, "%") {
		written, err := export.WriteFiles(filepath.Join(s.Spec.ExportDir, filename), res.Scene.Meshes, opts)
		if err != nil {
			s.fail(w, http.StatusInternalServerError, err, res)
			return
		}
		files := make([]string, len(written))
		for i, p := range written {
			files[i] = filepath.Base(p)
		}
		writeJSON(w, http.StatusOK, exportResponse{Message: fmt.Sprintf("Exported %d files", len(files)), Files: files})
		return
	}

	data, err := export.Bytes(format, res.Scene.Meshes, opts)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err, res)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(data)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Spec.Log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	c := s.Hub.subscribe()
	defer s.Hub.unsubscribe(c)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	for {
		select {
		case <-closed:
			return
		case <-c.Failed:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too slow"), time.Now().Add(time.Second))
			return
		case msg := <-c.Events:
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}

func (s *Server) fail(w http.ResponseWriter, status int, err error, res *pipeline.Result) {
	s.Spec.Log.Warn("request failed", "status", status, "err", err)
	writeJSON(w, status, errorResponse{Error: err.Error(), Diagnostics: diagnostics(res)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
