package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/caffeineduck/wasmplay/internal/app"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve [module.wasm]",
	Short: "Start HTTP server that steps a headless game",
	Long: `Start an HTTP server around one headless game. Frames advance only when
requested.

Endpoints:
  POST   /tick                 Run frames, body {"frames":n}, n <= 3600
  POST   /key                  Send a key, body {"key":"ArrowLeft","pressed":true}
  GET    /frame.png            Current canvas as PNG
  GET    /metrics              Prometheus metrics
  GET    /health               Health check`,
	Args: cobra.MaximumNArgs(1),
	Run:  runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	rootCmd.AddCommand(serveCmd)
}

// maxTickFrames bounds one /tick request; the game lock is held throughout.
const maxTickFrames = 3600

type tickRequest struct {
	Frames int `json:"frames"`
}

type tickResponse struct {
	Frame   int    `json:"frame"`
	Running bool   `json:"running"`
	Handles int    `json:"handles"`
	Error   string `json:"error,omitempty"`
}

type keyRequest struct {
	Key     string `json:"key"`
	Pressed bool   `json:"pressed"`
}

// gameServer serializes HTTP requests onto one App.
type gameServer struct {
	mu    sync.Mutex
	app   *app.App
	frame int
}

func newGameServer(a *app.App) (*gameServer, error) {
	if err := a.Start(); err != nil {
		return nil, err
	}
	return &gameServer{app: a}, nil
}

func (s *gameServer) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/tick", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req tickRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Frames == 0 {
			req.Frames = 1
		}
		if req.Frames < 0 || req.Frames > maxTickFrames {
			http.Error(w, fmt.Sprintf("frames must be between 1 and %d", maxTickFrames), http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		var err error
		tps := float64(s.app.Config.Canvas.TPS)
		for i := 0; i < req.Frames && err == nil; i++ {
			s.frame++
			err = s.app.Frame(float64(s.frame) * 1000 / tps)
		}
		resp := tickResponse{
			Frame:   s.frame,
			Running: s.app.Running(),
			Handles: s.app.Shim.Handles().Live(),
		}
		s.mu.Unlock()

		if err != nil {
			resp.Error = err.Error()
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	mux.HandleFunc("/key", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req keyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Key == "" {
			http.Error(w, "key required", http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		var err error
		if req.Pressed {
			err = s.app.Keyboard.Down(req.Key)
		} else {
			err = s.app.Keyboard.Up(req.Key)
		}
		s.mu.Unlock()

		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/frame.png", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		w.Header().Set("Content-Type", "image/png")
		if err := s.app.Canvas.Surface().EncodePNG(w); err != nil {
			s.app.Log.Warn("encode frame", zap.Error(err))
		}
	})

	mux.Handle("/metrics", s.app.Metrics.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

func runServe(cmd *cobra.Command, args []string) {
	port, _ := cmd.Flags().GetInt("port")

	a, cleanup, err := newApp(cmd, args)
	if err != nil {
		fatal(cmd, err)
		return
	}
	defer cleanup()

	s, err := newGameServer(a)
	if err != nil {
		cleanup()
		fatal(cmd, err)
		return
	}

	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wasmplay server listening on %s\n", addr)
	if err := srv.ListenAndServe(); err != nil {
		cleanup()
		fatal(cmd, err)
	}
}
