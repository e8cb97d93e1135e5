package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net"
	"net/http"

	"go.uber.org/zap"

	"smartadl/internal/auth"
	"smartadl/internal/harness"
	"smartadl/internal/history"
	"smartadl/internal/prompts"
)

//go:embed templates
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// Assistant is the interactive side of the generation service: editor
// questions and whole-buffer optimization.
type Assistant interface {
	Ask(ctx context.Context, model, code, question string) (answer, codeSuggestion string, err error)
	Optimize(ctx context.Context, model, code string) (string, error)
}

type Server struct {
	logger         *zap.Logger
	accounts       *auth.Service
	prompts        *prompts.Service
	history        *history.Store
	harness        *harness.Harness
	assistant      Assistant
	assistantModel string

	pages   map[string]*template.Template
	httpSrv *http.Server
	ln      net.Listener
	addr    string
}

func New(logger *zap.Logger, accounts *auth.Service, promptStore *prompts.Service, historyStore *history.Store, h *harness.Harness, assistant Assistant, assistantModel string) (*Server, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	s := &Server{
		logger:         logger,
		accounts:       accounts,
		prompts:        promptStore,
		history:        historyStore,
		harness:        h,
		assistant:      assistant,
		assistantModel: assistantModel,
		pages:          pages,
	}

	mux := http.NewServeMux()

	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("getting static subfs: %w", err)
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	mux.HandleFunc("GET /{$}", s.handleIndex)

	mux.HandleFunc("GET /account", s.handleAccount)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /logout", s.handleLogout)

	mux.HandleFunc("GET /editor", s.handleEditor)
	mux.HandleFunc("POST /editor/ask", s.handleEditorAsk)
	mux.HandleFunc("POST /editor/accept", s.handleEditorAccept)

	mux.HandleFunc("GET /optimize", s.handleOptimizePage)
	mux.HandleFunc("POST /optimize", s.handleOptimize)

	mux.HandleFunc("GET /prompts", s.handlePrompts)
	mux.HandleFunc("POST /prompts", s.handlePromptAdd)
	mux.HandleFunc("POST /prompts/{id}", s.handlePromptUpdate)
	mux.HandleFunc("POST /prompts/{id}/delete", s.handlePromptDelete)
	mux.HandleFunc("GET /prompts/{id}/export", s.handlePromptExport)
	mux.HandleFunc("POST /prompts/import", s.handlePromptImport)
	mux.HandleFunc("POST /prompts/test", s.handlePromptTest)

	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("POST /history/tests/{id}/delete", s.handleTestDelete)
	mux.HandleFunc("POST /history/adl/{id}/delete", s.handleADLDelete)

	s.httpSrv = &http.Server{Handler: s.logRequests(mux)}
	return s, nil
}

// parsePages builds a template for each page by combining layout.html
// with the page template.
func parsePages() (map[string]*template.Template, error) {
	tmplFS, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("getting templates subfs: %w", err)
	}

	layoutBytes, err := fs.ReadFile(tmplFS, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout: %w", err)
	}

	pageNames := []string{
		"account.html",
		"editor.html",
		"optimize.html",
		"prompts.html",
		"test_results.html",
		"history.html",
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		pageBytes, err := fs.ReadFile(tmplFS, name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}

		tmpl, err := template.New("layout.html").Parse(string(layoutBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", name, err)
		}

		if _, err := tmpl.New(name).Parse(string(pageBytes)); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}

		pages[name] = tmpl
	}
	return pages, nil
}

// Listen binds the server. An empty addr picks a random loopback port.
// Call Serve to start handling requests.
func (s *Server) Listen(addr string) error {
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", addr, err)
	}
	s.ln = ln
	s.addr = ln.Addr().String()
	return nil
}

// Serve starts handling HTTP requests. Blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.httpSrv.Shutdown(context.Background())
	}()

	fmt.Printf("Smart ADL running at http://%s\n", s.addr)
	fmt.Println("Press Ctrl+C to stop.")

	if err := s.httpSrv.Serve(s.ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving: %w", err)
	}
	fmt.Println("\nShutting down...")
	return nil
}

func (s *Server) Addr() string {
	return s.addr
}

func (s *Server) renderPage(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.logger.Error("template not found", zap.String("name", name))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout.html", data); err != nil {
		s.logger.Error("render error", zap.String("name", name), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// currentUser resolves the active user from the persisted session
// pointer. Handlers pass it explicitly to every store call; there is no
// process-global session state.
func (s *Server) currentUser() (string, bool) {
	user, ok, err := s.accounts.LoadSession()
	if err != nil {
		s.logger.Error("loading session", zap.Error(err))
		return "", false
	}
	return user, ok
}

// requireUser redirects to the account page when no session exists.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	user, ok := s.currentUser()
	if !ok {
		http.Redirect(w, r, "/account", http.StatusSeeOther)
		return "", false
	}
	return user, true
}
