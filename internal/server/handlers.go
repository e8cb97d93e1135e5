package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"smartadl/internal/harness"
	"smartadl/internal/models"
	"smartadl/internal/prompts"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.currentUser(); ok {
		http.Redirect(w, r, "/editor", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/account", http.StatusSeeOther)
}

// Account

type accountData struct {
	User  string
	Error string
	Info  string
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	user, _ := s.currentUser()
	s.renderPage(w, "account.html", accountData{User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	ok, err := s.accounts.Verify(username, password)
	if err != nil {
		s.logger.Error("verifying credentials", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !ok {
		// Unknown user and wrong password read the same on purpose.
		s.renderPage(w, "account.html", accountData{Error: "Incorrect username or password."})
		return
	}

	if err := s.accounts.SaveSession(username); err != nil {
		s.logger.Error("saving session", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/editor", http.StatusSeeOther)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	if username == "" || password == "" {
		s.renderPage(w, "account.html", accountData{Error: "Please fill in all fields."})
		return
	}

	created, err := s.accounts.Register(username, password)
	if err != nil {
		s.logger.Error("registering user", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !created {
		s.renderPage(w, "account.html", accountData{Error: "Username already taken."})
		return
	}
	s.renderPage(w, "account.html", accountData{Info: "Account created. You can log in now."})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.accounts.ClearSession(); err != nil {
		s.logger.Error("clearing session", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/account", http.StatusSeeOther)
}

// Editor

type editorData struct {
	User       string
	Code       string
	Question   string
	Answer     string
	Suggestion string
	Error      string
	Info       string
}

func (s *Server) handleEditor(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	s.renderPage(w, "editor.html", editorData{User: user})
}

func (s *Server) handleEditorAsk(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	code := r.FormValue("code")
	question := strings.TrimSpace(r.FormValue("question"))
	data := editorData{User: user, Code: code, Question: question}

	if question == "" {
		data.Error = "Please enter a question."
		s.renderPage(w, "editor.html", data)
		return
	}

	answer, suggestion, err := s.assistant.Ask(r.Context(), s.assistantModel, code, question)
	if err != nil {
		s.logger.Warn("assistant call failed", zap.Error(err))
		data.Error = fmt.Sprintf("Error: %v", err)
		s.renderPage(w, "editor.html", data)
		return
	}

	data.Answer = answer
	data.Suggestion = suggestion
	s.renderPage(w, "editor.html", data)
}

// handleEditorAccept inserts the AI's code suggestion into the editor
// buffer and records the interaction.
func (s *Server) handleEditorAccept(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	suggestion := r.FormValue("suggestion")
	question := r.FormValue("question")
	answer := r.FormValue("answer")

	if err := s.history.RecordADL(user, suggestion, question, answer); err != nil {
		s.logger.Error("recording adl interaction", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.renderPage(w, "editor.html", editorData{
		User: user,
		Code: suggestion,
		Info: "Suggestion inserted into the editor.",
	})
}

// Optimizer

type optimizeData struct {
	User      string
	Code      string
	Optimized string
	Error     string
}

func (s *Server) handleOptimizePage(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	s.renderPage(w, "optimize.html", optimizeData{User: user})
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	code := r.FormValue("code")
	data := optimizeData{User: user, Code: code}

	optimized, err := s.assistant.Optimize(r.Context(), s.assistantModel, code)
	if err != nil {
		s.logger.Warn("optimize call failed", zap.Error(err))
		data.Error = fmt.Sprintf("Error: %v", err)
		s.renderPage(w, "optimize.html", data)
		return
	}

	if err := s.history.RecordADL(user, optimized, "", ""); err != nil {
		s.logger.Error("recording optimized code", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	data.Optimized = optimized
	s.renderPage(w, "optimize.html", data)
}

// Prompts

type promptsData struct {
	User    string
	Prompts []models.Prompt
	Error   string
	Info    string
}

func (s *Server) renderPrompts(w http.ResponseWriter, user, errMsg, info string) {
	list, err := s.prompts.List(user)
	if err != nil {
		s.logger.Error("listing prompts", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.renderPage(w, "prompts.html", promptsData{User: user, Prompts: list, Error: errMsg, Info: info})
}

func (s *Server) handlePrompts(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	s.renderPrompts(w, user, "", "")
}

func (s *Server) handlePromptAdd(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	prompt := strings.TrimSpace(r.FormValue("prompt"))
	expected := strings.TrimSpace(r.FormValue("expected"))

	if prompt == "" || expected == "" {
		s.renderPrompts(w, user, "Please fill in both fields.", "")
		return
	}

	if _, err := s.prompts.Add(user, prompt, expected); err != nil {
		s.logger.Error("adding prompt", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/prompts", http.StatusSeeOther)
}

func (s *Server) handlePromptUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	prompt := strings.TrimSpace(r.FormValue("prompt"))
	expected := strings.TrimSpace(r.FormValue("expected"))

	if prompt == "" || expected == "" {
		s.renderPrompts(w, user, "Please fill in both fields.", "")
		return
	}

	if err := s.prompts.Update(user, id, prompt, expected); err != nil {
		if errors.Is(err, prompts.ErrNotOwned) {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		s.logger.Error("updating prompt", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/prompts", http.StatusSeeOther)
}

func (s *Server) handlePromptDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	if err := s.prompts.Delete(user, id); err != nil {
		if errors.Is(err, prompts.ErrNotOwned) {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		s.logger.Error("deleting prompt", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/prompts", http.StatusSeeOther)
}

func (s *Server) handlePromptExport(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	p, err := s.prompts.Get(user, id)
	if err != nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	data, err := prompts.ExportJSON(*p)
	if err != nil {
		s.logger.Error("exporting prompt", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=prompt_%d.json", id))
	w.Write(data)
}

const maxImportSize = 10 << 20

func (s *Server) handlePromptImport(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		s.renderPrompts(w, user, "Please choose a JSON file to import.", "")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImportSize))
	if err != nil {
		s.logger.Error("reading import file", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	added, err := s.prompts.Import(user, data)
	if err != nil {
		// All-or-nothing: nothing was written.
		s.renderPrompts(w, user, err.Error(), "")
		return
	}
	s.renderPrompts(w, user, "", fmt.Sprintf("Imported %d prompts.", added))
}

type testResultsData struct {
	User     string
	Outcomes []harness.Outcome
	Info     string
}

func (s *Server) handlePromptTest(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	outcomes, err := s.harness.Run(r.Context(), user)
	if err != nil {
		s.logger.Error("running prompt tests", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	data := testResultsData{User: user, Outcomes: outcomes}
	if len(outcomes) == 0 {
		data.Info = "No stored prompts to test."
	}
	s.renderPage(w, "test_results.html", data)
}

// History

type historyData struct {
	User  string
	Tests []models.TestResult
	ADL   []models.AdlInteraction
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	tests, err := s.history.ListTests(user)
	if err != nil {
		s.logger.Error("listing test history", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	adl, err := s.history.ListADL(user)
	if err != nil {
		s.logger.Error("listing adl history", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.renderPage(w, "history.html", historyData{User: user, Tests: tests, ADL: adl})
}

func (s *Server) handleTestDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	if err := s.history.DeleteTest(user, id); err != nil {
		s.logger.Error("deleting test result", zap.Error(err))
	}
	http.Redirect(w, r, "/history", http.StatusSeeOther)
}

func (s *Server) handleADLDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	if err := s.history.DeleteADL(user, id); err != nil {
		s.logger.Error("deleting adl interaction", zap.Error(err))
	}
	http.Redirect(w, r, "/history", http.StatusSeeOther)
}
