package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/confloom/confloom/pkg/conftree"
	"github.com/confloom/confloom/pkg/diff"
	"github.com/confloom/confloom/pkg/workspace"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Response{Success: false, Error: msg})
}

// decodeBody unmarshals a JSON request body, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeWorkspaceError maps workspace errors onto HTTP status codes.
func writeWorkspaceError(w http.ResponseWriter, err error) {
	if errors.Is(err, workspace.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, map[string]string{"status": "ok"})
}

func (s *Server) listConfigsHandler(w http.ResponseWriter, _ *http.Request) {
	names := s.ws.Names()
	result := make([]ConfigSummary, 0, len(names))
	for _, name := range names {
		cfg, err := s.ws.Get(name)
		if err != nil {
			continue
		}
		result = append(result, configSummary(cfg))
	}
	writeOK(w, result)
}

func (s *Server) putConfigHandler(w http.ResponseWriter, r *http.Request) {
	var req PutConfigRequest
	if !decodeBody(w, r, &req) {
		return
	}
	cfg, err := s.ws.Put(req.Name, req.Text)
	if err != nil {
		writeWorkspaceError(w, err)
		return
	}
	writeOK(w, configDetail(cfg))
}

func (s *Server) getConfigHandler(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.ws.Get(r.PathValue("name"))
	if err != nil {
		writeWorkspaceError(w, err)
		return
	}
	writeOK(w, configDetail(cfg))
}

func (s *Server) configTextHandler(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.ws.Get(r.PathValue("name"))
	if err != nil {
		writeWorkspaceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(cfg.Text))
}

func (s *Server) configTreeHandler(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.ws.Get(r.PathValue("name"))
	if err != nil {
		writeWorkspaceError(w, err)
		return
	}
	writeOK(w, cfg.Tree)
}

func (s *Server) deleteConfigHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.ws.Remove(name); err != nil {
		writeWorkspaceError(w, err)
		return
	}
	writeOK(w, map[string]string{"removed": name})
}

func (s *Server) parseHandler(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tree, diags := conftree.NewParser(req.Text).Parse()
	if diags == nil {
		diags = []conftree.Diagnostic{}
	}
	writeOK(w, ParseResult{Tree: tree, Diagnostics: diags})
}

func (s *Server) renderHandler(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Tree == nil {
		writeError(w, http.StatusBadRequest, "missing tree")
		return
	}
	writeOK(w, TextResponse{Output: conftree.Render(req.Tree)})
}

func (s *Server) diffHandler(w http.ResponseWriter, r *http.Request) {
	var req DiffRequest
	if !decodeBody(w, r, &req) {
		return
	}
	changes, err := s.ws.Compare(req.A, req.B, diffOptions(req)...)
	if err != nil {
		writeWorkspaceError(w, err)
		return
	}
	if changes == nil {
		changes = []diff.Change{}
	}
	writeOK(w, DiffResult{Changes: changes})
}

func (s *Server) interfacesHandler(w http.ResponseWriter, r *http.Request) {
	var req DiffRequest
	if !decodeBody(w, r, &req) {
		return
	}
	table, err := s.ws.Interfaces(req.A, req.B, diffOptions(req)...)
	if err != nil {
		writeWorkspaceError(w, err)
		return
	}
	writeOK(w, InterfacesResult{Interfaces: table})
}

func (s *Server) templateHandler(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Interface == "" {
		writeError(w, http.StatusBadRequest, "missing interface")
		return
	}
	res, err := s.ws.Synthesize(req.A, req.B, req.Interface, req.Vars)
	if err != nil {
		writeWorkspaceError(w, err)
		return
	}
	writeOK(w, TemplateResult{
		Interface:  res.Interface,
		Text:       res.Text,
		Tree:       res.Tree,
		Interfaces: res.Table,
	})
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit > 10000 {
		limit = 10000
	}
	records := s.ws.History(limit)
	if records == nil {
		records = []*workspace.OpRecord{}
	}
	writeOK(w, records)
}

// --- helpers ---

func configSummary(cfg *workspace.Config) ConfigSummary {
	return ConfigSummary{
		Name:        cfg.Name,
		Bytes:       len(cfg.Text),
		Diagnostics: len(cfg.Diagnostics),
		LoadedAt:    cfg.LoadedAt.Format(time.RFC3339),
	}
}

func configDetail(cfg *workspace.Config) ConfigDetail {
	diags := cfg.Diagnostics
	if diags == nil {
		diags = []conftree.Diagnostic{}
	}
	return ConfigDetail{
		Name:        cfg.Name,
		Bytes:       len(cfg.Text),
		Diagnostics: diags,
		LoadedAt:    cfg.LoadedAt.Format(time.RFC3339),
	}
}

// diffOptions translates the optional request fields into diff options.
func diffOptions(req DiffRequest) []diff.Option {
	var opts []diff.Option
	if req.OrderSignificant != nil {
		opts = append(opts, diff.WithOrderSignificant(*req.OrderSignificant))
	}
	if req.MaxDepth > 0 {
		opts = append(opts, diff.WithMaxDepth(req.MaxDepth))
	}
	if len(req.IgnoredAttrs) > 0 {
		opts = append(opts, diff.WithIgnoredAttrs(req.IgnoredAttrs...))
	}
	return opts
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
