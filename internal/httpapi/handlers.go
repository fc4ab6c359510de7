package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi"
	"github.com/google/uuid"

	"checklist/internal/parser/csv"
	"checklist/internal/parser/htmltable"
	"checklist/internal/query"
	"checklist/internal/storage"
	"checklist/internal/tabular"
)

const maxUploadBytes = 32 << 20

// handleUpload ingests one checklist export. Multipart fields: sport, set,
// file. The store for (sport, set) is replaced wholesale.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart body: "+err.Error())
		return
	}

	sport := strings.TrimSpace(r.FormValue("sport"))
	set := strings.TrimSpace(r.FormValue("set"))
	if sport == "" || set == "" {
		s.writeError(w, http.StatusBadRequest, "sport and set fields are required")
		return
	}

	file, fh, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	path, err := s.spoolUpload(file, fh.Filename)
	if err != nil {
		s.logger.Errorf("spool upload %s: %v", fh.Filename, err)
		s.writeError(w, http.StatusInternalServerError, "storing upload failed")
		return
	}
	// The spooled artifact outlives the ingestion run: it is removed only
	// after every row's writes have been attempted.
	defer os.Remove(path)

	tbl, err := s.parseSpooled(path, fh.Filename)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.engine.Ingest(r.Context(), sport, set, tbl)
	if err != nil {
		s.logger.Errorf("ingest %s/%s: %v", sport, set, err)
		s.writeError(w, http.StatusInternalServerError, "ingestion failed")
		return
	}

	s.writeData(w, http.StatusCreated, "checklist ingested", res)
}

// spoolUpload writes the upload to a uuid-named file in the spool
// directory and returns its path. The caller owns removal.
func (s *Server) spoolUpload(file multipart.File, filename string) (string, error) {
	dir := s.spoolDir
	if dir == "" {
		dir = os.TempDir()
	}

	path := filepath.Join(dir, "checklist-"+uuid.NewString()+strings.ToLower(filepath.Ext(filename)))
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(path)
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// parseSpooled parses a spooled upload by extension. HTML exports go through
// the table parser, everything else is read as CSV.
func (s *Server) parseSpooled(path, filename string) (*tabular.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open spooled upload: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return htmltable.ReadTable(f)
	default:
		return csv.ReadTable(f, func(line int, err error) {
			s.logger.Warnf("upload %s line %d skipped: %v", filename, line, err)
		})
	}
}

func (s *Server) handleListSets(w http.ResponseWriter, r *http.Request) {
	sport := chi.URLParam(r, "sport")

	sets, err := query.ListSets(r.Context(), s.catalog, sport)
	if err != nil {
		s.logger.Errorf("list sets for %s: %v", sport, err)
		s.writeError(w, http.StatusInternalServerError, "listing sets failed")
		return
	}

	s.writeData(w, http.StatusOK, "sets for "+sport, sets)
}

func (s *Server) handleChecklist(w http.ResponseWriter, r *http.Request) {
	st, ok := s.openStore(w, r)
	if !ok {
		return
	}
	defer st.Close()

	items, err := query.Checklist(r.Context(), st)
	if err != nil {
		s.logger.Errorf("checklist query: %v", err)
		s.writeError(w, http.StatusInternalServerError, "checklist query failed")
		return
	}

	s.writeData(w, http.StatusOK, "checklist", items)
}

func (s *Server) handleAthletes(w http.ResponseWriter, r *http.Request) {
	st, ok := s.openStore(w, r)
	if !ok {
		return
	}
	defer st.Close()

	names, err := query.Athletes(r.Context(), st)
	if err != nil {
		s.logger.Errorf("athletes query: %v", err)
		s.writeError(w, http.StatusInternalServerError, "athletes query failed")
		return
	}

	s.writeData(w, http.StatusOK, "athletes", names)
}

func (s *Server) handleAthleteSummary(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		s.writeError(w, http.StatusBadRequest, "name query parameter is required")
		return
	}

	st, ok := s.openStore(w, r)
	if !ok {
		return
	}
	defer st.Close()

	sum, err := query.AthleteSummary(r.Context(), st, name)
	if err != nil {
		s.logger.Errorf("athlete summary for %q: %v", name, err)
		s.writeError(w, http.StatusInternalServerError, "athlete summary failed")
		return
	}

	s.writeData(w, http.StatusOK, "athlete summary", sum)
}

// openStore resolves the {sport}/{set} route params to an open Set Store,
// writing the 404 response itself when the store does not exist.
func (s *Server) openStore(w http.ResponseWriter, r *http.Request) (storage.Store, bool) {
	sport := chi.URLParam(r, "sport")
	set := chi.URLParam(r, "set")

	st, err := s.catalog.Open(r.Context(), storage.StoreName(sport, set))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, fmt.Sprintf("no checklist for sport %q set %q", sport, set))
			return nil, false
		}
		s.logger.Errorf("open store %s/%s: %v", sport, set, err)
		s.writeError(w, http.StatusInternalServerError, "opening checklist failed")
		return nil, false
	}
	return st, true
}
