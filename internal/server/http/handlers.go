package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/perfcanvas/scriptstore/internal/common"
	"github.com/perfcanvas/scriptstore/internal/server/models"
	"github.com/perfcanvas/scriptstore/internal/server/vcs"
)

// harUploadLimit bounds HAR uploads; captures beyond this are not worth
// converting anyway.
const harUploadLimit = 32 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrorEmptyPath),
		errors.Is(err, common.ErrorUnknownHandler),
		errors.Is(err, common.ErrorMalformedHAR):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrorNotFound),
		errors.Is(err, common.ErrorRepositoryMissing):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken):
		status = http.StatusUnauthorized
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// revisionParam reads the optional ?r= revision query parameter.
func revisionParam(r *http.Request) vcs.Revision {
	return vcs.Revision(r.URL.Query().Get("r"))
}

func (s *Server) handleListAll(w http.ResponseWriter, r *http.Request) {
	entries, err := s.entries.GetAll(r.Context(), userFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleListAt(w http.ResponseWriter, r *http.Request) {
	entries, err := s.entries.GetAllAt(r.Context(), userFrom(r), mux.Vars(r)["path"], revisionParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	entry, err := s.entries.GetOne(r.Context(), userFrom(r), mux.Vars(r)["path"], revisionParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var entry models.FileEntry
	if err := decodeBody(r, &entry); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := s.entries.Save(r.Context(), userFrom(r), &entry); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

type newScriptRequest struct {
	Path           string `json:"path"`
	FileName       string `json:"fileName"`
	Name           string `json:"name"`
	URL            string `json:"url"`
	ScriptType     string `json:"scriptType"`
	LibAndResource bool   `json:"libAndResource"`
	Options        string `json:"options"`
}

func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	var req newScriptRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	handler, err := s.entries.HandlerByKey(req.ScriptType)
	if err != nil {
		writeError(w, err)
		return
	}

	user := userFrom(r)
	entry, err := s.entries.PrepareNewEntry(r.Context(), user, req.Path, req.FileName, req.Name, req.URL, handler, req.LibAndResource, req.Options)
	if err != nil {
		writeError(w, err)
		return
	}
	if entry == nil {
		// Project scaffold: already persisted by the handler.
		writeJSON(w, http.StatusCreated, map[string]string{"path": req.Path})
		return
	}
	if err := s.entries.Save(r.Context(), user, entry); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

type newFolderRequest struct {
	Path        string `json:"path"`
	FolderName  string `json:"folderName"`
	Description string `json:"description"`
}

func (s *Server) handleNewFolder(w http.ResponseWriter, r *http.Request) {
	var req newFolderRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := s.entries.AddFolder(r.Context(), userFrom(r), req.Path, req.FolderName, req.Description); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"path": req.Path + "/" + req.FolderName})
}

type deleteRequest struct {
	Path      string   `json:"path"`
	BasePath  string   `json:"basePath"`
	FileNames []string `json:"fileNames"`
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	user := userFrom(r)
	var err error
	if len(req.FileNames) > 0 {
		err = s.entries.Delete(r.Context(), user, req.BasePath, req.FileNames)
	} else if req.Path != "" {
		err = s.entries.DeleteOne(r.Context(), user, req.Path)
	} else {
		err = common.ErrorEmptyPath
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

type quickTestRequest struct {
	URL        string `json:"url"`
	ScriptType string `json:"scriptType"`
}

func (s *Server) handleQuickTest(w http.ResponseWriter, r *http.Request) {
	var req quickTestRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	handler, err := s.entries.HandlerByKey(req.ScriptType)
	if err != nil {
		writeError(w, err)
		return
	}

	path, err := s.entries.PrepareNewEntryForQuickTest(r.Context(), userFrom(r), req.URL, handler)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"path": path})
}

// readHARUpload pulls the capture bytes and the removeStatic flag out of a
// multipart upload.
func readHARUpload(r *http.Request) ([]byte, bool, error) {
	if err := r.ParseMultipartForm(harUploadLimit); err != nil {
		return nil, false, err
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, false, err
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, harUploadLimit))
	if err != nil {
		return nil, false, err
	}
	removeStatic := r.FormValue("removeStatic") == "true"
	return raw, removeStatic, nil
}

func (s *Server) handleHARUpload(w http.ResponseWriter, r *http.Request) {
	raw, removeStatic, err := readHARUpload(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid HAR upload"})
		return
	}

	pretty, err := s.entries.LoadHAR(raw, removeStatic)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, pretty)
}

type convertRequest struct {
	HAR                  string `json:"har"`
	RemoveStaticResource bool   `json:"removeStaticResource"`
}

func (s *Server) handleHARConvert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	scripts, err := s.entries.ConvertToScript([]byte(req.HAR), req.RemoveStaticResource)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scripts)
}

func (s *Server) handleGetAnnouncement(w http.ResponseWriter, r *http.Request) {
	content, err := s.announcements.Get(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"content": content})
}

type announcementRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleSaveAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req announcementRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := s.announcements.Save(r.Context(), req.Content); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"content": req.Content})
}
