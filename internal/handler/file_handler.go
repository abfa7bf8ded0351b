package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/hlog"

	"clouddrive/internal/domain"
	"clouddrive/internal/service"
	"clouddrive/internal/storage"
)

// multipart-части сверх этого объема уходят во временные файлы
const maxMultipartMemory = 32 << 20

type FileHandler struct {
	fileService *service.FileService
}

type renameRequest struct {
	NewName string `json:"new_name"`
}

type moveRequest struct {
	FolderID *int64 `json:"folder_id"`
}

func NewFileHandler(fileService *service.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

// parseUploadForm разбирает multipart-форму и общие поля folder_id и public
func parseUploadForm(w http.ResponseWriter, r *http.Request) (folderID *int64, public bool, ok bool) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, err)
			return nil, false, false
		}
		badRequest(w, "Failed to parse form")
		return nil, false, false
	}

	folderID, err := optionalID(r.FormValue("folder_id"))
	if err != nil {
		badRequest(w, "Invalid folder ID")
		return nil, false, false
	}

	public, _ = strconv.ParseBool(r.FormValue("public"))
	return folderID, public, true
}

// UploadFile загружает один файл из поля "file"
func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	p := principal(r)

	folderID, public, ok := parseUploadForm(w, r)
	if !ok {
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["file"]
	if len(headers) != 1 {
		badRequest(w, "Exactly one file is expected in field \"file\"")
		return
	}

	fh := headers[0]
	f, err := fh.Open()
	if err != nil {
		badRequest(w, "Failed to read uploaded file")
		return
	}
	defer f.Close()

	file, err := h.fileService.Upload(r.Context(), domain.UploadRequest{
		AccountID:    p.AccountID,
		FolderID:     folderID,
		Name:         fh.Filename,
		ContentType:  fh.Header.Get("Content-Type"),
		DeclaredSize: fh.Size,
		Content:      f,
		MakePublic:   public,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, file)
}

// UploadFiles загружает несколько файлов из поля "files" с поштучным результатом
func (h *FileHandler) UploadFiles(w http.ResponseWriter, r *http.Request) {
	p := principal(r)

	folderID, public, ok := parseUploadForm(w, r)
	if !ok {
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		badRequest(w, "No files uploaded")
		return
	}

	items := make([]domain.UploadItem, 0, len(headers))
	for _, fh := range headers {
		items = append(items, domain.UploadItem{
			Name:         fh.Filename,
			ContentType:  fh.Header.Get("Content-Type"),
			DeclaredSize: fh.Size,
			Content:      &lazyPart{header: fh},
		})
	}
	defer func() {
		for _, item := range items {
			item.Content.(*lazyPart).Close()
		}
	}()

	result, err := h.fileService.UploadBatch(r.Context(), p.AccountID, folderID, items, public)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Failed > 0 {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, result)
}

// lazyPart открывает часть формы при первом чтении, чтобы не держать
// открытыми все временные файлы пакета
type lazyPart struct {
	header *multipart.FileHeader
	file   multipart.File
}

func (l *lazyPart) Read(p []byte) (int, error) {
	if l.file == nil {
		f, err := l.header.Open()
		if err != nil {
			return 0, err
		}
		l.file = f
	}
	return l.file.Read(p)
}

func (l *lazyPart) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (h *FileHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	file, err := h.fileService.GetFile(r.Context(), principal(r).AccountID, fileID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, file)
}

// ViewFile отдает содержимое для просмотра в браузере
func (h *FileHandler) ViewFile(w http.ResponseWriter, r *http.Request) {
	h.open(w, r, service.OperationView, "inline")
}

// DownloadFile отдает содержимое как вложение
func (h *FileHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	h.open(w, r, service.OperationDownload, "attachment")
}

func (h *FileHandler) open(w http.ResponseWriter, r *http.Request, operation service.OperationType, disposition string) {
	fileID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	file, obj, err := h.fileService.Open(r.Context(), principal(r).AccountID, fileID, operation)
	if err != nil {
		writeError(w, r, err)
		return
	}
	serveContent(w, r, file, obj, disposition)
}

// serveContent пишет блоб в ответ и закрывает его
func serveContent(w http.ResponseWriter, r *http.Request, file *domain.File, obj storage.Object, disposition string) {
	defer obj.Close()

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", contentDisposition(disposition, file.DisplayName))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "private, no-cache")
	if size := obj.ContentLength(); size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, obj); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Int64("file_id", file.ID).Msg("content streaming interrupted")
	}
}

func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.fileService.DeleteFile(r.Context(), principal(r).AccountID, fileID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FileHandler) RenameFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req renameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	file, err := h.fileService.RenameFile(r.Context(), principal(r).AccountID, fileID, req.NewName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, file)
}

// MoveFile переносит файл; folder_id = null означает корень
func (h *FileHandler) MoveFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req moveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.fileService.MoveFile(r.Context(), principal(r).AccountID, fileID, req.FolderID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FileHandler) ToggleVisibility(w http.ResponseWriter, r *http.Request) {
	fileID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	file, err := h.fileService.ToggleVisibility(r.Context(), principal(r).AccountID, fileID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, file)
}
