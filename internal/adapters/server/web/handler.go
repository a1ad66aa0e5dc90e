// Package web serves the server-rendered board pages.
package web

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/webherbas/taskflow/internal/app"
	"github.com/webherbas/taskflow/internal/domain"
)

// maxImportBytes limits uploaded backup files.
const maxImportBytes int64 = 4 << 20

// flashCookie carries one announcement across a redirect.
const flashCookie = "taskflow_flash"

// Form field names posted by the create-task form.
const (
	formTitle       = "NuevaTarea.Titulo"
	formDescription = "NuevaTarea.Descripcion"
	formDueDate     = "NuevaTarea.FechaVencimiento"
)

// User-facing page messages.
const (
	msgTaskDeleted     = "Elemento eliminado"
	msgImportInvalid   = "El archivo no contiene una lista de tareas válida"
	msgImportConfirm   = "Confirme la importación para reemplazar la lista actual"
	msgImportMissing   = "Seleccione un archivo para importar"
	msgDataCleared     = "Se eliminaron todos los datos guardados"
	msgClearConfirm    = "Confirme para eliminar todos los datos guardados"
	msgTaskNotFound    = "El elemento ya no existe"
	msgInvalidStatus   = "Estado no válido"
	msgInvalidPage     = "Página no válida"
	msgImportedPattern = "Se importaron %d elementos"
)

// Config controls page rendering and confirmation steps.
type Config struct {
	Location      *time.Location
	ConfirmDelete bool
	ConfirmImport bool
	ConfirmClear  bool
	Logger        app.Logger
}

// Handler serves the board pages over one app.Board.
type Handler struct {
	board *app.Board
	cfg   Config
	tmpl  *template.Template
	next  http.Handler
}

// formValues echoes submitted form input back into the page.
type formValues struct {
	Title       string
	Description string
	DueDate     string
}

// confirmView describes a pending destructive action.
type confirmView struct {
	Heading string
	Message string
	Action  string
	Item    *app.ItemView
	Fields  map[string]string
}

// pageModel is the data passed to every page template.
type pageModel struct {
	Title       string
	Board       app.BoardView
	Highlight   domain.Status
	Flash       string
	Form        formValues
	FieldErrors map[string]string
	Focus       string
	Confirm     *confirmView
	RequestID   string
	Fields      fieldNames
}

// fieldNames exposes the form field names to templates.
type fieldNames struct {
	Title       string
	Description string
	DueDate     string
}

// NewHandler builds the page handler.
func NewHandler(board *app.Board, cfg Config) (*Handler, error) {
	if board == nil {
		return nil, errors.New("web: board is required")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Logger == nil {
		cfg.Logger = app.NopLogger()
	}
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("web: parse templates: %w", err)
	}
	h := &Handler{board: board, cfg: cfg, tmpl: tmpl}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleBoard)
	mux.HandleFunc("GET /tareways", h.handleBoard)
	mux.HandleFunc("POST /tareways", h.handleCreate)
	mux.HandleFunc("POST /tareways/items/{id}/move", h.handleMove)
	mux.HandleFunc("POST /tareways/items/{id}/advance", h.handleAdvance)
	mux.HandleFunc("POST /tareways/items/{id}/delete", h.handleDelete)
	mux.HandleFunc("POST /tareways/pages/{status}", h.handlePage)
	mux.HandleFunc("GET /tareways/export", h.handleExport)
	mux.HandleFunc("POST /tareways/import", h.handleImport)
	mux.HandleFunc("GET /privacy", h.handlePrivacy)
	mux.HandleFunc("POST /privacy/clear", h.handleClear)
	mux.HandleFunc("GET /static/app.css", handleCSS)
	h.next = withSecurityHeaders(mux)
	return h, nil
}

// ServeHTTP routes one page request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.next.ServeHTTP(w, r)
}

// handleBoard renders the board. `status` highlights a column and
// `page_<status>` requests a page for that column.
func (h *Handler) handleBoard(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	for _, status := range domain.Statuses() {
		raw := strings.TrimSpace(query.Get("page_" + string(status)))
		if raw == "" {
			continue
		}
		if n, err := strconv.Atoi(raw); err == nil {
			h.board.ChangePage(status, n)
		}
	}
	model := h.newModel(w, r)
	h.render(w, r, http.StatusOK, "board", model)
}

// handleCreate processes the create-task form.
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, err)
		return
	}
	values := formValues{
		Title:       r.PostFormValue(formTitle),
		Description: r.PostFormValue(formDescription),
		DueDate:     r.PostFormValue(formDueDate),
	}
	var announced string
	form := app.NewFormController(h.board, announceInto(&announced), app.FormConfig{RequireDueDate: true})
	result, err := form.Submit(r.Context(), app.FormInput{
		Title:       values.Title,
		Description: values.Description,
		DueDate:     values.DueDate,
	})
	if err != nil {
		h.renderError(w, r, http.StatusInternalServerError, err)
		return
	}
	if !result.Created {
		model := h.newModel(w, r)
		model.Form = values
		model.FieldErrors = result.FieldErrors
		model.Focus = result.FocusField
		model.Flash = announced
		model.Highlight = domain.StatusTodo
		h.render(w, r, http.StatusUnprocessableEntity, "board", model)
		return
	}
	h.redirect(w, r, boardURL(domain.StatusTodo), announced)
}

// handleMove drops one item on a column.
func (h *Handler) handleMove(w http.ResponseWriter, r *http.Request) {
	status, err := domain.ParseStatus(r.PostFormValue("status"))
	if err != nil {
		h.renderMessage(w, r, http.StatusBadRequest, msgInvalidStatus)
		return
	}
	var announced string
	drag := app.NewDragController(h.board, announceInto(&announced))
	if err := drag.Start(r.PathValue("id")); err != nil {
		h.renderMessage(w, r, http.StatusNotFound, msgTaskNotFound)
		return
	}
	if _, err := drag.Drop(r.Context(), status); err != nil {
		h.writeMutationError(w, r, err)
		return
	}
	h.redirect(w, r, boardURL(status), announced)
}

// handleAdvance cycles one item to the next column.
func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	item, err := h.board.AdvanceStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeMutationError(w, r, err)
		return
	}
	h.redirect(w, r, boardURL(item.Status), "Elemento movido a "+item.Status.DisplayName())
}

// handleDelete removes one item after confirmation.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	item, ok := h.board.Get(id)
	if !ok {
		h.renderMessage(w, r, http.StatusNotFound, msgTaskNotFound)
		return
	}
	if h.cfg.ConfirmDelete && r.PostFormValue("confirm") != "yes" {
		view := app.RenderBoard(app.BoardSnapshot{
			Items:    []domain.TaskItem{item},
			PageSize: 1,
		}, h.cfg.Location)
		var card *app.ItemView
		if col, ok := view.Column(item.Status); ok && len(col.Items) == 1 {
			card = &col.Items[0]
		}
		model := h.newModel(w, r)
		model.Title = "Eliminar elemento"
		model.Confirm = &confirmView{
			Heading: "¿Eliminar este elemento?",
			Message: "Esta acción no se puede deshacer.",
			Action:  "/tareways/items/" + url.PathEscape(item.ID) + "/delete",
			Item:    card,
		}
		h.render(w, r, http.StatusOK, "confirm", model)
		return
	}
	if err := h.board.Remove(r.Context(), id); err != nil {
		h.writeMutationError(w, r, err)
		return
	}
	h.redirect(w, r, boardURL(item.Status), msgTaskDeleted)
}

// handlePage changes one column's current page.
func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	status, err := domain.ParseStatus(r.PathValue("status"))
	if err != nil {
		h.renderMessage(w, r, http.StatusBadRequest, msgInvalidStatus)
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("page")))
	if err != nil {
		h.renderMessage(w, r, http.StatusBadRequest, msgInvalidPage)
		return
	}
	h.board.ChangePage(status, n)
	h.redirect(w, r, boardURL(status), "")
}

// handleExport downloads the backup file.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	file, err := h.board.Export()
	if err != nil {
		h.renderError(w, r, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}

// handleImport replaces the list with an uploaded backup.
func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		h.renderMessage(w, r, http.StatusBadRequest, msgImportMissing)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		h.renderMessage(w, r, http.StatusBadRequest, msgImportMissing)
		return
	}
	defer file.Close()
	payload, err := io.ReadAll(file)
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, err)
		return
	}
	confirmed := !h.cfg.ConfirmImport || r.FormValue("confirm") == "yes"
	count, err := h.board.Import(r.Context(), payload, confirmed)
	switch {
	case errors.Is(err, app.ErrInvalidImport):
		h.cfg.Logger.Warn("import rejected", "err", err)
		h.renderMessage(w, r, http.StatusUnprocessableEntity, msgImportInvalid)
	case errors.Is(err, app.ErrImportNotConfirmed):
		h.renderMessage(w, r, http.StatusConflict, msgImportConfirm)
	case err != nil:
		h.renderError(w, r, http.StatusInternalServerError, err)
	default:
		h.redirect(w, r, "/tareways", fmt.Sprintf(msgImportedPattern, count))
	}
}

// handlePrivacy renders the clear-data page.
func (h *Handler) handlePrivacy(w http.ResponseWriter, r *http.Request) {
	model := h.newModel(w, r)
	model.Title = "Privacidad"
	h.render(w, r, http.StatusOK, "privacy", model)
}

// handleClear removes all saved data. Requests from the board return to
// it; everything else lands on the home page.
func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	if h.cfg.ConfirmClear && r.PostFormValue("confirm") != "yes" {
		model := h.newModel(w, r)
		model.Title = "Privacidad"
		model.Flash = msgClearConfirm
		h.render(w, r, http.StatusConflict, "privacy", model)
		return
	}
	if err := h.board.ClearAll(r.Context()); err != nil {
		h.renderError(w, r, http.StatusInternalServerError, err)
		return
	}
	target := "/"
	if r.PostFormValue("from") == "board" {
		target = "/tareways"
	}
	h.redirect(w, r, target, msgDataCleared)
}

// writeMutationError maps board errors to page responses.
func (h *Handler) writeMutationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrNotFound), errors.Is(err, domain.ErrInvalidID):
		h.renderMessage(w, r, http.StatusNotFound, msgTaskNotFound)
	case errors.Is(err, domain.ErrInvalidStatus):
		h.renderMessage(w, r, http.StatusBadRequest, msgInvalidStatus)
	default:
		h.renderError(w, r, http.StatusInternalServerError, err)
	}
}

// newModel builds the base page model and consumes any pending flash.
func (h *Handler) newModel(w http.ResponseWriter, r *http.Request) pageModel {
	model := pageModel{
		Title: "TaskFlow",
		Board: app.RenderBoard(h.board.Snapshot(), h.cfg.Location),
		Flash: takeFlash(w, r),
		Fields: fieldNames{
			Title:       formTitle,
			Description: formDescription,
			DueDate:     formDueDate,
		},
		FieldErrors: map[string]string{},
	}
	if status, err := domain.ParseStatus(r.URL.Query().Get("status")); err == nil {
		model.Highlight = status
	}
	return model
}

// renderMessage re-renders the board with one message.
func (h *Handler) renderMessage(w http.ResponseWriter, r *http.Request, code int, msg string) {
	model := h.newModel(w, r)
	model.Flash = msg
	h.render(w, r, code, "board", model)
}

// renderError logs err and renders the error page with a request id.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, code int, err error) {
	requestID := uuid.NewString()
	h.cfg.Logger.Error("page request failed", "request_id", requestID, "method", r.Method, "path", r.URL.Path, "err", err)
	h.render(w, r, code, "error", pageModel{Title: "Error", RequestID: requestID})
}

// render executes one named page template.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, code int, name string, model pageModel) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if err := h.tmpl.ExecuteTemplate(w, name, model); err != nil {
		h.cfg.Logger.Error("render page", "template", name, "path", r.URL.Path, "err", err)
	}
}

// redirect stores flash and sends a 303 to target.
func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, target, flash string) {
	if flash != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     flashCookie,
			Value:    url.QueryEscape(flash),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// takeFlash reads and expires the flash cookie.
func takeFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(flashCookie)
	if err != nil {
		return ""
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1})
	msg, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return ""
	}
	return msg
}

// announceInto captures the last announcement into dst.
func announceInto(dst *string) app.Announcer {
	return app.AnnouncerFunc(func(message string) {
		*dst = message
	})
}

// boardURL returns the board location highlighting status.
func boardURL(status domain.Status) string {
	return "/tareways?status=" + url.QueryEscape(string(status))
}

func handleCSS(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = io.WriteString(w, appCSS)
}

func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self'; base-uri 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}
