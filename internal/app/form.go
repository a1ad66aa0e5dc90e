package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/webherbas/taskflow/internal/domain"
)

// Form field names, shared by the web form and validation messages.
const (
	FieldTitle       = "titulo"
	FieldDescription = "descripcion"
	FieldDueDate     = "fechaVencimiento"
)

// User-facing form messages.
const (
	MsgTitleRequired     = "Por favor, ingrese un título"
	MsgTitleTooLong      = "El título no puede superar 100 caracteres"
	MsgDescriptionLong   = "La descripción no puede superar 500 caracteres"
	MsgDueDateRequired   = "La fecha de vencimiento es obligatoria"
	MsgDueDateInvalid    = "La fecha de vencimiento no es válida"
	MsgTaskCreated       = "Nuevo elemento creado exitosamente"
	MsgTaskCreateFailure = "No se pudo guardar el elemento"
)

// FormInput holds raw submitted values.
type FormInput struct {
	Title       string
	Description string
	DueDate     string
}

// FormResult describes what the form view should do next.
type FormResult struct {
	Created     bool
	Item        domain.TaskItem
	Message     string
	FocusField  string
	FieldErrors map[string]string
	Reset       bool
}

// FormConfig holds configuration for a form controller.
type FormConfig struct {
	RequireDueDate bool
}

// FormController validates submissions and adds them to the board.
type FormController struct {
	board     *Board
	announcer Announcer
	cfg       FormConfig
}

// NewFormController constructs a form controller.
func NewFormController(board *Board, announcer Announcer, cfg FormConfig) *FormController {
	if announcer == nil {
		announcer = AnnouncerFunc(nil)
	}
	return &FormController{board: board, announcer: announcer, cfg: cfg}
}

// Submit validates in and adds a task. Validation failures are reported in
// the result with no mutation; only persistence failures return an error.
func (c *FormController) Submit(ctx context.Context, in FormInput) (FormResult, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.DueDate = strings.TrimSpace(in.DueDate)

	fieldErrors := c.validate(in)
	if len(fieldErrors) > 0 {
		result := FormResult{FieldErrors: fieldErrors}
		for _, field := range []string{FieldTitle, FieldDescription, FieldDueDate} {
			if msg, ok := fieldErrors[field]; ok {
				result.FocusField = field
				result.Message = msg
				break
			}
		}
		c.announcer.Announce(result.Message)
		return result, nil
	}

	item, err := c.board.Add(ctx, AddInput{
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
	})
	if err != nil {
		c.announcer.Announce(MsgTaskCreateFailure)
		return FormResult{Message: MsgTaskCreateFailure}, fmt.Errorf("add task: %w", err)
	}
	c.announcer.Announce(MsgTaskCreated)
	return FormResult{
		Created: true,
		Item:    item,
		Message: MsgTaskCreated,
		Reset:   true,
	}, nil
}

// validate returns per-field messages for invalid input.
func (c *FormController) validate(in FormInput) map[string]string {
	out := map[string]string{}
	if _, err := domain.NormalizeTitle(in.Title); err != nil {
		if errors.Is(err, domain.ErrTitleTooLong) {
			out[FieldTitle] = MsgTitleTooLong
		} else {
			out[FieldTitle] = MsgTitleRequired
		}
	}
	if _, err := domain.NormalizeDescription(in.Description); err != nil {
		out[FieldDescription] = MsgDescriptionLong
	}
	if in.DueDate == "" && c.cfg.RequireDueDate {
		out[FieldDueDate] = MsgDueDateRequired
	} else if _, err := domain.NormalizeDueDate(in.DueDate); err != nil {
		out[FieldDueDate] = MsgDueDateInvalid
	}
	return out
}
