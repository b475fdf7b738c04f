package interaction

import (
	"errors"
	"fmt"
)

var ErrInvalidTransition = errors.New("invalid post state transition")

// Mode - режим отображения одного поста. Одновременно активен ровно один режим,
// поэтому редактирование и подтверждение удаления не могут совпасть.
type Mode int

const (
	Viewing Mode = iota
	MenuOpen
	Editing
	ConfirmingDelete
)

func (m Mode) String() string {
	switch m {
	case Viewing:
		return "viewing"
	case MenuOpen:
		return "menu_open"
	case Editing:
		return "editing"
	case ConfirmingDelete:
		return "confirming_delete"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// PostState - локальное UI-состояние поста: режим и черновик правки.
type PostState struct {
	Mode  Mode
	Draft string
}

func (s PostState) transition(to Mode, allowed ...Mode) (PostState, error) {
	for _, from := range allowed {
		if s.Mode == from {
			s.Mode = to
			return s, nil
		}
	}
	return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Mode, to)
}

// ToggleMenu открывает или закрывает меню действий.
func (s PostState) ToggleMenu() (PostState, error) {
	if s.Mode == MenuOpen {
		return s.transition(Viewing, MenuOpen)
	}
	return s.transition(MenuOpen, Viewing)
}

// StartEdit переводит пост в режим правки с черновиком, равным текущему тексту.
func (s PostState) StartEdit(content string) (PostState, error) {
	next, err := s.transition(Editing, Viewing, MenuOpen)
	if err != nil {
		return s, err
	}
	next.Draft = content
	return next, nil
}

// SetDraft меняет черновик; допустимо только в режиме правки.
func (s PostState) SetDraft(draft string) (PostState, error) {
	if s.Mode != Editing {
		return s, fmt.Errorf("%w: draft outside of editing", ErrInvalidTransition)
	}
	s.Draft = draft
	return s, nil
}

// CancelEdit отбрасывает черновик.
func (s PostState) CancelEdit() (PostState, error) {
	next, err := s.transition(Viewing, Editing)
	if err != nil {
		return s, err
	}
	next.Draft = ""
	return next, nil
}

// FinishEdit вызывается после успешного сохранения правки.
func (s PostState) FinishEdit() (PostState, error) {
	return s.CancelEdit()
}

// RequestDelete открывает подтверждение удаления.
func (s PostState) RequestDelete() (PostState, error) {
	return s.transition(ConfirmingDelete, Viewing, MenuOpen)
}

// ResolveDelete закрывает подтверждение (удаление отменено или не удалось).
func (s PostState) ResolveDelete() (PostState, error) {
	return s.transition(Viewing, ConfirmingDelete)
}
