// Package reconcile применяет изменения одного поста к упорядоченному списку
// постов по id. Все функции возвращают новый срез и не трогают входной.
package reconcile

import "github.com/UkralStul/testbook/internal/domain"

// InsertAtHead добавляет новый пост в начало списка.
func InsertAtHead(list []domain.Post, p domain.Post) []domain.Post {
	out := make([]domain.Post, 0, len(list)+1)
	out = append(out, p)
	return append(out, list...)
}

// RemoveByID убирает пост с указанным id. Отсутствие поста - не ошибка.
func RemoveByID(list []domain.Post, id int64) []domain.Post {
	out := make([]domain.Post, 0, len(list))
	for _, p := range list {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

// ReplaceByID заменяет пост с тем же id. Если такого нет, список не меняется.
func ReplaceByID(list []domain.Post, updated domain.Post) []domain.Post {
	return UpdateByID(list, updated.ID, func(domain.Post) domain.Post { return updated })
}

// UpdateByID применяет fn к посту с указанным id, сохраняя порядок остальных.
func UpdateByID(list []domain.Post, id int64, fn func(domain.Post) domain.Post) []domain.Post {
	out := make([]domain.Post, len(list))
	copy(out, list)
	for i := range out {
		if out[i].ID == id {
			out[i] = fn(out[i])
		}
	}
	return out
}

// FindByID возвращает пост с указанным id.
func FindByID(list []domain.Post, id int64) (domain.Post, bool) {
	for _, p := range list {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Post{}, false
}
