package categories

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/filestash/internal/bot/models"
)

// MemoryRepository keeps everything in process memory.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]models.Categories
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]models.Categories)}
}

func (r *MemoryRepository) ListCategories(_ context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.provision(userID).Names(), nil
}

func (r *MemoryRepository) CreateCategory(_ context.Context, userID, name string) (bool, error) {
	if err := checkName(name); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cats := r.provision(userID)
	if _, ok := cats.Find(name); ok {
		return false, nil
	}
	r.users[userID] = append(cats, models.Category{Name: name, Files: []models.FileRecord{}})
	return true, nil
}

func (r *MemoryRepository) AddFile(_ context.Context, userID, category string, rec models.FileRecord) (bool, error) {
	if err := checkName(category); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cats := r.provision(userID)
	for i := range cats {
		if cats[i].Name != category {
			continue
		}
		for _, f := range cats[i].Files {
			if f.MessageID == rec.MessageID {
				return false, nil
			}
		}
		cats[i].Files = append(cats[i].Files, rec)
		return true, nil
	}
	r.users[userID] = append(cats, models.Category{Name: category, Files: []models.FileRecord{rec}})
	return true, nil
}

func (r *MemoryRepository) ListFiles(_ context.Context, userID, category string) ([]models.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cat, ok := r.provision(userID).Find(category)
	if !ok {
		return []models.FileRecord{}, nil
	}
	return append([]models.FileRecord{}, cat.Files...), nil
}

func (r *MemoryRepository) DeleteCategory(_ context.Context, userID, category string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cats := r.provision(userID)
	for i := range cats {
		if cats[i].Name == category {
			r.users[userID] = append(cats[:i:i], cats[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepository) GetUser(_ context.Context, userID string) (*models.UserDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &models.UserDocument{ID: userID, Categories: clone(r.provision(userID))}, nil
}

func (r *MemoryRepository) ExportUsers(_ context.Context) ([]models.UserDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.UserDocument, 0, len(r.users))
	for id, cats := range r.users {
		out = append(out, models.UserDocument{ID: id, Categories: clone(cats)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) ReplaceUser(_ context.Context, doc models.UserDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[doc.ID] = clone(doc.Categories)
	return nil
}

// provision must be called with mu held for writing.
func (r *MemoryRepository) provision(userID string) models.Categories {
	cats, ok := r.users[userID]
	if !ok {
		cats = models.Categories{}
		r.users[userID] = cats
	}
	return cats
}

func clone(in models.Categories) models.Categories {
	out := make(models.Categories, 0, len(in))
	for _, c := range in {
		out = append(out, models.Category{Name: c.Name, Files: append([]models.FileRecord{}, c.Files...)})
	}
	return out
}
